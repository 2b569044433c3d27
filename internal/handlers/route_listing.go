package handlers

import (
	"net/http"
	"sort"
	"strings"

	"prepx/internal/middleware"
	"prepx/internal/observability"

	"github.com/gin-gonic/gin"
)

// RouteInfo describes one registered endpoint
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	// Area is the first path segment below the version prefix, e.g. "posts"
	Area  string `json:"area"`
	Admin bool   `json:"admin"`
}

// RouteListingHandler serves the admin route index
type RouteListingHandler struct {
	serviceName string
	routes      []RouteInfo
	byMethod    map[string]int
}

// NewRouteListingHandler creates an empty listing; call CollectRoutes once routes are registered
func NewRouteListingHandler(serviceName string) *RouteListingHandler {
	return &RouteListingHandler{serviceName: serviceName, byMethod: map[string]int{}}
}

// CollectRoutes snapshots the engine's routes, ordered by path then method
func (h *RouteListingHandler) CollectRoutes(engine *gin.Engine) {
	h.routes = h.routes[:0]
	h.byMethod = map[string]int{}

	for _, route := range engine.Routes() {
		if strings.HasPrefix(route.Path, "/debug/") {
			continue
		}
		h.routes = append(h.routes, RouteInfo{
			Method: route.Method,
			Path:   route.Path,
			Area:   routeArea(route.Path),
			Admin:  strings.Contains(route.Path, "/admin/") || strings.HasSuffix(route.Path, "/admin"),
		})
		h.byMethod[route.Method]++
	}

	sort.Slice(h.routes, func(i, j int) bool {
		if h.routes[i].Path != h.routes[j].Path {
			return h.routes[i].Path < h.routes[j].Path
		}
		return h.routes[i].Method < h.routes[j].Method
	})
}

// routeArea returns the segment after /api or /v1, or the first segment otherwise
func routeArea(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) > 1 && (segments[0] == "api" || segments[0] == "v1") {
		return segments[1]
	}
	return segments[0]
}

// GetRouteListingJSON returns the collected routes
func (h *RouteListingHandler) GetRouteListingJSON(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing_json")
	defer observability.FinishSpan(span, nil)
	middleware.Respond(c, http.StatusOK, gin.H{
		"service":  h.serviceName,
		"total":    len(h.routes),
		"byMethod": h.byMethod,
		"routes":   h.routes,
	}, "")
}
