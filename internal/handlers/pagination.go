package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"prepx/internal/config"
	"prepx/internal/middleware"
	"prepx/internal/models"

	"github.com/gin-gonic/gin"
)

// ParsePagination reads page and limit from the query. Missing or invalid values fall back
// to page 1 and the configured default size; limit is capped at the configured maximum.
func ParsePagination(c *gin.Context, cfg *config.Config) (int, int) {
	defaultSize, maxSize := config.DefaultPageSize, config.MaxPageSize
	if cfg != nil {
		if cfg.Quiz.DefaultPageSize > 0 {
			defaultSize = cfg.Quiz.DefaultPageSize
		}
		if cfg.Quiz.MaxPageSize > 0 {
			maxSize = cfg.Quiz.MaxPageSize
		}
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSize)))
	if err != nil || size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	return page, size
}

// ParseFilters returns a map of non-empty trimmed query params for the given keys.
func ParseFilters(c *gin.Context, keys ...string) map[string]string {
	filters := make(map[string]string, len(keys))
	for _, key := range keys {
		if val := strings.TrimSpace(c.Query(key)); val != "" {
			filters[key] = val
		}
	}
	return filters
}

// WritePaginated responds with {items, pagination}
func WritePaginated[T any](c *gin.Context, items []T, page, limit, total int) {
	middleware.Respond(c, http.StatusOK, models.NewPage(items, page, limit, total), "")
}
