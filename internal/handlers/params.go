package handlers

import (
	"strconv"

	contextutils "prepx/internal/utils"

	"github.com/gin-gonic/gin"
)

// ParseIDParam reads a positive integer path parameter
func ParseIDParam(c *gin.Context, name string) (int, error) {
	raw := c.Param(name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
			"Invalid "+name, "expected a positive integer, got '"+raw+"'")
	}
	return id, nil
}

// ParseBoolQuery reads an optional boolean query parameter; anything unparsable is false
func ParseBoolQuery(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}
