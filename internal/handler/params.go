package handler

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// parseNumber reads raw as a decimal number, surrounding whitespace allowed.
func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// parsePositiveID accepts finite, integral values greater than zero.
func parsePositiveID(raw, name string) (int64, error) {
	n, ok := parseNumber(raw)
	if !ok || n <= 0 || n != math.Trunc(n) || n >= math.MaxInt64 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return int64(n), nil
}

// queryInt reads an integer query value, returning fallback when the value is
// missing, unparsable or zero.
func queryInt(c *gin.Context, key string, fallback int) int {
	n, ok := parseNumber(c.Query(key))
	if !ok || n == 0 {
		return fallback
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < math.MinInt32 {
		return math.MinInt32
	}
	return int(n)
}

// pageFromQuery reads offset and limit. limit is clamped to 1..200 with a
// default of 20; offset is never negative.
func pageFromQuery(c *gin.Context) models.Pagination {
	limit := queryInt(c, "limit", models.DefaultPageLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > models.MaxPageLimit {
		limit = models.MaxPageLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return models.Pagination{Offset: offset, Limit: limit}
}
