package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/service"
)

func TestMetricsMiddlewareLabelsRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/api/courses/:courseId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/courses/1", "/api/courses/2", "/nope", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP http_requests_total Total number of HTTP requests
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/api/courses/:courseId",status="200"} 2
http_requests_total{method="GET",path="unmatched",status="404"} 1
`
	require.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "http_requests_total"))
}

func TestResponseMetaRecordsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	assert.Nil(t, ExtractMeta(c))
	SetCacheHit(c, true)
	assert.Equal(t, map[string]interface{}{"cache_hit": true}, ExtractMeta(c))
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}
