package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type httpObservation struct {
	method string
	route  string
	status int
	d      time.Duration
}

type fakeHTTPRecorder struct {
	mu  sync.Mutex
	obs []httpObservation
}

func (r *fakeHTTPRecorder) RecordHTTPRequest(_ context.Context, method, route string, status int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, httpObservation{method, route, status, d})
}

func TestHTTPMetrics_RecordsRoutePattern(t *testing.T) {
	rec := &fakeHTTPRecorder{}
	router := gin.New()
	router.Use(HTTPMetrics(rec))
	router.PATCH("/api/v1/checkout/:id/lock", func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	serve(router, httptest.NewRequest(http.MethodPatch, "/api/v1/checkout/chk_123/lock", nil))

	require.Len(t, rec.obs, 1)
	assert.Equal(t, http.MethodPatch, rec.obs[0].method)
	assert.Equal(t, "/api/v1/checkout/:id/lock", rec.obs[0].route)
	assert.Equal(t, http.StatusConflict, rec.obs[0].status)
	assert.GreaterOrEqual(t, rec.obs[0].d, time.Duration(0))
}

func TestHTTPMetrics_UnmatchedRoute(t *testing.T) {
	rec := &fakeHTTPRecorder{}
	router := gin.New()
	router.Use(HTTPMetrics(rec))

	serve(router, httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	require.Len(t, rec.obs, 1)
	assert.Equal(t, "unknown", rec.obs[0].route)
	assert.Equal(t, http.StatusNotFound, rec.obs[0].status)
}

func TestHTTPMetrics_NilRecorder(t *testing.T) {
	router := gin.New()
	router.Use(HTTPMetrics(nil))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
