package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"readingbot/pkg/config"
	"readingbot/pkg/errutil"
	"readingbot/pkg/health"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r gin.IRouter) {
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(errutil.NotFound("nothing here", nil))
	})
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewEngine(EngineParams{
		Config: &config.Config{AppEnv: "test"},
		Health: health.ProvideHealth(health.HealthParams{}),
		Routes: []Routes{pingRoutes{}},
	})
}

func TestEngineRoutes(t *testing.T) {
	r := newEngine()

	for path, code := range map[string]int{
		"/ping":    http.StatusOK,
		"/missing": http.StatusNotFound,
		"/healthz": http.StatusOK,
		"/metrics": http.StatusOK,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, code, w.Code, path)
	}
}
