package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, Value(c))
	})
	return r
}

func TestMiddlewareEchoesValidHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerKey, "req-123")

	newRouter().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(headerKey))
	assert.Equal(t, "req-123", rec.Body.String())
}

func TestMiddlewareReplacesInvalidHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerKey, "bad id\nwith newline")

	newRouter().ServeHTTP(rec, req)

	id := rec.Header().Get(headerKey)
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Body.String())
}

func TestValueWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", Value(c))
}
