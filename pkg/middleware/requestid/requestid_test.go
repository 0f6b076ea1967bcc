package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareGeneratesAndEchoes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, w.Header().Get(headerKey))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerKey, "client-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "client-123", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerKey, strings.Repeat("x", maxLength+1))
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, strings.Repeat("x", maxLength+1), seen)
}

func TestMiddlewareReplacesUnsafeIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusNoContent)
	})

	for _, id := range []string{"batch 7", "abc\tdef", "payroll/3", "ünïcode"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(headerKey, id)
		router.ServeHTTP(httptest.NewRecorder(), req)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err, "id %q should be replaced", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerKey, "gw-2024.10:export_7")
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "gw-2024.10:export_7", seen)
}
