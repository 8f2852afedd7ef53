package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	t.Run("generates an id when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" {
			t.Fatal("handler saw empty request id")
		}
		if got := w.Header().Get("X-Request-ID"); got != seen {
			t.Fatalf("response header %q, handler saw %q", got, seen)
		}
	})

	t.Run("echoes a client-supplied id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "client-trace-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if seen != "client-trace-42" {
			t.Fatalf("handler saw %q, want client-trace-42", seen)
		}
		if got := w.Header().Get("X-Request-ID"); got != "client-trace-42" {
			t.Fatalf("response header %q, want client-trace-42", got)
		}
	})
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := GetRequestID(c); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
