package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRegisterPprof(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		base string
		path string
	}{
		{"/debug/pprof", "/debug/pprof/"},
		{"", "/debug/pprof/"},
		{"diag/", "/diag/"},
	}
	for _, tc := range tests {
		router := gin.New()
		RegisterPprof(router, tc.base)

		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tc.path, nil))

		if resp.Code != http.StatusOK {
			t.Fatalf("base %q: unexpected status %d", tc.base, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "profile") {
			t.Fatalf("base %q: expected pprof index content", tc.base)
		}
	}
}

func TestRegisterPprofHeap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterPprof(router, "/debug/pprof")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/heap?debug=1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
}
