package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumbara-device-go/internal/platform/logging"
)

func TestBuildRequiresLogger(t *testing.T) {
	_, err := Build(Options{})
	assert.Error(t, err)
}

func TestRouterEnvelopes(t *testing.T) {
	r, err := Build(Options{Logger: logging.Discard()})
	require.NoError(t, err)
	r.API.GET("/ping", func(c *gin.Context) {
		RespondSuccess(c, http.StatusOK, gin.H{"pong": true}, "")
	})

	tests := []struct {
		name    string
		path    string
		status  int
		success bool
		message string
	}{
		{name: "registered route", path: "/api/ping", status: http.StatusOK, success: true, message: "ok"},
		{name: "unknown route", path: "/api/nope", status: http.StatusNotFound, success: false, message: "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)

			var resp APIResponse
			require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.success, resp.Success)
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	r, err := Build(Options{Logger: logging.Discard()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/device/state", nil)
	req.Header.Set("Origin", "http://companion.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
