package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPAHandler(t *testing.T) {
	t.Parallel()
	h := SPAHandler()

	tests := []struct {
		path     string
		status   int
		wantPage bool
	}{
		{"/", http.StatusOK, true},
		{"/index.html", http.StatusOK, true},
		{"/tasks/42", http.StatusOK, true},
		{"/api/assistant/nope", http.StatusNotFound, false},
		{"/ws/other", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.status, rec.Code)
			body, err := io.ReadAll(rec.Body)
			require.NoError(t, err)
			if tt.wantPage {
				assert.Contains(t, string(body), "/ws/assistant")
				assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
			} else {
				assert.NotContains(t, string(body), "/ws/assistant")
			}
		})
	}
}
