package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticVerifier string

func (v staticVerifier) Verify(token string) bool {
	return token != "" && token == string(v)
}

func TestRequireAdmin(t *testing.T) {
	var reached, denied int
	handler := RequireAdmin(staticVerifier("s3cret"), func(*http.Request) { denied++ })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			reached++
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid", "s3cret", http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "guess", http.StatusUnauthorized},
		{"prefix", "s3cre", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/training/trigger", nil)
			if tt.token != "" {
				req.Header.Set(AdminTokenHeader, tt.token)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
			}
		})
	}

	assert.Equal(t, 1, reached)
	assert.Equal(t, 3, denied)
}

func TestRequireAdmin_NilDeniedHook(t *testing.T) {
	handler := RequireAdmin(staticVerifier("x"), nil)(http.NotFoundHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/training/runs", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
