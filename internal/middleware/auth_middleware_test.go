package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-messenger/internal/auth"
)

func TestAuthMiddleware(t *testing.T) {
	guard := NewGuard("secret", "u-me", nil)
	var seen string
	h := guard.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	own, err := auth.GenerateToken("u-me", "Me", "secret", time.Hour)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken("u-smith", "Smith", "secret", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"malformed", "Token " + own, "", http.StatusUnauthorized},
		{"invalid", "Bearer garbage", "", http.StatusUnauthorized},
		{"foreign", "Bearer " + foreign, "", http.StatusForbidden},
		{"header", "Bearer " + own, "", http.StatusNoContent},
		{"query", "", own, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			target := "/api/v1/conversations"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			r := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusNoContent {
				assert.Equal(t, "u-me", seen)
			}
		})
	}
}
