package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedAdminToken(t *testing.T, secret string, method jwt.SigningMethod, mutate func(*AdminClaims)) string {
	t.Helper()
	claims := AdminClaims{
		Role: AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
	if mutate != nil {
		mutate(&claims)
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAdminJWT(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{name: "auth disabled", secret: "", header: "Bearer x", want: http.StatusUnauthorized},
		{name: "missing header", secret: "secret", want: http.StatusUnauthorized},
		{name: "not bearer", secret: "secret", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "wrong key", secret: "secret", header: "Bearer " + signedAdminToken(t, "wrong", jwt.SigningMethodHS256, nil), want: http.StatusUnauthorized},
		{name: "wrong algorithm", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS512, nil), want: http.StatusUnauthorized},
		{
			name:   "expired",
			secret: "secret",
			header: "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS256, func(c *AdminClaims) {
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			}),
			want: http.StatusUnauthorized,
		},
		{
			name:   "no expiry",
			secret: "secret",
			header: "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS256, func(c *AdminClaims) { c.ExpiresAt = nil }),
			want:   http.StatusUnauthorized,
		},
		{
			name:   "no subject",
			secret: "secret",
			header: "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS256, func(c *AdminClaims) { c.Subject = "" }),
			want:   http.StatusUnauthorized,
		},
		{
			name:   "not admin",
			secret: "secret",
			header: "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS256, func(c *AdminClaims) { c.Role = "viewer" }),
			want:   http.StatusForbidden,
		},
		{name: "valid", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS256, nil), want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			var subject string
			AdminJWT(tt.secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				claims, ok := AdminClaimsFromContext(r.Context())
				require.True(t, ok)
				subject = claims.Subject
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "ops@example.com", subject)
			}
		})
	}
}
