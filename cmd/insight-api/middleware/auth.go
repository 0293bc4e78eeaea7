// Package middleware provides HTTP middleware for the Insight Engine API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// tenantIDKey is the context key for the authenticated tenant.
const tenantIDKey contextKey = "tenant_id"

// TenantAuthConfig holds tenant resolution settings.
type TenantAuthConfig struct {
	// HeaderName is the header carrying the tenant ID. Defaults to
	// X-Tenant-ID.
	HeaderName string
	// DefaultTenant, when set, is used for requests without a tenant header.
	// Intended for development only.
	DefaultTenant string
}

// TenantAuth resolves the tenant for every request. Requests without a
// resolvable tenant UUID are rejected before reaching a handler; handlers
// can rely on TenantFromContext returning a valid ID.
func TenantAuth(cfg TenantAuthConfig) func(http.Handler) http.Handler {
	header := cfg.HeaderName
	if header == "" {
		header = "X-Tenant-ID"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(header)
			if raw == "" {
				raw = cfg.DefaultTenant
			}
			if raw == "" {
				http.Error(w, `{"error": "missing tenant id"}`, http.StatusUnauthorized)
				return
			}

			tenantID, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, `{"error": "invalid tenant id"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext extracts the authenticated tenant ID.
func TenantFromContext(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(tenantIDKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// CORS returns CORS middleware for browser clients.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Tenant-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
