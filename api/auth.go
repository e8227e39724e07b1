package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/warp/ride-engine/auth"
	"github.com/warp/ride-engine/generic"
)

type claimsKey struct{}

// requireToken rejects requests without a valid bearer token and stores
// the claims in the request context. An empty secret disables the check.
func requireToken(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}
			claims, err := auth.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

// requireCompany rejects tokens scoped to another company than the
// {companyID} route parameter.
func requireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowed(r.Context(), companyParam(r)) {
			writeError(w, http.StatusForbidden, "Token not valid for company", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowed is true when auth is disabled or the token covers the company.
func allowed(ctx context.Context, companyID generic.CompanyID) bool {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return !ok || claims.Allows(companyID)
}

