package authz

import (
	"net/http"

	"go.uber.org/zap"
)

// Require returns a middleware that enforces relation on object for every
// request.
func Require(c Checker, logger *zap.Logger, object, relation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := Can(r.Context(), c, logger, r, object, relation)
			if err != nil {
				http.Error(w, "authorization error", http.StatusForbidden)
				return
			}
			if !allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
