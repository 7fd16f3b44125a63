package authz

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

const anonymous = "user:anonymous"

// PrincipalFromRequest extracts the caller: X-Principal, then X-User, then
// anonymous.
func PrincipalFromRequest(r *http.Request) string {
	if v := r.Header.Get("X-Principal"); v != "" {
		return v
	}
	if v := r.Header.Get("X-User"); v != "" {
		return v
	}
	return anonymous
}

// Can checks whether the request's principal holds relation on object.
// Errors deny.
func Can(ctx context.Context, c Checker, logger *zap.Logger, r *http.Request, object, relation string) (bool, error) {
	principal := PrincipalFromRequest(r)
	allowed, err := c.Check(ctx, principal, object, relation)
	if err != nil {
		logger.Error("authz check error",
			zap.String("user", principal), zap.String("object", object), zap.String("relation", relation), zap.Error(err))
		return false, err
	}
	if !allowed {
		logger.Info("authz denied", zap.String("user", principal), zap.String("object", object), zap.String("relation", relation))
	}
	return allowed, nil
}
