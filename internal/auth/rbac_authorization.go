package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/frahmantamala/civic-report/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		logger:      logger,
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, capability Capability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := internal.IdentityFromContext(r.Context())
		if !ok {
			ra.logger.Warn("authorization check failed: identity not found in context")
			ra.WriteAppError(w, internal.ErrMissingToken)
			return
		}

		if !Can(user.Role(identity.Role), capability) {
			ra.logger.WarnContext(r.Context(), "access denied: role lacks capability",
				"user_id", identity.UserID,
				"role", identity.Role,
				"required_capability", capability)
			ra.WriteAppError(w, internal.ErrRoleNotPermitted)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// Require returns middleware that lets the request through only when the
// caller's role holds capability.
func (ra *RBACAuthorization) Require(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, capability)
	}
}
