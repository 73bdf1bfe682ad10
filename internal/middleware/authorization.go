package middleware

import (
	"net/http"

	"inventory-api/internal/domain"

	"go.uber.org/zap"
)

// RequireCapability lets a request through when the authenticated caller
// holds at least one of the given capabilities. It must run after
// AuthMiddleware.
func RequireCapability(logger *zap.Logger, wanted ...domain.Capability) func(http.Handler) http.Handler {
	names := make([]string, len(wanted))
	for i, c := range wanted {
		names[i] = string(c)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caps, ok := GetCapabilities(r.Context())
			if !ok {
				logger.Warn("Capabilities not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !domain.HasCapability(caps, wanted...) {
				userID, _ := GetUserID(r.Context())
				logger.Warn("Caller lacks required capability",
					zap.String("user_id", userID),
					zap.Strings("required", names),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
