package middleware

import (
	"net/http"

	"github.com/taskstream/taskstream/internal/api/shared"
)

// UserEmailHeader is set by the gateway after it validates the caller's
// token. Backend services sit behind the gateway and treat this header
// as authoritative.
const UserEmailHeader = "X-Auth-User-Email"

// RequireIdentity extracts the caller's email from the gateway-set
// identity header and stores it in the request context. Requests that
// arrive without the header did not pass through the gateway's token
// check and are rejected.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.Header.Get(UserEmailHeader)
		if email == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}

		ctx := shared.WithUserEmail(r.Context(), email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
