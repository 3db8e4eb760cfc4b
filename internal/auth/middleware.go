package auth

import (
	"net/http"
	"strings"

	"github.com/autocare/workshop/internal/platform/httpx"
	"github.com/autocare/workshop/internal/shared"
)

// RequireStaff rejects anonymous requests. Pages redirect to the login
// form; API calls get a 401 problem document.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.StaffFromContext(r.Context()) != "" {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Login required")
			return
		}
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
	})
}
