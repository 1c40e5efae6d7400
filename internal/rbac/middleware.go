package rbac

import (
	"net/http"

	"github.com/fideprep/fideprep-api/internal/apierr"
)

// Require rejects requests whose role lacks perm.
func (c *Checker) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !c.Has(role, perm) {
				apierr.Write(w, apierr.Forbidden("missing permission %s", perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var defaultChecker = NewChecker(nil)

// Require enforces perm against the default role table.
func Require(perm string) func(http.Handler) http.Handler {
	return defaultChecker.Require(perm)
}
