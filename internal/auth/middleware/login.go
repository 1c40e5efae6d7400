package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fideprep/fideprep-api/internal/apierr"
	"github.com/fideprep/fideprep-api/internal/rbac"
)

type LoginConfig struct {
	AdminUser     string
	AdminPassHash string // bcrypt
}

// LoginHandler serves POST /auth/login {"username","password"} for offline
// use. The admin account is checked against a bcrypt hash; any other user
// logs in as a learner when the password equals the username.
func LoginHandler(a *AuthService, cfg LoginConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.Write(w, apierr.InvalidInput("bad json"))
			return
		}
		user := strings.TrimSpace(req.Username)
		if user == "" {
			apierr.Write(w, apierr.Unauthenticated("invalid credentials"))
			return
		}

		var role string
		switch {
		case cfg.AdminUser != "" && user == cfg.AdminUser:
			if bcrypt.CompareHashAndPassword([]byte(cfg.AdminPassHash), []byte(req.Password)) != nil {
				apierr.Write(w, apierr.Unauthenticated("invalid credentials"))
				return
			}
			role = rbac.RoleAdmin
		case req.Password == user:
			role = rbac.RoleLearner
		default:
			apierr.Write(w, apierr.Unauthenticated("invalid credentials"))
			return
		}

		tok, err := a.IssueJWT(user, role)
		if err != nil {
			apierr.Write(w, apierr.Internal(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": role})
	}
}
