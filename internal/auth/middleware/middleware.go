package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fideprep/fideprep-api/internal/apierr"
	"github.com/fideprep/fideprep-api/internal/logger"
	"github.com/fideprep/fideprep-api/internal/rbac"
)

const localIssuer = "fideprep-offline"

// AuthService issues and checks HMAC tokens for local development.
type AuthService struct {
	hmac []byte
	ttl  time.Duration
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{hmac: []byte(secret), ttl: 8 * time.Hour}
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub,
			Issuer:    localIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(localIssuer))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	return c, nil
}

func (a *AuthService) Verify(_ context.Context, token string) (Identity, error) {
	c, err := a.Parse(token)
	if err != nil {
		return Identity{}, err
	}
	if c.Subject == "" {
		return Identity{}, errors.New("auth: token has no subject")
	}
	return Identity{Subject: c.Subject, Role: c.Role}, nil
}

// JWTMiddleware authenticates the bearer token and stores subject and role in
// the request context. Tokens without a role are treated as learners.
func JWTMiddleware(v Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				apierr.Write(w, apierr.Unauthenticated("missing bearer token"))
				return
			}
			id, err := v.Verify(r.Context(), strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
			if err != nil {
				log.Debug("token rejected", "path", r.URL.Path, "error", err)
				apierr.Write(w, apierr.Unauthenticated("invalid token"))
				return
			}
			if id.Role == "" {
				id.Role = rbac.RoleLearner
			}
			ctx := rbac.WithRole(rbac.WithSubject(r.Context(), id.Subject), id.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PromoteAdmins grants the admin role to the listed subjects. Hosted identity
// tokens carry no role claim, so admins are configured by uid.
func PromoteAdmins(subjects []string) func(http.Handler) http.Handler {
	admins := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		admins[s] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := admins[rbac.SubjectFromContext(r.Context())]; ok {
				r = r.WithContext(rbac.WithRole(r.Context(), rbac.RoleAdmin))
			}
			next.ServeHTTP(w, r)
		})
	}
}
