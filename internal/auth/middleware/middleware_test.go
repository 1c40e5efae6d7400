package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fideprep/fideprep-api/internal/rbac"
)

func whoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rbac.SubjectFromContext(r.Context()) + "|" + rbac.RoleFromContext(r.Context())))
	})
}

func get(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/mock-exam/history", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("test-secret")
	h := JWTMiddleware(a, nil)(whoami())

	tok, err := a.IssueJWT("u1", "")
	require.NoError(t, err)
	rec := get(h, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1|learner", rec.Body.String())

	tok, err = a.IssueJWT("boss", rbac.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "boss|admin", get(h, tok).Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(h, "garbage").Code)

	forged, err := NewAuthService("other-secret").IssueJWT("u1", rbac.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(h, forged).Code)
}

func TestIssuedTokensAreUnique(t *testing.T) {
	a := NewAuthService("s")
	t1, err := a.IssueJWT("u1", rbac.RoleLearner)
	require.NoError(t, err)
	t2, err := a.IssueJWT("u1", rbac.RoleLearner)
	require.NoError(t, err)
	c1, err := a.Parse(t1)
	require.NoError(t, err)
	c2, err := a.Parse(t2)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
	assert.Equal(t, "u1", c1.Subject)
}

type stubVerifier struct {
	id  Identity
	err error
}

func (s stubVerifier) Verify(context.Context, string) (Identity, error) { return s.id, s.err }

func TestChain(t *testing.T) {
	fail := stubVerifier{err: errors.New("nope")}
	ok := stubVerifier{id: Identity{Subject: "x"}}

	id, err := Chain{fail, ok}.Verify(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "x", id.Subject)

	_, err = Chain{fail}.Verify(context.Background(), "t")
	assert.Error(t, err)
	_, err = Chain{}.Verify(context.Background(), "t")
	assert.ErrorIs(t, err, ErrNoVerifier)
}

func TestPromoteAdmins(t *testing.T) {
	a := NewAuthService("s")
	h := JWTMiddleware(a, nil)(PromoteAdmins([]string{"uid-admin"})(whoami()))

	tok, err := a.IssueJWT("uid-admin", "")
	require.NoError(t, err)
	assert.Equal(t, "uid-admin|admin", get(h, tok).Body.String())

	tok, err = a.IssueJWT("uid-other", "")
	require.NoError(t, err)
	assert.Equal(t, "uid-other|learner", get(h, tok).Body.String())
}

func TestLoginHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	a := NewAuthService("s")
	h := LoginHandler(a, LoginConfig{AdminUser: "admin", AdminPassHash: string(hash)})

	login := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		return rec
	}

	rec := login(`{"username":"admin","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, rbac.RoleAdmin, out["role"])
	id, err := a.Verify(context.Background(), out["access_token"])
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "admin", Role: rbac.RoleAdmin}, id)

	assert.Equal(t, http.StatusUnauthorized, login(`{"username":"admin","password":"admin"}`).Code)
	assert.Equal(t, http.StatusOK, login(`{"username":"marie","password":"marie"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, login(`{"username":"marie","password":"x"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, login(`{"username":"","password":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, login(`{`).Code)
}
