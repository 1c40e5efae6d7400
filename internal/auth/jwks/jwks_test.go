package jwks

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://securetoken.google.com/fideprep-test"
	testAudience = "fideprep-test"
)

func sign(t *testing.T, key *rsa.PrivateKey, kid string, c jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "firebase-uid-1",
		"iss": testIssuer,
		"aud": testAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

func TestVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var fetches atomic.Int32
	keys := Handler(JWKS{Keys: []JWK{FromRSA("k1", &key.PublicKey)}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		keys(w, r)
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, testIssuer, testAudience)
	ctx := context.Background()

	id, err := v.Verify(ctx, sign(t, key, "k1", validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", id.Subject)
	assert.Empty(t, id.Role)

	c := validClaims()
	c["role"] = "admin"
	id, err = v.Verify(ctx, sign(t, key, "k1", c))
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Role)
	assert.Equal(t, int32(1), fetches.Load(), "keys are cached")

	c = validClaims()
	c["aud"] = "someone-else"
	_, err = v.Verify(ctx, sign(t, key, "k1", c))
	assert.Error(t, err)

	c = validClaims()
	c["exp"] = time.Now().Add(-time.Hour).Unix()
	_, err = v.Verify(ctx, sign(t, key, "k1", c))
	assert.Error(t, err)

	// unknown kid within the refresh window does not hammer the endpoint
	_, err = v.Verify(ctx, sign(t, key, "k2", validClaims()))
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Equal(t, int32(1), fetches.Load())

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = v.Verify(ctx, sign(t, other, "k1", validClaims()))
	assert.Error(t, err)
}

func TestVerifierRefetchesForNewKid(t *testing.T) {
	k1, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	k2, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var rotated atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set := JWKS{Keys: []JWK{FromRSA("k1", &k1.PublicKey)}}
		if rotated.Load() {
			set.Keys = append(set.Keys, FromRSA("k2", &k2.PublicKey))
		}
		Handler(set)(w, r)
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, testIssuer, testAudience)
	v.MinRefresh = 0
	ctx := context.Background()

	_, err = v.Verify(ctx, sign(t, k1, "k1", validClaims()))
	require.NoError(t, err)

	rotated.Store(true)
	id, err := v.Verify(ctx, sign(t, k2, "k2", validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", id.Subject)
}

func TestJWKRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pub, err := FromRSA("k", &key.PublicKey).rsaKey()
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = JWK{Kty: "EC"}.rsaKey()
	assert.Error(t, err)
}
