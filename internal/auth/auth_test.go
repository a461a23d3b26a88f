package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	id, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	_, err = NewVerifier("other").Parse(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	expired, err := v.IssueToken("user-1", -time.Minute)
	require.NoError(t, err)
	_, err = v.Parse(expired)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.IssueToken("user-7", time.Hour)
	require.NoError(t, err)

	var seen string
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "user-7", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, seen)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, seen)
}

func TestRequireUser(t *testing.T) {
	_, err := RequireUser(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	id, err := RequireUser(WithUser(context.Background(), "u"))
	require.NoError(t, err)
	assert.Equal(t, "u", id)
}
