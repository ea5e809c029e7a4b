package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type mapUsers struct {
	byName map[string]*User
	nextID int64
}

func newMapUsers() *mapUsers {
	return &mapUsers{byName: map[string]*User{}}
}

func (m *mapUsers) GetUserByUsername(_ context.Context, username string) (*User, error) {
	u, ok := m.byName[strings.ToLower(username)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mapUsers) InsertUser(_ context.Context, u *User) error {
	key := strings.ToLower(u.Username)
	if _, ok := m.byName[key]; ok {
		return ErrUserExists
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byName[key] = &cp
	return nil
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer([]byte("test-secret"), time.Hour)
	require.NoError(t, err)
	return issuer
}

// =============================================================================
// TOKENS
// =============================================================================

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, expires, err := issuer.Issue(User{ID: 7, Username: "admin", Name: "Administrator"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NotEmpty(t, claims.ID)
}

func TestIssuer_Rejects(t *testing.T) {
	issuer := newTestIssuer(t)
	token, _, err := issuer.Issue(User{ID: 1, Username: "admin"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewIssuer([]byte("other-secret"), time.Hour)
		require.NoError(t, err)
		_, err = other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := newTestIssuer(t)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := issuer.Parse("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer(nil, time.Hour)
	assert.Error(t, err)

	issuer, err := NewIssuer([]byte("s"), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, issuer.ttl)
}

// =============================================================================
// LOGIN
// =============================================================================

func TestService_Login(t *testing.T) {
	// GIVEN: A stored user with a bcrypt password
	// WHEN: Logging in with good and bad credentials
	// THEN: Only the correct password yields a token

	users := newMapUsers()
	issuer := newTestIssuer(t)
	svc := NewService(users, issuer)
	ctx := context.Background()

	u, err := svc.Register(ctx, " admin ", "admin123", "Administrator")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)
	assert.NotEqual(t, "admin123", u.PasswordHash)

	token, _, err := svc.Login(ctx, "ADMIN", "admin123")
	require.NoError(t, err)
	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	_, _, err = svc.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "ghost", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "Admin", "x", "")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestMiddleware(t *testing.T) {
	issuer := newTestIssuer(t)
	var seen *int64
	protected := Middleware(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/containers", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/containers", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, _, err := issuer.Issue(User{ID: 3, Username: "magacioner"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/containers", nil)
		req.Header.Set("Authorization", "bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(3), *seen)
	})
}

func TestUserIDFromContext_Anonymous(t *testing.T) {
	assert.Nil(t, UserIDFromContext(context.Background()))
}
