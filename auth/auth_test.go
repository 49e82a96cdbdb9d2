package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookit/apperr"
	"bookit/db/dbtest"
	"bookit/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubVerifier struct {
	id  *Identity
	err error
}

func (s stubVerifier) Verify(context.Context, string) (*Identity, error) {
	return s.id, s.err
}

func TestAuthenticateCreatesUserOnFirstSignIn(t *testing.T) {
	users := dbtest.NewMemory[models.User]()
	a := NewAuthenticator(stubVerifier{id: &Identity{
		UID:    "uid-1",
		Email:  "ada@example.com",
		Claims: map[string]any{"role": "admin"},
	}}, users, zap.NewNop())

	s, err := a.Authenticate(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", s.ID)
	assert.Equal(t, "ada@example.com", s.Email)
	assert.False(t, s.IsStaff)
	assert.Equal(t, "admin", s.Claims["role"])

	u, err := users.Get(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.True(t, u.IsActive)

	_, err = a.Authenticate(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, users.Len())
}

func TestAuthenticateUsesStoredFlags(t *testing.T) {
	users := dbtest.NewMemory(models.User{ID: "uid-1", Email: "staff@example.com", IsStaff: true, IsActive: true})
	a := NewAuthenticator(stubVerifier{id: &Identity{UID: "uid-1"}}, users, zap.NewNop())

	s, err := a.Authenticate(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, s.IsStaff)
	assert.Equal(t, "staff@example.com", s.Email)
}

func TestAuthenticateWithoutEmailUsesPlaceholder(t *testing.T) {
	users := dbtest.NewMemory[models.User]()
	a := NewAuthenticator(stubVerifier{id: &Identity{UID: "uid-2"}}, users, zap.NewNop())

	s, err := a.Authenticate(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, s.Email)

	u, err := users.Get(context.Background(), "uid-2")
	require.NoError(t, err)
	assert.Equal(t, "uid-2@identity.local", u.Email)
	assert.Equal(t, "uid-2", u.Username)
}

func TestAuthenticateFailures(t *testing.T) {
	users := dbtest.NewMemory(models.User{ID: "off", Email: "off@example.com", IsActive: false})

	_, err := NewAuthenticator(stubVerifier{err: errors.New("boom")}, users, zap.NewNop()).
		Authenticate(context.Background(), "tok")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	_, err = NewAuthenticator(stubVerifier{id: &Identity{UID: "off"}}, users, zap.NewNop()).
		Authenticate(context.Background(), "tok")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	down := dbtest.NewMemory[models.User]()
	down.FailWith(errors.New("unreachable"))
	_, err = NewAuthenticator(stubVerifier{id: &Identity{UID: "new"}}, down, zap.NewNop()).
		Authenticate(context.Background(), "tok")
	assert.True(t, apperr.Is(err, apperr.KindDependency))
}

func post(h func(http.ResponseWriter, *http.Request), body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body)))
	return rec
}

func TestRegisterAndToken(t *testing.T) {
	users := dbtest.NewMemory[models.User]()
	h := NewHandler(users, NewIssuer(testSecret, ""), zap.NewNop())
	register := func(w http.ResponseWriter, r *http.Request) { h.Register(w, r, nil) }
	token := func(w http.ResponseWriter, r *http.Request) { h.Token(w, r, nil) }
	refresh := func(w http.ResponseWriter, r *http.Request) { h.Refresh(w, r, nil) }

	rec := post(register, `{"email":"Ada@Example.com","username":"ada","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ada@example.com"`)

	assert.Equal(t, http.StatusBadRequest, post(register, `{"email":"ada@example.com","username":"again","password":"longenough"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(register, `{"email":"bob@example.com","username":"bob","password":"short"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(register, `{"email":"nope","username":"bob","password":"longenough"}`).Code)

	assert.Equal(t, http.StatusUnauthorized, post(token, `{"email":"ada@example.com","password":"wrong-password"}`).Code)

	rec = post(token, `{"email":"ada@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var pair map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.NotEmpty(t, pair["access"])
	assert.NotEmpty(t, pair["refresh"])

	rec = post(refresh, `{"refresh":"`+pair["refresh"]+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access"`)

	assert.Equal(t, http.StatusUnauthorized, post(refresh, `{"refresh":"`+pair["access"]+`"}`).Code)

	id, err := NewJWTVerifier(testSecret, "").Verify(context.Background(), pair["access"])
	require.NoError(t, err)
	u, err := users.Get(context.Background(), id.UID)
	require.NoError(t, err)
	assert.NotEmpty(t, u.LastLogin)
}

func TestAuthenticateEmailOwnedByAnotherUser(t *testing.T) {
	users := dbtest.NewMemory(models.User{
		ID: "local-1", Email: "e@example.com", Username: "e", IsActive: true,
	}).UniqueOn("email")
	a := NewAuthenticator(stubVerifier{id: &Identity{UID: "remote-1", Email: "e@example.com"}}, users, zap.NewNop())

	for i := 0; i < 2; i++ {
		s, err := a.Authenticate(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, "remote-1", s.ID)
		assert.Equal(t, "e@example.com", s.Email)
	}

	u, err := users.Get(context.Background(), "remote-1")
	require.NoError(t, err)
	assert.Equal(t, "remote-1@identity.local", u.Email)
	assert.Equal(t, "e", u.Username)

	owner, err := users.Get(context.Background(), "local-1")
	require.NoError(t, err)
	assert.Equal(t, "e@example.com", owner.Email)
	assert.Equal(t, 2, users.Len())
}
