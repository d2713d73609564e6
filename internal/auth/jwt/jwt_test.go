package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/nkoval/backoffice/internal/auth"
	"github.com/nkoval/backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserGetter struct {
	users map[int64]*domain.User
}

func (m *mockUserGetter) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, auth.ErrUserNotFound
}

func newTestAuthenticator(users ...*domain.User) *Authenticator {
	getter := &mockUserGetter{users: make(map[int64]*domain.User)}
	for _, u := range users {
		getter.users[u.ID] = u
	}
	return NewAuthenticator(Config{
		SecretKey:           "test-secret",
		AccessTokenDuration: time.Hour,
	}, getter)
}

func adminUser() *domain.User {
	roleID := domain.RoleIDAdmin
	return &domain.User{
		ID:     1,
		Email:  "admin@example.com",
		RoleID: &roleID,
		Role:   &domain.Role{ID: domain.RoleIDAdmin, Name: "admin"},
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	user := adminUser()
	a := newTestAuthenticator(user)

	token, err := a.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, role, err := a.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, domain.RoleAdmin, role)
}

func TestValidateToken_Expired(t *testing.T) {
	user := adminUser()
	a := newTestAuthenticator(user)

	token, err := a.GenerateToken(context.Background(), user)
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, _, err = a.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	user := adminUser()
	a := newTestAuthenticator(user)

	token, err := a.GenerateToken(context.Background(), user)
	require.NoError(t, err)

	other := NewAuthenticator(Config{
		SecretKey:           "different-secret",
		AccessTokenDuration: time.Hour,
	}, &mockUserGetter{users: map[int64]*domain.User{user.ID: user}})

	_, _, err = other.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	a := newTestAuthenticator()

	_, _, err := a.ValidateToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateToken_DeletedUser(t *testing.T) {
	user := adminUser()
	a := newTestAuthenticator(user)

	token, err := a.GenerateToken(context.Background(), user)
	require.NoError(t, err)

	delete(a.users.(*mockUserGetter).users, user.ID)

	_, _, err = a.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateToken_RoleResolvedFresh(t *testing.T) {
	roleID := domain.RoleIDUser
	user := &domain.User{
		ID:     7,
		Email:  "user@example.com",
		RoleID: &roleID,
		Role:   &domain.Role{ID: domain.RoleIDUser, Name: "user"},
	}
	a := newTestAuthenticator(user)

	token, err := a.GenerateToken(context.Background(), user)
	require.NoError(t, err)

	// Promote the user after the token was issued; validation must see the
	// new role without reissuing the token.
	adminID := domain.RoleIDAdmin
	user.RoleID = &adminID
	user.Role = &domain.Role{ID: domain.RoleIDAdmin, Name: "admin"}

	_, role, err := a.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role)
}
