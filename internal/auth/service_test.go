package auth

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nkoval/backoffice/internal/domain"
	"github.com/nkoval/backoffice/internal/pkg/metrics"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	users  map[string]*domain.User
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[string]*domain.User)}
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	m.nextID++
	user.ID = m.nextID
	m.users[user.Email] = user
	return nil
}

func (m *mockRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

// addUser stores a user with a bcrypt hash of the given password.
func (m *mockRepository) addUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	m.nextID++
	user := &domain.User{
		ID:       m.nextID,
		Name:     "Test User",
		Email:    email,
		Password: string(hash),
	}
	m.users[email] = user
	return user
}

// mockAuthenticator implements Authenticator for testing.
type mockAuthenticator struct{}

func (m *mockAuthenticator) GenerateToken(_ context.Context, _ *domain.User) (string, error) {
	return "access-token", nil
}

func (m *mockAuthenticator) ValidateToken(_ context.Context, _ string) (int64, domain.RoleName, error) {
	return 0, "", nil
}

func basicHeader(email, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+password))
}

func newTestService(repo Repository) (*Service, *MemoryTicketStore) {
	tickets := NewMemoryTicketStore(time.Minute)
	return NewService(repo, tickets, &mockAuthenticator{}, 5*time.Minute), tickets
}

func TestInitSession_IssuesParseableTicket(t *testing.T) {
	service, tickets := newTestService(newMockRepository())

	start := time.Now()
	ticket, err := service.InitSession(context.Background())

	require.NoError(t, err)
	_, err = uuid.Parse(ticket.UUID)
	assert.NoError(t, err, "ticket uuid should be parseable")
	assert.WithinDuration(t, start.Add(5*time.Minute), ticket.ExpiresAt, time.Second)
	assert.Equal(t, 1, tickets.Len())
}

func TestInitSession_TicketsAreUnique(t *testing.T) {
	service, _ := newTestService(newMockRepository())

	first, err := service.InitSession(context.Background())
	require.NoError(t, err)
	second, err := service.InitSession(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.UUID, second.UUID)
}

func TestLogin_Succeeds(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(t, "user@example.com", "secret")
	service, _ := newTestService(repo)

	ticket, err := service.InitSession(context.Background())
	require.NoError(t, err)

	result, err := service.Login(context.Background(), ticket.UUID, basicHeader("user@example.com", "secret"))

	require.NoError(t, err)
	assert.Equal(t, "access-token", result.AccessToken)
	assert.Equal(t, "user@example.com", result.User.Email)
	assert.Empty(t, result.User.Password, "password hash must not leak")
}

func TestLogin_TicketIsSingleUse(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(t, "user@example.com", "secret")
	service, _ := newTestService(repo)

	ticket, err := service.InitSession(context.Background())
	require.NoError(t, err)

	_, err = service.Login(context.Background(), ticket.UUID, basicHeader("user@example.com", "secret"))
	require.NoError(t, err)

	_, err = service.Login(context.Background(), ticket.UUID, basicHeader("user@example.com", "secret"))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLogin_TicketConsumedOnFailedCredentials(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(t, "user@example.com", "secret")
	service, _ := newTestService(repo)

	ticket, err := service.InitSession(context.Background())
	require.NoError(t, err)

	_, err = service.Login(context.Background(), ticket.UUID, basicHeader("user@example.com", "wrong"))
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Correct credentials on the same ticket must fail: the failed attempt
	// already consumed it.
	_, err = service.Login(context.Background(), ticket.UUID, basicHeader("user@example.com", "secret"))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLogin_ExpiredTicket(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(t, "user@example.com", "secret")
	service, _ := newTestService(repo)

	ticket, err := service.InitSession(context.Background())
	require.NoError(t, err)

	service.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	consumedBefore := promtestutil.ToFloat64(metrics.SessionTickets.WithLabelValues("consumed"))
	expiredBefore := promtestutil.ToFloat64(metrics.SessionTickets.WithLabelValues("expired"))

	_, err = service.Login(context.Background(), ticket.UUID, basicHeader("user@example.com", "secret"))
	assert.ErrorIs(t, err, ErrInvalidSession)

	// An expired ticket counts as expired, not consumed.
	assert.Equal(t, expiredBefore+1,
		promtestutil.ToFloat64(metrics.SessionTickets.WithLabelValues("expired")))
	assert.Equal(t, consumedBefore,
		promtestutil.ToFloat64(metrics.SessionTickets.WithLabelValues("consumed")))
}

func TestLogin_UnknownTicket(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(t, "user@example.com", "secret")
	service, _ := newTestService(repo)

	_, err := service.Login(context.Background(), uuid.NewString(), basicHeader("user@example.com", "secret"))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLogin_MalformedTicket(t *testing.T) {
	service, _ := newTestService(newMockRepository())

	for _, ticketID := range []string{"", "not-a-uuid", "12345"} {
		_, err := service.Login(context.Background(), ticketID, basicHeader("user@example.com", "secret"))
		assert.ErrorIs(t, err, ErrInvalidSession)
	}
}

func TestLogin_MalformedHeaderReportsInvalidCredentials(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(t, "user@example.com", "secret")
	service, _ := newTestService(repo)

	ticket, err := service.InitSession(context.Background())
	require.NoError(t, err)

	_, err = service.Login(context.Background(), ticket.UUID, "Bearer nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginBasic_Succeeds(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(t, "user@example.com", "secret")
	service, _ := newTestService(repo)

	result, err := service.LoginBasic(context.Background(), basicHeader("user@example.com", "secret"))

	require.NoError(t, err)
	assert.Equal(t, "access-token", result.AccessToken)
	assert.Empty(t, result.User.Password)
}

func TestLoginBasic_MalformedHeader(t *testing.T) {
	service, _ := newTestService(newMockRepository())

	for _, header := range []string{"", "Bearer token", "Basic !!!not-base64!!!"} {
		_, err := service.LoginBasic(context.Background(), header)
		assert.ErrorIs(t, err, ErrMalformedAuthHeader, "header %q", header)
	}
}

func TestLoginBasic_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(t, "user@example.com", "secret")
	service, _ := newTestService(repo)

	_, wrongPassErr := service.LoginBasic(context.Background(), basicHeader("user@example.com", "wrong"))
	_, unknownErr := service.LoginBasic(context.Background(), basicHeader("nobody@example.com", "secret"))

	assert.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())
}

func TestLoginBasic_EmptyCredentialParts(t *testing.T) {
	service, _ := newTestService(newMockRepository())

	for _, payload := range []string{"no-colon", ":password", "email:", ":"} {
		header := "Basic " + base64.StdEncoding.EncodeToString([]byte(payload))
		_, err := service.LoginBasic(context.Background(), header)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "payload %q", payload)
	}
}

func TestRegister_Succeeds(t *testing.T) {
	repo := newMockRepository()
	service, _ := newTestService(repo)

	result, err := service.Register(context.Background(), RegisterInput{
		Name:     "New User",
		Email:    "new@example.com",
		Password: "secret",
	})

	require.NoError(t, err)
	assert.Equal(t, "access-token", result.AccessToken)
	assert.Empty(t, result.User.Password)

	stored := repo.users["new@example.com"]
	require.NotNil(t, stored)
	require.NotNil(t, stored.RoleID)
	assert.Equal(t, domain.DefaultRoleID, *stored.RoleID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret")))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(t, "taken@example.com", "secret")
	service, _ := newTestService(repo)

	_, err := service.Register(context.Background(), RegisterInput{
		Name:     "Another",
		Email:    "taken@example.com",
		Password: "secret",
	})

	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestProfile_StripsPassword(t *testing.T) {
	repo := newMockRepository()
	user := repo.addUser(t, "user@example.com", "secret")
	service, _ := newTestService(repo)

	profile, err := service.Profile(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Empty(t, profile.Password)
	assert.NotEmpty(t, repo.users["user@example.com"].Password, "stored hash must survive")
}

func TestProfile_UnknownUser(t *testing.T) {
	service, _ := newTestService(newMockRepository())

	_, err := service.Profile(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
