// Package auth implements the two-phase login protocol: a one-time session
// ticket issued by InitSession is exchanged together with Basic credentials
// for a signed access token. A ticket-less LoginBasic path shares the same
// credential verification and token issuance.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nkoval/backoffice/internal/domain"
	"github.com/nkoval/backoffice/internal/pkg/metrics"
	"golang.org/x/crypto/bcrypt"
)

const basicScheme = "Basic "

// Repository defines user storage operations needed by the auth service.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// Authenticator issues and validates access tokens.
type Authenticator interface {
	GenerateToken(ctx context.Context, user *domain.User) (string, error)
	ValidateToken(ctx context.Context, token string) (userID int64, role domain.RoleName, err error)
}

// Service implements the login protocol.
type Service struct {
	repo      Repository
	tickets   TicketStore
	auth      Authenticator
	ticketTTL time.Duration
	now       func() time.Time
}

// NewService creates a new auth service.
func NewService(repo Repository, tickets TicketStore, auth Authenticator, ticketTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		tickets:   tickets,
		auth:      auth,
		ticketTTL: ticketTTL,
		now:       time.Now,
	}
}

// SessionTicket is a one-time login ticket.
type SessionTicket struct {
	UUID      string    `json:"uuid"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginResult is the outcome of a successful authentication.
// Login and LoginBasic produce identical shapes.
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

// RegisterInput holds data for registering a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// InitSession issues a fresh one-time ticket valid for the configured TTL.
func (s *Service) InitSession(ctx context.Context) (*SessionTicket, error) {
	ticket := &SessionTicket{
		UUID:      uuid.NewString(),
		ExpiresAt: s.now().Add(s.ticketTTL),
	}

	if err := s.tickets.Put(ctx, ticket.UUID, ticket.ExpiresAt); err != nil {
		return nil, fmt.Errorf("store session ticket: %w", err)
	}

	metrics.SessionTickets.WithLabelValues("issued").Inc()
	return ticket, nil
}

// Register creates a new user with the default role and returns an access
// token alongside the sanitized user.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	existing, err := s.repo.GetUserByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	roleID := domain.DefaultRoleID
	user := &domain.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hash),
		RoleID:   &roleID,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.auth.GenerateToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &LoginResult{AccessToken: token, User: sanitize(user)}, nil
}

// Login validates and consumes the one-time ticket, then verifies the Basic
// credentials. The ticket is removed on first presentation regardless of
// whether the credential check succeeds, so a captured ticket cannot be
// replayed after a failed attempt.
func (s *Service) Login(ctx context.Context, ticketID, authHeader string) (*LoginResult, error) {
	if ticketID == "" {
		return nil, ErrInvalidSession
	}
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, ErrInvalidSession
	}

	expiresAt, ok, err := s.tickets.Take(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("take session ticket: %w", err)
	}
	if !ok {
		metrics.LoginAttempts.WithLabelValues("invalid_session").Inc()
		return nil, ErrInvalidSession
	}
	if s.now().After(expiresAt) {
		metrics.SessionTickets.WithLabelValues("expired").Inc()
		metrics.LoginAttempts.WithLabelValues("invalid_session").Inc()
		return nil, ErrInvalidSession
	}
	// Counted only past the expiry check, so consumed and expired partition
	// the taken tickets.
	metrics.SessionTickets.WithLabelValues("consumed").Inc()

	result, err := s.authenticateBasic(ctx, authHeader)
	if err != nil {
		// On the ticket path a malformed header is just a failed credential
		// exchange; only the ticket-less path reports it as a client error.
		if errors.Is(err, ErrMalformedAuthHeader) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return result, nil
}

// LoginBasic authenticates Basic credentials without a session ticket.
// It trades the ticket path's anti-replay protection for simplicity.
func (s *Service) LoginBasic(ctx context.Context, authHeader string) (*LoginResult, error) {
	return s.authenticateBasic(ctx, authHeader)
}

// authenticateBasic is the shared credential verification and token issuance
// used by both login paths. User lookup failures and password mismatches
// collapse into the same error so callers cannot enumerate accounts.
func (s *Service) authenticateBasic(ctx context.Context, authHeader string) (*LoginResult, error) {
	if !strings.HasPrefix(authHeader, basicScheme) {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrMalformedAuthHeader
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, basicScheme))
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrMalformedAuthHeader
	}

	email, password, found := strings.Cut(string(payload), ":")
	if !found || email == "" || password == "" {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	token, err := s.auth.GenerateToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return &LoginResult{AccessToken: token, User: sanitize(user)}, nil
}

// Profile returns the user for the given id without the password hash.
func (s *Service) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sanitize(user), nil
}

// ValidateToken implements httputil.TokenValidator.
func (s *Service) ValidateToken(ctx context.Context, token string) (int64, domain.RoleName, error) {
	return s.auth.ValidateToken(ctx, token)
}

// sanitize returns a copy of the user with the password hash stripped.
func sanitize(user *domain.User) *domain.User {
	u := *user
	u.Password = ""
	return &u
}
