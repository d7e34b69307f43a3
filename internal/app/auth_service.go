// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

// Token is an issued access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Registration is the input for self-service sign-up.
type Registration struct {
	Name     string
	Email    string
	Phone    *string
	Password string
}

// Identity is a user asserted by an external identity provider.
type Identity struct {
	Email         string
	Name          string
	EmailVerified bool
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	clients *ClientService
	limiter *LoginLimiter
	tokens  domain.TokenIssuer
	log     zerolog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(clients *ClientService, limiter *LoginLimiter, tokens domain.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		clients: clients,
		limiter: limiter,
		tokens:  tokens,
		log:     log,
	}
}

// Register creates a client-role account with a password.
func (s *AuthService) Register(ctx context.Context, in Registration) (*domain.Client, error) {
	return s.createAccount(ctx, in, domain.RoleClient)
}

// CreateAdmin creates an admin account with a password.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*domain.Client, error) {
	return s.createAccount(ctx, Registration{Name: name, Email: email, Password: password}, domain.RoleAdmin)
}

func (s *AuthService) createAccount(ctx context.Context, in Registration, role domain.Role) (*domain.Client, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, domain.ErrMissingRegistration
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	c := &domain.Client{
		Name:         name,
		Email:        email,
		Phone:        normalizePhone(in.Phone),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.clients.insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Login verifies credentials and issues a token. Once an email has
// reached the failure threshold, Login refuses without checking the
// password and without counting the attempt. Only failed verifications
// stay counted.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Token, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrMissingCredentials
	}

	if !s.limiter.Acquire(ctx, email) {
		metrics.LoginBlocked.Inc()
		s.log.Warn().Str("email", email).Msg("login blocked")
		return nil, domain.ErrTooManyAttempts
	}

	c, err := s.verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginFailures.Inc()
			s.log.Warn().Str("email", email).Msg("login failed")
		} else {
			s.limiter.Release(ctx, email)
		}
		return nil, err
	}

	s.limiter.Reset(ctx, email)
	s.log.Info().Int64("client_id", c.ID).Msg("login succeeded")
	return s.issue(c)
}

// LoginWithIdentity issues a token for an identity provider login,
// provisioning a client account on first use. An unverified email is
// never linked to an account that has a password or the admin role.
func (s *AuthService) LoginWithIdentity(ctx context.Context, id Identity) (*Token, error) {
	email := domain.NormalizeEmail(id.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	c, err := s.clients.repo.GetClientByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	if c == nil {
		name := strings.TrimSpace(id.Name)
		if name == "" {
			name = email
		}
		c = &domain.Client{Name: name, Email: email, Role: domain.RoleClient}
		if err := s.clients.insert(ctx, c); err != nil {
			if !errors.Is(err, domain.ErrEmailExists) {
				return nil, err
			}
			// Lost a race with a concurrent first login.
			c, err = s.clients.repo.GetClientByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("lookup client: %w", err)
			}
			if c == nil {
				return nil, domain.ErrInvalidCredentials
			}
		}
	}

	if !id.EmailVerified && (c.PasswordHash != "" || c.IsAdmin()) {
		s.log.Warn().Int64("client_id", c.ID).Msg("sso login refused, email not verified")
		return nil, domain.ErrUnverifiedIdentity
	}

	s.log.Info().Int64("client_id", c.ID).Msg("sso login succeeded")
	return s.issue(c)
}

// CurrentRole returns the stored role of the client behind claims. A
// client deleted since the token was issued is unauthenticated.
func (s *AuthService) CurrentRole(ctx context.Context, claims *domain.Claims) (domain.Role, error) {
	c, err := s.clients.repo.GetClientByID(ctx, claims.ClientID)
	if err != nil {
		return "", fmt.Errorf("lookup client: %w", err)
	}
	if c == nil {
		return "", domain.ErrUnauthenticated
	}
	if c.Role != claims.Role {
		s.log.Info().Int64("client_id", c.ID).Str("token_role", string(claims.Role)).Str("role", string(c.Role)).Msg("token role is stale")
	}
	return c.Role, nil
}

// Authenticate verifies an access token.
func (s *AuthService) Authenticate(token string) (*domain.Claims, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.tokens.Verify(token)
}

// verify checks password for email. Unknown emails and accounts without
// a password hash cost the same bcrypt comparison as a wrong password.
func (s *AuthService) verify(ctx context.Context, email, password string) (*domain.Client, error) {
	c, err := s.clients.repo.GetClientByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	hash := ""
	if c != nil {
		hash = c.PasswordHash
	}
	if !checkPassword(hash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return c, nil
}

func (s *AuthService) issue(c *domain.Client) (*Token, error) {
	tok, exp, err := s.tokens.Issue(c)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Token{AccessToken: tok, ExpiresAt: exp}, nil
}
