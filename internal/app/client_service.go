package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
)

// ClientService manages client accounts and the cached client list.
type ClientService struct {
	repo domain.ClientRepository
	list *readThrough[domain.Client]
	log  zerolog.Logger
}

// NewClientService creates a ClientService whose list is cached for ttl.
func NewClientService(repo domain.ClientRepository, cache domain.ListCache, ttl time.Duration, log zerolog.Logger) *ClientService {
	return &ClientService{
		repo: repo,
		list: newReadThrough(cache, KeyClients, ttl, repo.ListClients, log),
		log:  log,
	}
}

// NewClient is the input for an administrator-created account. Password
// may be empty, in which case the account cannot log in with a password.
type NewClient struct {
	Name     string
	Email    string
	Phone    *string
	Password string
	Role     domain.Role
}

// List returns every client.
func (s *ClientService) List(ctx context.Context) ([]domain.Client, error) {
	return s.list.Get(ctx)
}

// Create adds a client on behalf of an administrator.
func (s *ClientService) Create(ctx context.Context, in NewClient) (*domain.Client, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, domain.ErrMissingClientFields
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleClient
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	c := &domain.Client{Name: name, Email: email, Phone: normalizePhone(in.Phone), Role: role}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		c.PasswordHash = hash
	}
	if err := s.insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetRole changes the role of client id.
func (s *ClientService) SetRole(ctx context.Context, id int64, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidRole
	}
	if err := s.repo.UpdateClientRole(ctx, id, role); err != nil {
		return err
	}
	s.list.Invalidate(ctx)
	s.log.Info().Int64("client_id", id).Str("role", string(role)).Msg("client role changed")
	return nil
}

// insert stores c after an early duplicate check. The unique constraint
// in the repository remains the authoritative guard.
func (s *ClientService) insert(ctx context.Context, c *domain.Client) error {
	existing, err := s.repo.GetClientByEmail(ctx, c.Email)
	if err != nil {
		return fmt.Errorf("lookup client: %w", err)
	}
	if existing != nil {
		return domain.ErrEmailExists
	}
	if err := s.repo.CreateClient(ctx, c); err != nil {
		return err
	}
	s.list.Invalidate(ctx)
	s.log.Info().Int64("client_id", c.ID).Str("role", string(c.Role)).Msg("client created")
	return nil
}

func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	p := strings.TrimSpace(*phone)
	if p == "" {
		return nil
	}
	return &p
}
