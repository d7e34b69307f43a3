package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

func newTestAuth(repo *mockClientRepo, counter *fakeCounter) (*AuthService, *fakeCache, *fakeIssuer) {
	cache := newFakeCache()
	issuer := &fakeIssuer{}
	clients := NewClientService(repo, cache, DefaultCacheTTLs().Clients, zerolog.Nop())
	limiter := NewLoginLimiter(counter, 5, DefaultLoginWindow, zerolog.Nop())
	return NewAuthService(clients, limiter, issuer, zerolog.Nop()), cache, issuer
}

func clientWithPassword(t *testing.T, password string) *domain.Client {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &domain.Client{ID: 7, Name: "Alice", Email: "alice@example.com", PasswordHash: string(hash), Role: domain.RoleClient}
}

func TestAuthService_Register_Success(t *testing.T) {
	ctx := context.Background()
	var created *domain.Client
	repo := &mockClientRepo{
		createFn: func(ctx context.Context, c *domain.Client) error {
			c.ID = 3
			created = c
			return nil
		},
	}
	svc, cache, _ := newTestAuth(repo, newFakeCounter())

	c, err := svc.Register(ctx, Registration{Name: " Alice ", Email: "Alice@Example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.ID != 3 || created == nil {
		t.Fatalf("expected created client with id 3, got %+v", c)
	}
	if c.Name != "Alice" || c.Email != "alice@example.com" {
		t.Errorf("expected normalized name and email, got %q %q", c.Name, c.Email)
	}
	if c.Role != domain.RoleClient {
		t.Errorf("expected client role, got %s", c.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte("password123")) != nil {
		t.Error("stored hash does not match password")
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != KeyClients {
		t.Errorf("expected clients invalidation, got %v", cache.invalidated)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   Registration
		want error
	}{
		{"missing name", Registration{Email: "a@example.com", Password: "password123"}, domain.ErrMissingRegistration},
		{"missing email", Registration{Name: "A", Password: "password123"}, domain.ErrMissingRegistration},
		{"missing password", Registration{Name: "A", Email: "a@example.com"}, domain.ErrMissingRegistration},
		{"bad email", Registration{Name: "A", Email: "not-an-email", Password: "password123"}, domain.ErrInvalidEmail},
		{"short password", Registration{Name: "A", Email: "a@example.com", Password: "short"}, domain.ErrPasswordTooShort},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockClientRepo{
				createFn: func(ctx context.Context, c *domain.Client) error {
					t.Error("create should not be called")
					return nil
				},
			}
			svc, _, _ := newTestAuth(repo, newFakeCounter())
			_, err := svc.Register(context.Background(), tc.in)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := &mockClientRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
			return &domain.Client{ID: 1, Email: email}, nil
		},
	}
	svc, cache, _ := newTestAuth(repo, newFakeCounter())

	_, err := svc.Register(context.Background(), Registration{Name: "A", Email: "a@example.com", Password: "password123"})
	if !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	if len(cache.invalidated) != 0 {
		t.Errorf("failed registration must not invalidate, got %v", cache.invalidated)
	}
}

func TestAuthService_Register_UniqueViolationRace(t *testing.T) {
	repo := &mockClientRepo{
		createFn: func(ctx context.Context, c *domain.Client) error {
			return domain.ErrEmailExists.Wrap(errors.New("duplicate key value"))
		},
	}
	svc, _, _ := newTestAuth(repo, newFakeCounter())

	_, err := svc.Register(context.Background(), Registration{Name: "A", Email: "a@example.com", Password: "password123"})
	if !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestAuthService_CreateAdmin(t *testing.T) {
	svc, _, _ := newTestAuth(&mockClientRepo{}, newFakeCounter())

	c, err := svc.CreateAdmin(context.Background(), "Root", "root@example.com", "password123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Role != domain.RoleAdmin {
		t.Errorf("expected admin role, got %s", c.Role)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	client := clientWithPassword(t, "password123")
	repo := &mockClientRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
			if email != "alice@example.com" {
				t.Errorf("expected normalized email, got %q", email)
			}
			return client, nil
		},
	}
	counter := newFakeCounter()
	counter.counts[attemptKey("alice@example.com")] = 3
	svc, _, issuer := newTestAuth(repo, counter)

	tok, err := svc.Login(ctx, "ALICE@example.com", "password123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tok.AccessToken != "token-alice@example.com" {
		t.Errorf("unexpected token %q", tok.AccessToken)
	}
	if issuer.issued != 1 {
		t.Errorf("expected one token issued, got %d", issuer.issued)
	}
	if _, ok := counter.counts[attemptKey("alice@example.com")]; ok {
		t.Error("expected attempt counter to be reset after success")
	}
}

func TestAuthService_Login_MissingFields(t *testing.T) {
	svc, _, _ := newTestAuth(&mockClientRepo{}, newFakeCounter())
	if _, err := svc.Login(context.Background(), "", "x"); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "a@example.com", ""); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	client := clientWithPassword(t, "password123")
	repo := &mockClientRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
			return client, nil
		},
	}
	counter := newFakeCounter()
	svc, _, _ := newTestAuth(repo, counter)
	before := testutil.ToFloat64(metrics.LoginFailures)

	_, err := svc.Login(context.Background(), "alice@example.com", "wrongpass")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := counter.counts[attemptKey("alice@example.com")]; got != 1 {
		t.Errorf("expected 1 recorded failure, got %d", got)
	}
	if got := testutil.ToFloat64(metrics.LoginFailures) - before; got != 1 {
		t.Errorf("expected login failure metric to grow by 1, got %v", got)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	counter := newFakeCounter()
	svc, _, _ := newTestAuth(&mockClientRepo{}, counter)

	_, err := svc.Login(context.Background(), "ghost@example.com", "password123")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := counter.counts[attemptKey("ghost@example.com")]; got != 1 {
		t.Errorf("unknown emails count as failures too, got %d", got)
	}
}

func TestAuthService_Login_PasswordlessAccount(t *testing.T) {
	repo := &mockClientRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
			return &domain.Client{ID: 2, Email: email, Role: domain.RoleClient}, nil
		},
	}
	svc, _, _ := newTestAuth(repo, newFakeCounter())

	_, err := svc.Login(context.Background(), "sso@example.com", "anything1")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_BlockedAfterFiveFailures(t *testing.T) {
	ctx := context.Background()
	client := clientWithPassword(t, "password123")
	lookups := 0
	repo := &mockClientRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
			lookups++
			return client, nil
		},
	}
	counter := newFakeCounter()
	svc, _, _ := newTestAuth(repo, counter)

	for i := 0; i < 5; i++ {
		if _, err := svc.Login(ctx, client.Email, "wrongpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	before := testutil.ToFloat64(metrics.LoginBlocked)

	_, err := svc.Login(ctx, client.Email, "password123")
	if !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if lookups != 5 {
		t.Errorf("blocked attempt must not verify credentials, lookups = %d", lookups)
	}
	if got := counter.counts[attemptKey(client.Email)]; got != 5 {
		t.Errorf("blocked attempt must not increment, count = %d", got)
	}
	if got := testutil.ToFloat64(metrics.LoginBlocked) - before; got != 1 {
		t.Errorf("expected blocked metric to grow by 1, got %v", got)
	}
}

func TestAuthService_Login_ConcurrentBurstAtThreshold(t *testing.T) {
	client := clientWithPassword(t, "password123")
	var lookups atomic.Int32
	repo := &mockClientRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
			lookups.Add(1)
			return client, nil
		},
	}
	counter := newFakeCounter()
	counter.counts[attemptKey(client.Email)] = 4
	svc, _, _ := newTestAuth(repo, counter)

	var wg sync.WaitGroup
	var blocked atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Login(context.Background(), client.Email, "wrongpass"); errors.Is(err, domain.ErrTooManyAttempts) {
				blocked.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := lookups.Load(); n != 1 {
		t.Errorf("only one request may verify past the last free attempt, got %d", n)
	}
	if n := blocked.Load(); n != 9 {
		t.Errorf("expected 9 blocked requests, got %d", n)
	}
	if got := counter.counts[attemptKey(client.Email)]; got != 5 {
		t.Errorf("expected count to stop at 5, got %d", got)
	}
}

func TestAuthService_Login_CounterUnavailable(t *testing.T) {
	client := clientWithPassword(t, "password123")
	repo := &mockClientRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
			return client, nil
		},
	}
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")
	svc, _, _ := newTestAuth(repo, counter)

	if _, err := svc.Login(context.Background(), client.Email, "password123"); err != nil {
		t.Fatalf("limiter should fail open, got %v", err)
	}
}

func TestAuthService_Login_StorageError(t *testing.T) {
	repo := &mockClientRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
			return nil, errors.New("db down")
		},
	}
	counter := newFakeCounter()
	svc, _, _ := newTestAuth(repo, counter)

	_, err := svc.Login(context.Background(), "alice@example.com", "password123")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(counter.counts) != 0 {
		t.Error("storage errors must not count as failed logins")
	}
}

func TestAuthService_LoginWithIdentity_Provisions(t *testing.T) {
	var created *domain.Client
	repo := &mockClientRepo{
		createFn: func(ctx context.Context, c *domain.Client) error {
			c.ID = 9
			created = c
			return nil
		},
	}
	svc, _, issuer := newTestAuth(repo, newFakeCounter())

	tok, err := svc.LoginWithIdentity(context.Background(), Identity{Email: "New@Example.com"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created == nil || created.PasswordHash != "" || created.Role != domain.RoleClient {
		t.Fatalf("expected passwordless client account, got %+v", created)
	}
	if created.Name != "new@example.com" {
		t.Errorf("expected email as fallback name, got %q", created.Name)
	}
	if tok.AccessToken == "" || issuer.issued != 1 {
		t.Error("expected a token to be issued")
	}
}

func TestAuthService_LoginWithIdentity_ExistingAfterRace(t *testing.T) {
	calls := 0
	repo := &mockClientRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
			calls++
			// First two lookups (login, duplicate check) miss; the retry after the
			// unique violation finds the row.
			if calls < 3 {
				return nil, nil
			}
			return &domain.Client{ID: 4, Email: email, Role: domain.RoleAdmin}, nil
		},
		createFn: func(ctx context.Context, c *domain.Client) error {
			return domain.ErrEmailExists
		},
	}
	svc, _, _ := newTestAuth(repo, newFakeCounter())

	tok, err := svc.LoginWithIdentity(context.Background(), Identity{Email: "race@example.com", Name: "Race", EmailVerified: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tok.AccessToken != "token-race@example.com" {
		t.Errorf("unexpected token %q", tok.AccessToken)
	}
}

func TestAuthService_LoginWithIdentity_UnverifiedEmail(t *testing.T) {
	tests := []struct {
		name     string
		existing *domain.Client
		verified bool
		wantErr  error
	}{
		{"admin unverified", &domain.Client{ID: 1, Email: "boss@example.com", Role: domain.RoleAdmin}, false, domain.ErrUnverifiedIdentity},
		{"password account unverified", &domain.Client{ID: 2, Email: "boss@example.com", PasswordHash: "$2a$hash", Role: domain.RoleClient}, false, domain.ErrUnverifiedIdentity},
		{"admin verified", &domain.Client{ID: 1, Email: "boss@example.com", Role: domain.RoleAdmin}, true, nil},
		{"passwordless client unverified", &domain.Client{ID: 3, Email: "boss@example.com", Role: domain.RoleClient}, false, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockClientRepo{
				getByEmailFn: func(ctx context.Context, email string) (*domain.Client, error) {
					c := *tc.existing
					return &c, nil
				},
			}
			svc, _, issuer := newTestAuth(repo, newFakeCounter())

			_, err := svc.LoginWithIdentity(context.Background(), Identity{Email: "boss@example.com", EmailVerified: tc.verified})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil && issuer.issued != 0 {
				t.Error("no token may be issued for a refused identity")
			}
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	svc, _, _ := newTestAuth(&mockClientRepo{}, newFakeCounter())

	if _, err := svc.Authenticate(""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for empty token, got %v", err)
	}
	claims, err := svc.Authenticate("token-admin@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if claims.Role != domain.RoleAdmin {
		t.Errorf("expected admin claims, got %+v", claims)
	}
}

func TestAuthService_CurrentRole(t *testing.T) {
	stored := &domain.Client{ID: 7, Email: "ada@example.com", Role: domain.RoleClient}
	repo := &mockClientRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.Client, error) {
			switch id {
			case 7:
				return stored, nil
			case 8:
				return nil, errors.New("connection reset")
			}
			return nil, nil
		},
	}
	svc, _, _ := newTestAuth(repo, newFakeCounter())
	ctx := context.Background()

	role, err := svc.CurrentRole(ctx, &domain.Claims{ClientID: 7, Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != domain.RoleClient {
		t.Errorf("expected stored role %q, got %q", domain.RoleClient, role)
	}

	if _, err := svc.CurrentRole(ctx, &domain.Claims{ClientID: 99}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for a missing client, got %v", err)
	}
	if _, err := svc.CurrentRole(ctx, &domain.Claims{ClientID: 8}); err == nil || domain.KindOf(err) == domain.KindAuth {
		t.Errorf("expected a storage error, got %v", err)
	}
}
