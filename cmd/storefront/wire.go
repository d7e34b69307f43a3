package main

import (
	"context"
	"fmt"
	"io"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	adapthttp "storefront/internal/adapter/http"
	"storefront/internal/adapter/memory"
	"storefront/internal/adapter/postgres"
	"storefront/internal/adapter/redisstore"
	"storefront/internal/adapter/token"
	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

type store interface {
	domain.ClientRepository
	domain.ProductRepository
	domain.OrderStore
	adapthttp.Pinger
	io.Closer
}

type cache interface {
	domain.ListCache
	domain.AttemptCounter
	adapthttp.Pinger
	io.Closer
}

type services struct {
	store    store
	cache    cache
	auth     *app.AuthService
	clients  *app.ClientService
	products *app.ProductService
	orders   *app.OrderService
}

func (s *services) Close() {
	if err := s.cache.Close(); err != nil {
		log.Warn().Err(err).Msg("close cache")
	}
	if err := s.store.Close(); err != nil {
		log.Warn().Err(err).Msg("close store")
	}
}

func openBackends(cfg *config.Config) (store, cache, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn().Msg("using in-memory storage; data is lost on exit")
		return memory.New(), memory.NewCache(), nil
	}

	db, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	rs, err := redisstore.Open(cfg.Redis.URL)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("open redis: %w", err)
	}
	return db, rs, nil
}

func newServices(cfg *config.Config) (*services, error) {
	st, c, err := openBackends(cfg)
	if err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(token.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	})
	if err != nil {
		_ = c.Close()
		_ = st.Close()
		return nil, err
	}

	clients := app.NewClientService(st, c, cfg.Cache.ClientsTTL, logging.NewLogger("clients"))
	limiter := app.NewLoginLimiter(c, cfg.Login.MaxAttempts, cfg.Login.Window, logging.NewLogger("limiter"))
	products := app.NewProductService(st, c, cfg.Cache.ProductsTTL, logging.NewLogger("products"))

	return &services{
		store:    st,
		cache:    c,
		auth:     app.NewAuthService(clients, limiter, issuer, logging.NewLogger("auth")),
		clients:  clients,
		products: products,
		orders:   app.NewOrderService(st, c, cfg.Cache.OrdersTTL, products, logging.NewLogger("orders")),
	}, nil
}

func newOIDC(ctx context.Context, cfg config.OIDC) (adapthttp.OIDCConfig, error) {
	if !cfg.Enabled() {
		return adapthttp.OIDCConfig{}, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return adapthttp.OIDCConfig{}, fmt.Errorf("oidc provider: %w", err)
	}
	return adapthttp.OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}, nil
}
