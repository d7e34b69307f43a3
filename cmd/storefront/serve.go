package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	adapthttp "storefront/internal/adapter/http"
	"storefront/internal/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			svc, err := newServices(cfg)
			if err != nil {
				log.Error().Err(err).Msg("startup failed")
				return err
			}

			oidcCfg, err := newOIDC(cmd.Context(), cfg.OIDC)
			if err != nil {
				svc.Close()
				log.Error().Err(err).Msg("startup failed")
				return err
			}

			h := adapthttp.New(svc.auth, svc.clients, svc.products, svc.orders,
				adapthttp.WithOIDC(oidcCfg),
				adapthttp.WithHealthCheck("store", svc.store),
				adapthttp.WithHealthCheck("cache", svc.cache),
				adapthttp.WithRequestTimeout(cfg.HTTP.RequestTimeout),
				adapthttp.WithLogger(logging.NewLogger("http")),
			).Handler()

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           h,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				log.Info().Str("addr", cfg.HTTP.Addr).Str("storage", cfg.Storage).Msg("listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("http server failed")
				}
			}()

			wait := gfshutdown.GracefulShutdown(
				context.Background(),
				cfg.ShutdownTimeout,
				map[string]gfshutdown.Operation{
					"http": func(ctx context.Context) error {
						err := srv.Shutdown(ctx)
						svc.Close()
						return err
					},
				},
			)

			code := <-wait
			log.Info().Int("code", code).Msg("shutdown complete")
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
}
