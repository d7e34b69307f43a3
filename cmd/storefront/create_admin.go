package main

import (
	"errors"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const adminPasswordEnv = "STOREFRONT_ADMIN_PASSWORD"

func newCreateAdminCmd() *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long:  "Create an administrator account. The password is read from " + adminPasswordEnv + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv(adminPasswordEnv)
			if password == "" {
				return errors.New(adminPasswordEnv + " is required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			svc, err := newServices(cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			c, err := svc.auth.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				log.Error().Err(err).Str("email", email).Msg("create admin failed")
				return err
			}
			log.Info().Int64("client_id", c.ID).Str("email", c.Email).Msg("admin created")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
