package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskhub/internal/service"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			version, err := store.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("schema_version", version).Msg("migrations up to date")
			return nil
		},
	}
}

func bootstrapAdminCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the first ADMIN account",
		Long: `Creates an ADMIN user when no user exists yet. Flags fall back to
TASKHUB_BOOTSTRAP_ADMIN_EMAIL, TASKHUB_BOOTSTRAP_ADMIN_PASSWORD and
TASKHUB_BOOTSTRAP_ADMIN_NAME.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if email == "" {
				email = cfg.Bootstrap.AdminEmail
			}
			if password == "" {
				password = cfg.Bootstrap.AdminPassword
			}
			if name == "" {
				name = cfg.Bootstrap.AdminName
			}
			if email == "" || password == "" {
				return errors.New("bootstrap-admin: email and password are required")
			}

			u, err := service.NewUserService(store).Bootstrap(cmd.Context(), email, password, name)
			if err != nil {
				return fmt.Errorf("bootstrap-admin: %w", err)
			}
			log.Info().Stringer("user_id", u.ID).Str("email", u.Email).Msg("admin created")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&name, "name", "", "admin display name")
	return cmd
}
