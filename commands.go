package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/db"
	"github.com/farmerhub/marketplace-api/internal/mailer"
	"github.com/farmerhub/marketplace-api/internal/services"
	"github.com/farmerhub/marketplace-api/pkg/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "farmerhub",
		Short:        "FarmerHub marketplace API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(config.LoadConfig())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newPromoteAdminCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(config.LoadConfig())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema.sql to the MySQL database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			database, err := db.NewDB(cfg.GetDSN(), cfg.OTELServiceName)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			if err := applySchema(cmd.Context(), database, cfg.SchemaPath); err != nil {
				return err
			}
			log.Printf("[DB] Schema %s applied", cfg.SchemaPath)
			return nil
		},
	}
}

func newPromoteAdminCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "promote-admin",
		Short: "Give an existing account the admin role",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			ctx := cmd.Context()

			appMetrics, shutdown := initMetrics(ctx, cfg)
			defer shutdown()

			stores, closeStores, err := openStores(ctx, cfg, appMetrics)
			if err != nil {
				return err
			}
			defer closeStores()

			accounts := services.NewAccountService(stores.Accounts,
				auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
				mailer.New(mailer.LogSender{}, appMetrics), cfg.ClientURL, appMetrics)
			account, err := accounts.PromoteToAdmin(ctx, email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %d (%s) is now an admin\n", account.ID, account.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the account to promote")
	cmd.MarkFlagRequired("email")
	return cmd
}
