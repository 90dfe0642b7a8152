package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Czechuuuu/szbi/internal/logger"
	"github.com/Czechuuuu/szbi/internal/metrics"
	"github.com/Czechuuuu/szbi/internal/server"
	"github.com/Czechuuuu/szbi/internal/services"
	"github.com/Czechuuuu/szbi/internal/version"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			log := logger.Component("server")
			if cfg.JWTSecretDerived {
				log.Warn("SZBI_JWT_SECRET not set, using a random secret; sessions end on restart")
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics.Register(registry)

			srv, err := server.New(db, cfg, registry)
			if err != nil {
				return err
			}
			log.WithField("port", cfg.HTTPPort).Infof("starting %s %s", version.Name, version.Full())
			return srv.Run(cmd.Context())
		},
	}
}

func newCreateSuperuserCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-superuser <email> <password>",
		Short: "Create an account that passes every permission check",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			auth := services.NewAuthService(db, cfg, services.NewActivityService(db, cfg.ActivityPageSize))
			user, err := auth.CreateSuperuser(args[0], args[1], name)
			if err != nil {
				return fmt.Errorf("create superuser: %w", err)
			}
			logger.Component("cli").WithField("user_id", user.ID).Infof("superuser %s created", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	return cmd
}

func newResetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email> <new-password>",
		Short: "Set a new password and unlock the account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			auth := services.NewAuthService(db, cfg, services.NewActivityService(db, cfg.ActivityPageSize))
			if err := auth.ResetPassword(args[0], args[1]); err != nil {
				return fmt.Errorf("reset password: %w", err)
			}
			logger.Component("cli").Infof("password updated for %s", args[0])
			return nil
		},
	}
}

func newSeedPermissionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-permissions",
		Short: "Create the built-in permission catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			perms := services.NewPermissionService(db, services.NewActivityService(db, cfg.ActivityPageSize))
			n, err := perms.SeedSystemPermissions(services.SystemActor())
			if err != nil {
				return fmt.Errorf("seed permissions: %w", err)
			}
			logger.Component("cli").Infof("created %d permissions", n)
			return nil
		},
	}
}
