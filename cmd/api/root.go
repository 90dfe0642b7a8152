package main

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/config"
	"github.com/Czechuuuu/szbi/internal/database"
	"github.com/Czechuuuu/szbi/internal/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "szbi",
		Short:         "Information security management system records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newCreateSuperuserCmd(),
		newResetPasswordCmd(),
		newSeedPermissionsCmd(),
	)
	return cmd
}

// bootstrap loads configuration, points the logger at the rotating log file
// and opens the migrated database.
func bootstrap() (config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger.Init(cfg.Debug, logger.RotatingWriter(cfg.LogDir, "szbi.log"))

	db, err := database.Connect(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, db, nil
}
