package main

import (
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/aurameter/internal/database"
	"github.com/ZanzyTHEbar/aurameter/internal/monitoring"
	"github.com/spf13/cobra"
)

var (
	migrateVersion int
	migrateStatus  bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
	Long: `Migrate the configured store. Without --version the schema is moved to the
latest migration; --version 0 rolls every migration back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		monitoring.NewLoggerTo(os.Stderr, cfg.LogLevel).SetDefault()

		dsn, err := database.ResolveDSN(cfg.Backend(), cfg.DBDSN, cfg.DataDir)
		if err != nil {
			return err
		}

		if !migrateStatus {
			if err := database.Migrate(cfg.Backend(), dsn, migrateVersion); err != nil {
				return err
			}
		}

		version, dirty, err := database.SchemaVersion(cfg.Backend(), dsn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d (dirty: %t)\n", cfg.Backend(), version, dirty)
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateVersion, "version", -1, "Target migration version (-1 for latest)")
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Only report the applied version")
	rootCmd.AddCommand(migrateCmd)
}
