// Package cli builds the storefront command line.
package cli

import (
	"log/slog"
	"os"

	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the storefront command with its subcommands.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront web backend",
		Long: `Storefront serves the catalog, cart, account and checkout API of the shop
on top of a hosted Postgres REST and auth backend.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())

	return cmd
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel)))
	return cfg, nil
}
