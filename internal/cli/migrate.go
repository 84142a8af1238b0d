package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/outbox"
	"github.com/fjod/storefront/internal/repository"
	"github.com/spf13/cobra"
)

type MigrateOptions struct {
	SkipMongo bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply outbox migrations and create cart indexes",
		Long: `Apply the embedded outbox schema migrations to OUTBOX_DSN and create the
MongoDB indexes of the cart collection.

Example:
  storefront migrate
  OUTBOX_DRIVER=postgres OUTBOX_DSN=postgres://... storefront migrate --skip-mongo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipMongo, "skip-mongo", false, "do not create MongoDB indexes")

	return cmd
}

func runMigrate(cmd *cobra.Command, opts *MigrateOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	ob, err := outbox.Open(ctx, cfg.OutboxDriver, cfg.OutboxDSN)
	if err != nil {
		return err
	}
	defer ob.Close()
	if err := ob.Migrate(); err != nil {
		return err
	}
	slog.Info("outbox migrated", "driver", cfg.OutboxDriver)

	if opts.SkipMongo {
		return nil
	}

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer func() { _ = repository.DisconnectMongoDB(db) }()

	if err := repository.NewMongoRepository(db).CreateIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	slog.Info("cart indexes created", "database", cfg.MongoDBName)
	return nil
}
