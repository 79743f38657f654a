package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fjod/sillage/internal/catalog"
	"github.com/fjod/sillage/internal/config"
)

func NewCatalogCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local product catalog",
	}
	cmd.AddCommand(newCatalogMigrateCommand(opts))
	cmd.AddCommand(newCatalogSeedCommand(opts))
	return cmd
}

func newCatalogMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			repo, err := openCatalog(cfg.Catalog, true)
			if err != nil {
				return err
			}
			defer repo.Close()

			log.Info("catalog migrations applied", zap.String("driver", cfg.Catalog.Driver))
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newCatalogSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Upsert products from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open seed file: %w", err)
			}
			defer f.Close()

			products, err := catalog.ParseSeed(f)
			if err != nil {
				return err
			}

			repo, err := openCatalog(cfg.Catalog, true)
			if err != nil {
				return err
			}
			defer repo.Close()

			n, err := catalog.Seed(cmd.Context(), repo, products)
			if err != nil {
				return err
			}
			log.Info("catalog seeded", zap.Int("products", n), zap.String("file", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
			return nil
		},
	}
}

func openCatalog(cfg config.CatalogConfig, migrate bool) (*catalog.Repository, error) {
	repo, err := catalog.NewRepository(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := repo.RunMigrations(); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return repo, nil
}
