package cli

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Aliagaaaaaa/horarios-api/internal/repository"
	"github.com/Aliagaaaaaa/horarios-api/pkg/database"
)

// openDatabase is swapped in tests.
var openDatabase = database.NewPostgres

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			db, err := connect(cmd, app)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			if err := database.RunMigrations(db.DB, app.Logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled catalog into PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			catalog, err := repository.NewStaticCatalog()
			if err != nil {
				return err
			}
			db, err := connect(cmd, app)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			snap := catalog.Snapshot()
			if err := repository.NewCatalogRepository(db).Seed(cmd.Context(), snap); err != nil {
				return err
			}
			app.Logger.Info("catalog seeded",
				zap.Int("courses", len(snap.Courses)),
				zap.Int("professors", len(snap.Professors)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d courses, %d professors, %d links\n",
				len(snap.Courses), len(snap.Professors), len(snap.Links))
			return nil
		},
	}
}

// connect opens PostgreSQL regardless of ENABLE_PERSISTENCE; the commands exist to prepare it.
func connect(cmd *cobra.Command, app *App) (*sqlx.DB, error) {
	db, err := openDatabase(cmd.Context(), app.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres %s:%d: %w", app.Config.Database.Host, app.Config.Database.Port, err)
	}
	return db, nil
}
