package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Aliagaaaaaa/horarios-api/pkg/config"
	"github.com/Aliagaaaaaa/horarios-api/pkg/logger"
)

// App carries what every subcommand needs.
type App struct {
	Config *config.Config
	Logger *zap.Logger
}

type appKey struct{}

type invocation struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type invocationKey struct{}

// NewRootCommand builds the horarios command tree. loadConfig may be nil.
func NewRootCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	if loadConfig == nil {
		loadConfig = config.Load
	}
	var verbose bool

	root := &cobra.Command{
		Use:   "horarios",
		Short: "Weekly course timetable generator",
		Long: `horarios builds conflict-free weekly timetables from the course catalog.

Examples:
  horarios courses --semester 1
  horarios generate --courses 1,4,7 --optimize minimize-gaps --block MONDAY:1
  horarios migrate
  horarios seed`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !verbose {
				cfg.Log.Level = "warn"
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			info := invocation{correlationID: uuid.New(), startedAt: time.Now()}
			ctx := context.WithValue(cmd.Context(), appKey{}, &App{Config: cfg, Logger: logr})
			cmd.SetContext(context.WithValue(ctx, invocationKey{}, info))
			logr.Info("command start",
				zap.String("command", cmd.CommandPath()),
				zap.String("correlation_id", info.correlationID.String()),
			)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app := appFrom(cmd)
			info, ok := cmd.Context().Value(invocationKey{}).(invocation)
			if app == nil || !ok {
				return
			}
			app.Logger.Info("command end",
				zap.String("command", cmd.CommandPath()),
				zap.String("correlation_id", info.correlationID.String()),
				zap.Int64("duration_ms", time.Since(info.startedAt).Milliseconds()),
			)
			_ = app.Logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warn")

	root.AddCommand(
		newGenerateCommand(),
		newCoursesCommand(),
		newMigrateCommand(),
		newSeedCommand(),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand(nil).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func appFrom(cmd *cobra.Command) *App {
	app, _ := cmd.Context().Value(appKey{}).(*App)
	return app
}
