package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/royalty/internal/config"
	"github.com/JonMunkholm/royalty/internal/core"
	"github.com/JonMunkholm/royalty/internal/logging"
	"github.com/JonMunkholm/royalty/internal/store"
)

// app carries what the commands share. The database is opened lazily so
// that commands like token run without one.
type app struct {
	out      io.Writer
	logLevel string
	cfg      *config.Config

	// openStore is replaced in tests.
	openStore func(ctx context.Context, cfg *config.Config) (store.Store, func(), error)
}

func newApp(out io.Writer) *app {
	return &app{out: out, openStore: openPostgres}
}

func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "catalogctl",
		Short: "Royalty catalog administration",
		Long: `catalogctl imports and exports catalog spreadsheets directly against the
database, prepares the schema, and issues API tokens.

Database commands read DATABASE_URL and the other server settings from the
environment or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWriter(os.Stderr, a.logLevel, "text")
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		a.migrateCommand(),
		a.importCommand(),
		a.exportCommand(),
		a.templateCommand(),
		a.tokenCommand(),
	)
	return root
}

// loadConfig loads and validates the environment configuration once.
func (a *app) loadConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// service builds a core.Service over the configured store.
func (a *app) service(ctx context.Context) (*core.Service, func(), error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	s, closeStore, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	core.MaxFileSize = cfg.Import.MaxFileSize
	core.ImportTimeout = cfg.Import.Timeout

	svc := core.NewService(s, nil, core.Options{
		BatchWorkers:         cfg.Import.Workers,
		FlattenWorkers:       cfg.Export.Workers,
		MaxConcurrentImports: 1,
		MaxWait:              cfg.Import.MaxWaitTime,
	})
	return svc, closeStore, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	pool, err := store.OpenPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := store.NewPostgres(pool).EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	s, closeCache, err := store.Open(ctx, pool, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, func() {
		closeCache()
		pool.Close()
	}, nil
}

func (a *app) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(a.out, format, args...); err != nil {
		slog.Warn("write output", "error", err)
	}
}
