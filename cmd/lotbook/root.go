package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/lotbook/internal/config"
	"github.com/erazemk/lotbook/internal/db"
	"github.com/erazemk/lotbook/internal/importer"
	"github.com/erazemk/lotbook/internal/logging"
	"github.com/erazemk/lotbook/internal/media"
	"github.com/erazemk/lotbook/internal/notify"
	"github.com/erazemk/lotbook/internal/reconcile"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	logPath    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "lotbook",
		Short: "Inventory record pipeline for trailers, trucks and classic cars",
		Long: `lotbook keeps one record per unit, keyed by VIN, for each inventory
category. Spreadsheets are imported and reconciled into the store, sales
archive the unit's photo folder, and reports total purchases, sales and
profit over time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML config file (default: "+config.DefaultFile+" if present)")
	pf.StringVarP(&g.dbPath, "db", "d", "", "SQLite database path (overrides config)")
	pf.StringVarP(&g.logPath, "log", "l", "", "log file path (overrides config)")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(
		newServeCmd(&g),
		newImportCmd(&g),
		newReportCmd(&g),
		newPurgeCmd(&g),
	)
	return root
}

// app holds the wired components of one command run.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *sql.DB
	media    *media.Store
	records  *reconcile.Reconciler
	importer *importer.Importer

	closeLog func()
}

// setup loads configuration, opens the database and wires the pipeline.
func setup(g *globalFlags) (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.Database.Path = g.dbPath
	}
	if g.logPath != "" {
		cfg.Log.File = g.logPath
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}

	log, closeLog, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		closeLog()
		return nil, fmt.Errorf("ensuring database schema: %w", err)
	}
	log.Info("database ready", zap.String("path", cfg.Database.Path))

	photos, err := media.New(cfg.Media.Root, log.Named("media"))
	if err != nil {
		database.Close()
		closeLog()
		return nil, err
	}

	records := reconcile.New(database,
		notify.NewSaleNotifier(photos, log.Named("notify")),
		notify.NewLogAlerter(log),
		log.Named("reconcile"),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       database,
		media:    photos,
		records:  records,
		importer: importer.New(database, records, log.Named("import")),
		closeLog: closeLog,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing database", zap.Error(err))
	}
	a.closeLog()
}
