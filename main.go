package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"library-circulation/library"
)

var rootCmd = &cobra.Command{
	Use:           "circulation",
	Short:         "Library circulation engine",
	Long:          "Catalog, membership, policy, and loan tracking for a small library, backed by SQLite snapshots.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("db", "data/circulation.db", "path to the SQLite snapshot database")
	flags.String("addr", ":8080", "listen address for serve")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	viper.SetEnvPrefix("CIRCULATION")
	viper.AutomaticEnv()
	for _, name := range []string{"db", "addr", "log-level"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// app bundles the storage handle and the stores built over it. Everything is
// constructed once per process and passed by handle.
type app struct {
	storage  *library.SQLiteStorage
	catalog  *library.CatalogStore
	accounts *library.AccountStore
	config   *library.ConfigStore
	guard    *library.SessionGuard
	engine   *library.Engine
	logger   *log.Logger
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if lvl, err := log.ParseLevel(viper.GetString("log-level")); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

func buildApp() (*app, error) {
	logger := newLogger()

	storage, err := library.NewSQLiteStorage(viper.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	clock := library.SystemClock
	rnd := library.NewRandSource()

	catalog, err := library.NewCatalogStore(storage, logger, clock, rnd)
	if err != nil {
		storage.Close()
		return nil, err
	}
	accounts, err := library.NewAccountStore(storage, logger, clock)
	if err != nil {
		storage.Close()
		return nil, err
	}
	config, err := library.NewConfigStore(storage, logger)
	if err != nil {
		storage.Close()
		return nil, err
	}
	guard, err := library.NewSessionGuard(storage, logger, clock, accounts)
	if err != nil {
		storage.Close()
		return nil, err
	}
	engine, err := library.NewEngine(catalog, accounts, config, storage, logger, clock, rnd)
	if err != nil {
		storage.Close()
		return nil, err
	}

	return &app{
		storage:  storage,
		catalog:  catalog,
		accounts: accounts,
		config:   config,
		guard:    guard,
		engine:   engine,
		logger:   logger,
	}, nil
}

func (a *app) close() {
	if err := a.storage.Close(); err != nil {
		a.logger.Error("closing storage", "err", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
