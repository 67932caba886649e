package main

import (
	"context"
	stdLog "log"
	"os"
	"time"

	"github.com/Astemirdum/bookish-library/catalog/app"
	"github.com/Astemirdum/bookish-library/catalog/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Fatal("load envs from .env ", err)
	}
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		debug   bool
		port    string
		storage string
	)
	options := func() []config.Option {
		ops := []config.Option{
			config.WithWriteTimeout(time.Minute),
			config.WithPort(port),
			config.WithStorage(storage),
		}
		if debug {
			ops = append(ops, config.WithLogLevel(zapcore.DebugLevel))
		}
		return ops
	}

	root := &cobra.Command{
		Use:          "catalog",
		Short:        "Library catalog with inventory and borrow ledger",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfig(options()...)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg)
		},
	}
	serve.Flags().StringVar(&port, "port", "", "listen port, overrides CATALOG_HTTP_PORT")
	serve.Flags().StringVar(&storage, "storage", "", "memory or postgres, overrides CATALOG_STORAGE")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfig(options()...)
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serve, migrate)
	return root
}
