package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/adapter/storage"
	"github.com/MikeRez0/orderpay/internal/adapter/storage/repository"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "paymentctl",
		Short:         "Operator tool for the order and payment service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openRepository connects with DATABASE_URI, the same variable the service reads.
func openRepository(ctx context.Context) (*repository.Repository, func(), error) {
	conf, err := config.NewEnvConfig()
	if err != nil {
		return nil, nil, err
	}
	if conf.Database.DSN == "" {
		return nil, nil, errors.New("DATABASE_URI is not set")
	}

	db, err := storage.NewDBStorage(ctx, conf.Database)
	if err != nil {
		return nil, nil, err
	}
	repo, err := repository.NewRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db.Close, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.NewEnvConfig()
			if err != nil {
				return err
			}
			if conf.Database.DSN == "" {
				return errors.New("DATABASE_URI is not set")
			}
			db, err := storage.NewDBStorage(cmd.Context(), conf.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.RunMigrations(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
