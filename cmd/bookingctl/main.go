// Command bookingctl runs maintenance tasks against the booking store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/config"
	"github.com/educonnect/service-booking/internal/repository"
	"github.com/educonnect/service-booking/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookingctl",
		Short:         "Operate the booking service store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newProvidersCmd())
	root.AddCommand(newTokenCmd())

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: configuration and a logger.
type env struct {
	cfg *config.ServiceConfig
	log *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.NewNamed(cfg.AppEnv, "bookingctl")
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

// openStore opens the configured store without touching migrations.
func (e *env) openStore() (*repository.Store, error) {
	return repository.Open(e.cfg.StoreDriver, e.cfg.DBConfig, "", e.log)
}
