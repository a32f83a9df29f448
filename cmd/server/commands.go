package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/iliyamo/backend-service-lab3/internal/app"
	"github.com/iliyamo/backend-service-lab3/internal/config"
	"github.com/iliyamo/backend-service-lab3/internal/logging"
	"github.com/iliyamo/backend-service-lab3/internal/queue"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "server",
		Short:        "Backend Service Lab 3 item API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (default $APP_CONFIG_FILE)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server (default command)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(configPath)
			},
		},
		&cobra.Command{
			Use:   "consume",
			Short: "Consume item events and write the audit log",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConsume(cmd.Context(), configPath)
			},
		},
	)
	return root
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a := fx.New(app.Module(cfg))
	if err := a.Err(); err != nil {
		return err
	}
	a.Run() // blocks until SIGINT/SIGTERM
	return nil
}

func runConsume(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log, logging.SystemLogFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("item consumer starting", zap.String("queue", cfg.Queue.Name), zap.String("audit_log", cfg.Queue.AuditLog))
	if err := queue.StartItemConsumer(ctx, cfg.Queue, log); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
