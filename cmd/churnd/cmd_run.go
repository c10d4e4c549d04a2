package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/spf13/cobra"
	"github.com/walletops/churnd/pkg/churn"
	"github.com/walletops/churnd/pkg/config"
	"github.com/walletops/churnd/pkg/logger"
	"github.com/walletops/churnd/pkg/rpc"
	"github.com/walletops/churnd/pkg/seed"
	"github.com/walletops/churnd/pkg/state"
	"github.com/walletops/churnd/pkg/wallet"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the churn loop, resuming any prior run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger.SetLevel(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.InfoCF("main", "Interrupted, progress is durable", nil)
					return nil
				}
				return err
			}
			return nil
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	walletRPC := rpc.New(cfg.Wallet.URL, cfg.Wallet.Username, cfg.Wallet.Password)
	daemon := rpc.NewDaemonClient(cfg.Daemon.URL)
	clk := clock.NewDefaultClock()
	retry := churn.NewRetryPolicy(time.Duration(cfg.Churn.RetryIntervalSec)*time.Second, clk)

	// Park until the wallet service answers; the operator is expected to
	// bring it up or kill the process.
	err := retry.Do(ctx, "get_version", nil, func() error {
		v, err := walletRPC.GetVersion(ctx)
		if err != nil {
			return err
		}
		logger.InfoCF("main", "Wallet service reachable", map[string]any{
			"rpc_version": v,
			"url":         cfg.Wallet.URL,
		})
		return nil
	})
	if err != nil {
		return err
	}

	if cfg.Daemon.URL != "" {
		if err := walletRPC.SetDaemon(ctx, cfg.Daemon.URL); err != nil {
			logger.WarnCF("main", "set_daemon failed, keeping service's current daemon", map[string]any{
				"daemon": cfg.Daemon.URL,
				"error":  err.Error(),
			})
		}
	}

	states, err := state.Open(cfg.StatePath())
	if err != nil {
		return err
	}
	logger.InfoCF("main", "State loaded", map[string]any{
		"file":    cfg.StatePath(),
		"wallets": len(states.Records()),
	})

	seeds := seed.NewStore(cfg.SeedPath(), cfg.Seeds.DefaultPassword, daemon, cfg.Seeds.RestoreHeightOffset)
	lifecycle := wallet.NewLifecycle(walletRPC, seeds, cfg.Simulate)
	display := churn.NewDisplay(cfg.Display.QR)

	executor := churn.NewExecutor(churn.ExecutorConfig{
		PollInterval: time.Duration(cfg.Churn.PollIntervalSec) * time.Second,
		MinDelay:     time.Duration(cfg.Churn.MinDelaySec) * time.Second,
		MaxDelay:     time.Duration(cfg.Churn.MaxDelaySec) * time.Second,
	}, states, display, retry, clk)

	scheduler := churn.NewScheduler(churn.SchedulerConfig{
		MinRounds:    cfg.Churn.MinRounds,
		MaxRounds:    cfg.Churn.MaxRounds,
		Sessions:     cfg.Churn.Sessions,
		WalletPrefix: cfg.Churn.WalletPrefix,
		SweepTo:      cfg.Churn.SweepTo,
		UseSeedFile:  cfg.Seeds.UseSeedFile,
		Passwords: wallet.PasswordPolicy{
			Default: cfg.Seeds.DefaultPassword,
			Random:  cfg.Seeds.RandomPassword,
		},
	}, states, seeds, lifecycle, executor, retry, display)

	if cfg.Simulate {
		logger.WarnCF("main", "Simulation mode: sends are logged, not broadcast", nil)
	}

	return scheduler.Run(ctx)
}
