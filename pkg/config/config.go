package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Wallet   WalletRPCConfig `json:"wallet"`
	Daemon   DaemonConfig    `json:"daemon"`
	Churn    ChurnConfig     `json:"churn"`
	Seeds    SeedConfig      `json:"seeds"`
	State    StateConfig     `json:"state"`
	Display  DisplayConfig   `json:"display"`
	Simulate bool            `json:"simulate" env:"CHURND_SIMULATE"`
	LogLevel string          `json:"log_level" env:"CHURND_LOG_LEVEL"`
}

// WalletRPCConfig points at the external wallet RPC service. Username and
// password enable HTTP digest auth when both are set.
type WalletRPCConfig struct {
	URL      string `json:"url" env:"CHURND_WALLET_URL"`
	Username string `json:"username" env:"CHURND_WALLET_USERNAME"`
	Password string `json:"password" env:"CHURND_WALLET_PASSWORD"`
}

type DaemonConfig struct {
	URL string `json:"url" env:"CHURND_DAEMON_URL"`
}

type ChurnConfig struct {
	// MinRounds/MaxRounds bound the per-session round count, inclusive.
	MinRounds int `json:"min_rounds" env:"CHURND_CHURN_MIN_ROUNDS"`
	MaxRounds int `json:"max_rounds" env:"CHURND_CHURN_MAX_ROUNDS"`

	// MinDelaySec/MaxDelaySec bound the random delay between rounds.
	MinDelaySec int `json:"min_delay_sec" env:"CHURND_CHURN_MIN_DELAY_SEC"`
	MaxDelaySec int `json:"max_delay_sec" env:"CHURND_CHURN_MAX_DELAY_SEC"`

	// Sessions is the number of wallet chain links to process. 0 runs
	// unbounded.
	Sessions int `json:"sessions" env:"CHURND_CHURN_SESSIONS"`

	// PollIntervalSec is the balance poll interval while waiting for funds
	// to unlock. RetryIntervalSec is the fixed backoff applied to every
	// transient RPC failure.
	PollIntervalSec  int `json:"poll_interval_sec" env:"CHURND_CHURN_POLL_INTERVAL_SEC"`
	RetryIntervalSec int `json:"retry_interval_sec" env:"CHURND_CHURN_RETRY_INTERVAL_SEC"`

	// WalletPrefix names generated wallets: <prefix>-<session>.
	WalletPrefix string `json:"wallet_prefix" env:"CHURND_CHURN_WALLET_PREFIX"`

	// SweepTo, when set, receives the final sweep of the last session.
	SweepTo string `json:"sweep_to" env:"CHURND_CHURN_SWEEP_TO"`
}

type SeedConfig struct {
	UseSeedFile     bool   `json:"use_seed_file" env:"CHURND_SEEDS_USE_SEED_FILE"`
	File            string `json:"file" env:"CHURND_SEEDS_FILE"`
	DefaultPassword string `json:"default_password" env:"CHURND_SEEDS_DEFAULT_PASSWORD"`
	RandomPassword  bool   `json:"random_password" env:"CHURND_SEEDS_RANDOM_PASSWORD"`

	// RestoreHeightOffset is subtracted from the current daemon height when
	// a seed record carries no creation height, so the restore scan starts
	// at or before the wallet's first-received block.
	RestoreHeightOffset uint64 `json:"restore_height_offset" env:"CHURND_SEEDS_RESTORE_HEIGHT_OFFSET"`
}

type StateConfig struct {
	File string `json:"file" env:"CHURND_STATE_FILE"`
}

type DisplayConfig struct {
	QR bool `json:"qr" env:"CHURND_DISPLAY_QR"`
}

func DefaultConfig() *Config {
	return &Config{
		Wallet: WalletRPCConfig{
			URL: "http://127.0.0.1:18082",
		},
		Daemon: DaemonConfig{
			URL: "http://127.0.0.1:18081",
		},
		Churn: ChurnConfig{
			MinRounds:        3,
			MaxRounds:        8,
			MinDelaySec:      600,
			MaxDelaySec:      7200,
			Sessions:         1,
			PollIntervalSec:  60,
			RetryIntervalSec: 60,
			WalletPrefix:     "churn",
		},
		Seeds: SeedConfig{
			UseSeedFile:         false,
			File:                "~/.churnd/seeds.txt",
			DefaultPassword:     "",
			RandomPassword:      true,
			RestoreHeightOffset: 1000,
		},
		State: StateConfig{
			File: "~/.churnd/state.txt",
		},
		Display: DisplayConfig{
			QR: true,
		},
		Simulate: false,
		LogLevel: "info",
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate rejects configurations the scheduler cannot run with.
func (c *Config) Validate() error {
	if c.Wallet.URL == "" {
		return fmt.Errorf("wallet.url is required")
	}
	if c.Churn.MinRounds < 1 {
		return fmt.Errorf("churn.min_rounds must be at least 1, got %d", c.Churn.MinRounds)
	}
	if c.Churn.MaxRounds < c.Churn.MinRounds {
		return fmt.Errorf("churn.max_rounds (%d) must be >= churn.min_rounds (%d)",
			c.Churn.MaxRounds, c.Churn.MinRounds)
	}
	if c.Churn.MinDelaySec < 0 || c.Churn.MaxDelaySec < c.Churn.MinDelaySec {
		return fmt.Errorf("churn delay bounds invalid: min=%d max=%d",
			c.Churn.MinDelaySec, c.Churn.MaxDelaySec)
	}
	if c.Churn.Sessions < 0 {
		return fmt.Errorf("churn.sessions must be >= 0, got %d", c.Churn.Sessions)
	}
	if c.Churn.PollIntervalSec < 1 {
		return fmt.Errorf("churn.poll_interval_sec must be at least 1, got %d", c.Churn.PollIntervalSec)
	}
	if c.Churn.RetryIntervalSec < 1 {
		return fmt.Errorf("churn.retry_interval_sec must be at least 1, got %d", c.Churn.RetryIntervalSec)
	}
	if c.Seeds.UseSeedFile && c.Seeds.File == "" {
		return fmt.Errorf("seeds.file is required when seeds.use_seed_file is set")
	}
	return nil
}

func (c *Config) StatePath() string {
	return expandHome(c.State.File)
}

func (c *Config) SeedPath() string {
	return expandHome(c.Seeds.File)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
