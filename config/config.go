// Package config loads runtime options for the authorization subsystem.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/vaultsig/vaultsig/errors"
)

// Options carries all recognized runtime settings.
type Options struct {
	// MaxOwnersPerWallet caps the owner set size of a single wallet.
	MaxOwnersPerWallet int `mapstructure:"max_owners_per_wallet"`

	// DefaultTransactionTimeout is applied when a creation request does
	// not name its own timeout.
	DefaultTransactionTimeout time.Duration `mapstructure:"default_transaction_timeout"`

	// CleanupInterval is the period of the expiry sweep.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// NonceReconcileInterval is the period of pulling chain nonces as
	// ground truth. Zero disables the reconcile loop.
	NonceReconcileInterval time.Duration `mapstructure:"nonce_reconcile_interval"`

	// RateLimitPerSecond throttles externally facing transaction
	// creation calls. Zero means unlimited.
	RateLimitPerSecond int `mapstructure:"rate_limit_per_second"`

	// DBDir is the badger database directory. Empty selects the
	// non-durable in-memory store.
	DBDir string `mapstructure:"db_dir"`

	// MetricsAddr is the prometheus HTTP listen address. Empty disables
	// the endpoint.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// ChainGatewayURL is the JSON-RPC endpoint used for nonce and gas
	// lookups and for broadcasting.
	ChainGatewayURL string `mapstructure:"chain_gateway_url"`

	// LogLevel is one of zap's level names (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_owners_per_wallet", 10)
	v.SetDefault("default_transaction_timeout", 24*time.Hour)
	v.SetDefault("cleanup_interval", 5*time.Minute)
	v.SetDefault("nonce_reconcile_interval", 15*time.Minute)
	v.SetDefault("rate_limit_per_second", 0)
	v.SetDefault("db_dir", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("chain_gateway_url", "")
	v.SetDefault("log_level", "info")
}

// Load reads options from the given file (optional, empty path skips it)
// and the VAULTSIG_* environment, applying defaults for anything not set.
func Load(path string) (*Options, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("vaultsig")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrInput, err.Error())
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Validate returns an error when option values are out of range.
func (o *Options) Validate() error {
	if o.MaxOwnersPerWallet < 1 {
		return errors.Wrap(errors.ErrInput, "max_owners_per_wallet must be at least 1")
	}
	if o.DefaultTransactionTimeout <= 0 {
		return errors.Wrap(errors.ErrInput, "default_transaction_timeout must be positive")
	}
	if o.CleanupInterval <= 0 {
		return errors.Wrap(errors.ErrInput, "cleanup_interval must be positive")
	}
	if o.RateLimitPerSecond < 0 {
		return errors.Wrap(errors.ErrInput, "rate_limit_per_second must not be negative")
	}
	return nil
}
