// Command vaultsigd runs the multi-signature authorization subsystem as a
// standalone daemon: durable badger storage, a JSON-RPC chain gateway
// client, the expiry sweep, the nonce reconcile loop and a prometheus
// metrics endpoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vaultsig/vaultsig/chain"
	"github.com/vaultsig/vaultsig/config"
	"github.com/vaultsig/vaultsig/events"
	"github.com/vaultsig/vaultsig/store"
	"github.com/vaultsig/vaultsig/x/authz"
	"github.com/vaultsig/vaultsig/x/limits"
	"github.com/vaultsig/vaultsig/x/nonce"
	"github.com/vaultsig/vaultsig/x/wallet"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:   "vaultsigd",
		Short: "multi-signature transaction authorization daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(opts)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts *config.Options) error {
	log, err := buildLogger(opts.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, closeDB, err := openStore(opts, log)
	if err != nil {
		return err
	}
	defer closeDB()

	var (
		provider    chain.Provider
		broadcaster chain.Broadcaster
	)
	if opts.ChainGatewayURL != "" {
		rpc := chain.NewRPCClient(opts.ChainGatewayURL)
		provider = chain.NewCachedProvider(rpc, log)
		broadcaster = rpc
		log.Info("chain gateway configured", zap.String("url", opts.ChainGatewayURL))
	} else {
		broadcaster = noBroadcaster{}
		log.Warn("no chain gateway configured, broadcasting disabled")
	}

	bus := events.NewBus(log)
	registry := wallet.NewRegistry(db, wallet.RegistryConfig{
		Chain:     provider,
		Bus:       bus,
		Log:       log,
		MaxOwners: opts.MaxOwnersPerWallet,
	})
	enforcer := limits.NewEnforcer()
	sequencer := nonce.NewSequencer(registry, provider, bus, log)
	metrics := authz.NewMetrics(prometheus.DefaultRegisterer)
	authorizer := authz.NewAuthorizer(db, authz.Config{
		Wallets:        registry,
		Limits:         enforcer,
		Nonces:         sequencer,
		Chain:          provider,
		Broadcaster:    broadcaster,
		Bus:            bus,
		Log:            log,
		Metrics:        metrics,
		DefaultTimeout: opts.DefaultTransactionTimeout,
		RatePerSecond:  opts.RateLimitPerSecond,
	})

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := authorizer.RestoreReservations(ctx); err != nil {
		return err
	}
	log.Info("spending ledger restored")

	go authz.NewSweeper(authorizer, opts.CleanupInterval, log).Run(ctx)
	if provider != nil && opts.NonceReconcileInterval > 0 {
		go sequencer.Run(ctx, opts.NonceReconcileInterval)
	}

	var metricsSrv *http.Server
	if opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: opts.MetricsAddr, Handler: mux}
		go func() {
			log.Info("metrics endpoint up", zap.String("addr", opts.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	log.Info("vaultsigd running")
	<-ctx.Done()
	log.Info("shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	return nil
}

func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func openStore(opts *config.Options, log *zap.Logger) (store.KVStore, func(), error) {
	if opts.DBDir == "" {
		log.Warn("no db_dir configured, state will not survive restarts")
		return store.NewMemStore(), func() {}, nil
	}
	badger, err := store.OpenBadger(opts.DBDir)
	if err != nil {
		return nil, nil, err
	}
	log.Info("badger store opened", zap.String("dir", opts.DBDir))
	closer := func() {
		if err := badger.Close(); err != nil {
			log.Warn("closing badger", zap.Error(err))
		}
	}
	return badger, closer, nil
}

// noBroadcaster rejects every submission. Used when no chain gateway is
// configured, so transactions can still be created and signed but not
// executed.
type noBroadcaster struct{}

func (noBroadcaster) Submit(ctx context.Context, payload chain.SignedPayload) (string, error) {
	return "", fmt.Errorf("no chain gateway configured")
}
