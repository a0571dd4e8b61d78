// Package nonce keeps wallet sequence numbers aligned between the local
// registry and chain state. The nonce is consumed at execution time, not at
// transaction creation, so several pending transactions may observe the same
// value; only a successful broadcast advances it.
package nonce

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vaultsig/vaultsig/chain"
	"github.com/vaultsig/vaultsig/events"
	"github.com/vaultsig/vaultsig/x/wallet"
)

// ReconciledEvent is published when a reconcile pass raised a wallet nonce
// to match chain state.
type ReconciledEvent struct {
	WalletID string
	Old      uint64
	New      uint64
}

// Sequencer reads and advances wallet nonces and reconciles them against
// chain state.
type Sequencer struct {
	wallets *wallet.Registry
	chain   chain.Provider
	bus     *events.Bus
	log     *zap.Logger
}

// NewSequencer returns a sequencer over the given registry. The chain
// provider may be nil, in which case Reconcile is a no-op.
func NewSequencer(wallets *wallet.Registry, provider chain.Provider, bus *events.Bus, log *zap.Logger) *Sequencer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequencer{
		wallets: wallets,
		chain:   provider,
		bus:     bus,
		log:     log,
	}
}

// Next returns the nonce the next executed transaction must carry. It does
// not advance anything.
func (s *Sequencer) Next(ctx context.Context, walletID string) (uint64, error) {
	return s.wallets.CurrentNonce(walletID)
}

// Advance records that the given nonce was consumed by a broadcast, moving
// the wallet nonce past it. Advancing is monotonic: a stale call can never
// lower the nonce.
func (s *Sequencer) Advance(ctx context.Context, walletID string, consumed uint64) error {
	_, err := s.wallets.RaiseNonce(walletID, consumed+1)
	return err
}

// Reconcile pulls the account nonce from chain state and raises the local
// one when the chain is ahead, which happens when the account also transacts
// outside this subsystem. The local value is never lowered.
func (s *Sequencer) Reconcile(ctx context.Context, walletID string) error {
	if s.chain == nil {
		return nil
	}
	w, err := s.wallets.Get(walletID)
	if err != nil {
		return err
	}
	remote, err := s.chain.AccountNonce(ctx, w.Address, w.ChainID)
	if err != nil {
		return err
	}
	if remote <= w.Nonce {
		return nil
	}
	if _, err := s.wallets.RaiseNonce(walletID, remote); err != nil {
		return err
	}
	s.log.Info("nonce reconciled",
		zap.String("wallet_id", walletID),
		zap.Uint64("old", w.Nonce),
		zap.Uint64("new", remote))
	if s.bus != nil {
		s.bus.Publish(ReconciledEvent{WalletID: walletID, Old: w.Nonce, New: remote})
	}
	return nil
}

// ReconcileAll runs Reconcile over every wallet, logging and continuing on
// per-wallet failures.
func (s *Sequencer) ReconcileAll(ctx context.Context) error {
	all, err := s.wallets.List()
	if err != nil {
		return err
	}
	for _, w := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Reconcile(ctx, w.ID); err != nil {
			s.log.Warn("nonce reconcile failed",
				zap.String("wallet_id", w.ID), zap.Error(err))
		}
	}
	return nil
}

// Run reconciles all wallets on the given interval until the context is
// cancelled. Meant to run as a daemon goroutine.
func (s *Sequencer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("reconcile pass failed", zap.Error(err))
			}
		}
	}
}
