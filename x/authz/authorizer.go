// Package authz implements the transaction authorization pipeline: creation
// against wallet policy, signature collection up to the wallet threshold,
// execution through the chain broadcaster, cancellation and expiry.
//
// Concurrency follows two rules. First, all transaction mutations happen
// under a per-transaction lock, and wallet scoped steps additionally take
// the wallet lock (transaction lock always first). Second, no collaborator
// I/O runs under either lock: broadcasting releases the transaction lock,
// submits, then re-acquires and re-validates before committing the result.
package authz

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/chain"
	"github.com/vaultsig/vaultsig/coin"
	"github.com/vaultsig/vaultsig/crypto"
	"github.com/vaultsig/vaultsig/errors"
	"github.com/vaultsig/vaultsig/events"
	"github.com/vaultsig/vaultsig/store"
	"github.com/vaultsig/vaultsig/x/limits"
	"github.com/vaultsig/vaultsig/x/nonce"
	"github.com/vaultsig/vaultsig/x/wallet"
)

const (
	// DefaultTimeout bounds a transaction's life when the creator does
	// not pick one.
	DefaultTimeout = 24 * time.Hour

	// defaultGasLimit is used when gas estimation is unavailable.
	defaultGasLimit = 21000
)

// Config carries the authorizer collaborators.
type Config struct {
	Wallets     *wallet.Registry
	Limits      *limits.Enforcer
	Nonces      *nonce.Sequencer
	Verifier    Verifier
	Chain       chain.Provider
	Broadcaster chain.Broadcaster
	Bus         *events.Bus
	Log         *zap.Logger
	Metrics     *Metrics

	// DefaultTimeout applies when CreateReq.Timeout is zero.
	DefaultTimeout time.Duration
	// RatePerSecond caps transaction creation. 0 disables the limit.
	RatePerSecond int
	// Now overrides the time source, for tests.
	Now func() time.Time
}

// Authorizer drives transactions through their lifecycle.
type Authorizer struct {
	db     store.KVStore
	bucket Bucket

	wallets     *wallet.Registry
	limits      *limits.Enforcer
	nonces      *nonce.Sequencer
	verifier    Verifier
	chain       chain.Provider
	broadcaster chain.Broadcaster
	bus         *events.Bus
	log         *zap.Logger
	metrics     *Metrics

	timeout time.Duration
	limiter *rateLimiter
	now     func() time.Time

	txLocks   *lockRegistry
	executing *inFlight
}

// NewAuthorizer wires an authorizer over the given store.
func NewAuthorizer(db store.KVStore, cfg Config) *Authorizer {
	if cfg.Verifier == nil {
		cfg.Verifier = Ed25519Verifier{}
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Authorizer{
		db:          db,
		bucket:      NewBucket(),
		wallets:     cfg.Wallets,
		limits:      cfg.Limits,
		nonces:      cfg.Nonces,
		verifier:    cfg.Verifier,
		chain:       cfg.Chain,
		broadcaster: cfg.Broadcaster,
		bus:         cfg.Bus,
		log:         cfg.Log,
		metrics:     cfg.Metrics,
		timeout:     cfg.DefaultTimeout,
		limiter:     newRateLimiter(cfg.RatePerSecond, cfg.Now),
		now:         cfg.Now,
		txLocks:     newLockRegistry(),
		executing:   newInFlight(),
	}
}

// CreateReq describes a new outbound transaction.
type CreateReq struct {
	WalletID    string
	Destination vaultsig.Address
	Amount      coin.Coin
	Data        []byte
	GasLimit    uint64
	GasPrice    uint64
	// Timeout bounds the transaction's life. Zero selects the default.
	Timeout time.Duration
}

// Create admits a transaction into the pipeline. The spending reservation
// and the snapshot of the wallet's signer set and threshold are taken
// atomically under the wallet lock.
func (a *Authorizer) Create(ctx context.Context, req CreateReq) (*Transaction, error) {
	if !a.limiter.allow() {
		return nil, errors.Wrap(ErrRateLimited, "transaction creation")
	}

	w, err := a.wallets.Get(req.WalletID)
	if err != nil {
		return nil, err
	}
	if !w.Enabled {
		return nil, errors.Wrapf(wallet.ErrDisabled, "wallet %q", w.ID)
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, errors.Wrap(err, "destination")
	}
	if err := req.Amount.Validate(); err != nil {
		return nil, errors.Wrap(err, "amount")
	}
	if !req.Amount.IsPositive() {
		return nil, errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	if w.DailyLimit != nil && w.DailyLimit.Ticker != req.Amount.Ticker {
		return nil, errors.Wrapf(errors.ErrCurrency,
			"amount ticker %s, limits in %s", req.Amount.Ticker, w.DailyLimit.Ticker)
	}
	if w.MonthlyLimit != nil && w.MonthlyLimit.Ticker != req.Amount.Ticker {
		return nil, errors.Wrapf(errors.ErrCurrency,
			"amount ticker %s, limits in %s", req.Amount.Ticker, w.MonthlyLimit.Ticker)
	}
	if !w.AllowsDestination(req.Destination) {
		return nil, errors.Wrapf(ErrDestinationNotAllowed, "%s", req.Destination)
	}

	// Gas estimation is network I/O, so it happens before any lock and
	// degrades to a fixed default.
	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = a.estimateGas(ctx, w, req)
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = a.timeout
	}

	unlock := a.wallets.Lock(w.ID)

	// Re-read so the snapshot reflects any update that won the lock.
	w, err = a.wallets.Get(req.WalletID)
	if err != nil {
		unlock()
		return nil, err
	}
	if !w.Enabled {
		unlock()
		return nil, errors.Wrapf(wallet.ErrDisabled, "wallet %q", w.ID)
	}

	now := a.now()
	txID := uuid.NewString()
	if err := a.limits.CheckAndReserve(w.ID, txID, req.Amount, w.DailyLimit, w.MonthlyLimit, now); err != nil {
		unlock()
		if limits.ErrLimitExceeded.Is(err) {
			a.metrics.LimitRejected.Inc()
		}
		return nil, err
	}

	nextNonce, err := a.nonces.Next(ctx, w.ID)
	if err != nil {
		a.limits.Release(w.ID, txID)
		unlock()
		return nil, err
	}

	tx := &Transaction{
		ID:          txID,
		WalletID:    w.ID,
		ChainID:     w.ChainID,
		Destination: req.Destination.Clone(),
		Amount:      req.Amount,
		Data:        req.Data,
		GasLimit:    gasLimit,
		GasPrice:    req.GasPrice,
		Nonce:       nextNonce,
		Required:    w.Threshold,
		Signers:     w.Owners,
		Status:      StatusPending,
		CreatedAt:   vaultsig.AsUnixTime(now),
		ExpiresAt:   vaultsig.AsUnixTime(now.Add(timeout)),
	}
	if err := a.bucket.Save(a.db, tx); err != nil {
		a.limits.Release(w.ID, txID)
		unlock()
		return nil, err
	}
	unlock()

	a.metrics.Created.Inc()
	a.log.Info("transaction created",
		zap.String("tx_id", tx.ID),
		zap.String("wallet_id", tx.WalletID),
		zap.String("amount", tx.Amount.String()),
		zap.Int32("required", tx.Required))
	a.publish(CreatedEvent{Tx: tx.Copy()})
	return tx.Copy(), nil
}

func (a *Authorizer) estimateGas(ctx context.Context, w *wallet.Wallet, req CreateReq) uint64 {
	if a.chain == nil {
		return defaultGasLimit
	}
	gas, err := a.chain.EstimateGas(ctx, chain.EstimateReq{
		ChainID: w.ChainID,
		From:    w.Address,
		To:      req.Destination,
		Value:   req.Amount,
		Data:    req.Data,
	})
	if err != nil || gas == 0 {
		a.log.Warn("gas estimation failed, using default",
			zap.String("wallet_id", w.ID), zap.Error(err))
		return defaultGasLimit
	}
	return gas
}

// Get returns a copy of the transaction.
func (a *Authorizer) Get(ctx context.Context, txID string) (*Transaction, error) {
	tx, err := a.bucket.Get(a.db, txID)
	if err != nil {
		return nil, err
	}
	return tx.Copy(), nil
}

// Sign records the signer's approval. The signature must verify against the
// transaction digest; a rejected signature leaves the record untouched.
func (a *Authorizer) Sign(ctx context.Context, txID string, signer crypto.PublicKey, sig []byte) (*Transaction, error) {
	unlock := a.txLocks.acquire(txID)

	tx, err := a.loadOpen(txID, &unlock)
	if err != nil {
		return nil, err
	}
	if !tx.HasSigner(signer) {
		unlock()
		return nil, errors.Wrapf(ErrUnauthorizedSigner, "%s", signer)
	}
	if tx.SignedBy(signer) {
		unlock()
		return nil, errors.Wrapf(ErrAlreadySigned, "%s", signer)
	}
	digest, err := tx.Digest()
	if err != nil {
		unlock()
		return nil, err
	}
	if !a.verifier.Verify(digest, signer, sig) {
		unlock()
		return nil, errors.Wrapf(ErrInvalidSignature, "signer %s", signer)
	}

	tx.Signatures = append(tx.Signatures, StdSignature{
		Signer:    signer,
		Signature: sig,
		SignedAt:  vaultsig.AsUnixTime(a.now()),
	})
	wasReady := tx.Status == StatusReady
	if len(tx.Signatures) >= int(tx.Required) {
		tx.Status = StatusReady
	} else {
		tx.Status = StatusPartiallySigned
	}
	if err := a.bucket.Save(a.db, tx); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	a.metrics.Signed.Inc()
	a.log.Info("signature recorded",
		zap.String("tx_id", tx.ID),
		zap.Int("signatures", len(tx.Signatures)),
		zap.Int32("required", tx.Required),
		zap.String("status", string(tx.Status)))
	a.publish(SignedEvent{Tx: tx.Copy()})
	if tx.Status == StatusReady && !wasReady {
		a.publish(ReadyEvent{Tx: tx.Copy()})
	}
	return tx.Copy(), nil
}

// ExecutionHandle reports a successful broadcast.
type ExecutionHandle struct {
	Tx          *Transaction
	BroadcastID string
}

// Execute broadcasts a READY transaction. The executor must be one of the
// snapshotted signers. The nonce is read at this point, not at creation, so
// pending transactions of the same wallet never block each other; the chain
// rejects a stale value and the caller retries.
//
// A failed broadcast leaves the transaction READY and returns
// ErrExecutionFailed. Only one execution per transaction may be in flight.
func (a *Authorizer) Execute(ctx context.Context, txID string, executor crypto.PublicKey) (*ExecutionHandle, error) {
	unlock := a.txLocks.acquire(txID)

	tx, err := a.loadOpen(txID, &unlock)
	if err != nil {
		return nil, err
	}
	if tx.Status != StatusReady {
		unlock()
		return nil, errors.Wrapf(ErrNotReady,
			"%d of %d signatures", len(tx.Signatures), tx.Required)
	}
	if !tx.HasSigner(executor) {
		unlock()
		return nil, errors.Wrapf(ErrUnauthorizedSigner, "%s", executor)
	}
	if !a.executing.mark(txID) {
		unlock()
		return nil, errors.Wrap(ErrExecutionFailed, "execution in progress")
	}
	defer a.executing.clear(txID)

	w, err := a.wallets.Get(tx.WalletID)
	if err != nil {
		unlock()
		return nil, err
	}
	consumed, err := a.nonces.Next(ctx, tx.WalletID)
	if err != nil {
		unlock()
		return nil, err
	}
	tx.Nonce = consumed
	payload := buildPayload(tx, w)

	// Broadcast without holding any lock, then re-validate. The in-flight
	// mark keeps Cancel and the sweep away from this record meanwhile.
	unlock()
	broadcastID, submitErr := a.broadcaster.Submit(ctx, payload)
	unlock = a.txLocks.acquire(txID)

	tx, err = a.bucket.Get(a.db, txID)
	if err != nil {
		unlock()
		return nil, err
	}
	if tx.Status != StatusReady {
		unlock()
		return nil, errors.Wrapf(ErrAlreadyFinalized, "status %s", tx.Status)
	}
	if submitErr != nil {
		unlock()
		a.log.Warn("broadcast failed",
			zap.String("tx_id", tx.ID), zap.Error(submitErr))
		return nil, errors.Wrap(ErrExecutionFailed, submitErr.Error())
	}

	if err := a.nonces.Advance(ctx, tx.WalletID, consumed); err != nil {
		a.log.Error("nonce advance failed after broadcast",
			zap.String("tx_id", tx.ID), zap.Error(err))
	}
	a.limits.Commit(tx.WalletID, tx.ID, a.now())

	tx.Status = StatusExecuted
	tx.Nonce = consumed
	tx.BroadcastID = broadcastID
	tx.ExecutedAt = vaultsig.AsUnixTime(a.now())
	if err := a.bucket.Save(a.db, tx); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	a.metrics.Executed.Inc()
	a.log.Info("transaction executed",
		zap.String("tx_id", tx.ID),
		zap.String("broadcast_id", broadcastID),
		zap.Uint64("nonce", consumed))
	a.publish(ExecutedEvent{Tx: tx.Copy()})
	return &ExecutionHandle{Tx: tx.Copy(), BroadcastID: broadcastID}, nil
}

func buildPayload(tx *Transaction, w *wallet.Wallet) chain.SignedPayload {
	sigs := make([]chain.PayloadSignature, len(tx.Signatures))
	for i, s := range tx.Signatures {
		sigs[i] = chain.PayloadSignature{
			Signer:    s.Signer,
			Signature: s.Signature,
		}
	}
	return chain.SignedPayload{
		ChainID:     tx.ChainID,
		Wallet:      w.Address,
		Destination: tx.Destination,
		Value:       tx.Amount,
		Data:        tx.Data,
		Nonce:       tx.Nonce,
		GasLimit:    tx.GasLimit,
		GasPrice:    tx.GasPrice,
		Signatures:  sigs,
	}
}

// Cancel finalizes a non-terminal transaction as CANCELLED and releases its
// spending reservation. Only a snapshotted signer may cancel.
func (a *Authorizer) Cancel(ctx context.Context, txID string, requestor crypto.PublicKey) (*Transaction, error) {
	unlock := a.txLocks.acquire(txID)

	tx, err := a.loadOpen(txID, &unlock)
	if err != nil {
		return nil, err
	}
	if !tx.HasSigner(requestor) {
		unlock()
		return nil, errors.Wrapf(ErrUnauthorizedSigner, "%s", requestor)
	}
	if a.executing.active(txID) {
		unlock()
		return nil, errors.Wrap(ErrExecutionFailed, "execution in progress")
	}

	tx.Status = StatusCancelled
	if err := a.bucket.Save(a.db, tx); err != nil {
		unlock()
		return nil, err
	}
	a.limits.Release(tx.WalletID, tx.ID)
	unlock()

	a.metrics.Cancelled.Inc()
	a.log.Info("transaction cancelled",
		zap.String("tx_id", tx.ID), zap.String("wallet_id", tx.WalletID))
	a.publish(CancelledEvent{Tx: tx.Copy()})
	return tx.Copy(), nil
}

// ExpireDue runs one sweep pass, finalizing every open transaction whose
// expiry has passed. Returns the number of transactions expired.
func (a *Authorizer) ExpireDue(ctx context.Context) (int, error) {
	ids, err := a.bucket.OpenDue(a.db, vaultsig.AsUnixTime(a.now()))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		unlock := a.txLocks.acquire(id)
		tx, err := a.bucket.Get(a.db, id)
		if err != nil {
			unlock()
			if errors.ErrNotFound.Is(err) {
				continue
			}
			return expired, err
		}
		// Re-check under the lock. The record may have been finalized,
		// or may be mid-broadcast.
		if tx.Status.Terminal() || a.executing.active(id) ||
			vaultsig.AsUnixTime(a.now()) <= tx.ExpiresAt {
			unlock()
			continue
		}
		if err := a.expireLocked(tx); err != nil {
			unlock()
			return expired, err
		}
		unlock()

		expired++
		a.publish(ExpiredEvent{Tx: tx.Copy()})
	}
	return expired, nil
}

// loadOpen fetches the transaction and rejects terminal or expired records.
// A past-expiry record is finalized as EXPIRED on the spot. On error the
// lock is released; on success the caller keeps it.
func (a *Authorizer) loadOpen(txID string, unlock *func()) (*Transaction, error) {
	tx, err := a.bucket.Get(a.db, txID)
	if err != nil {
		(*unlock)()
		return nil, err
	}
	if tx.Status.Terminal() {
		(*unlock)()
		return nil, errors.Wrapf(ErrAlreadyFinalized, "status %s", tx.Status)
	}
	if vaultsig.AsUnixTime(a.now()) > tx.ExpiresAt && !a.executing.active(txID) {
		err := a.expireLocked(tx)
		(*unlock)()
		if err != nil {
			return nil, err
		}
		a.publish(ExpiredEvent{Tx: tx.Copy()})
		return nil, errors.Wrapf(errors.ErrExpired, "transaction %q", txID)
	}
	return tx, nil
}

// expireLocked finalizes the record as EXPIRED and releases its reservation.
// Callers hold the transaction lock and publish the event after unlocking.
func (a *Authorizer) expireLocked(tx *Transaction) error {
	tx.Status = StatusExpired
	if err := a.bucket.Save(a.db, tx); err != nil {
		return err
	}
	a.limits.Release(tx.WalletID, tx.ID)
	a.metrics.Expired.Inc()
	a.log.Info("transaction expired",
		zap.String("tx_id", tx.ID), zap.String("wallet_id", tx.WalletID))
	return nil
}

// RestoreReservations rebuilds the spending ledger from persisted
// transactions: open records re-reserve, executed records inside the monthly
// window re-enter as committed spend. Run once on startup, before serving.
func (a *Authorizer) RestoreReservations(ctx context.Context) error {
	cutoff := a.now().Add(-limits.MonthlyWindow)
	return a.bucket.Iterate(a.db, func(tx *Transaction) bool {
		switch {
		case !tx.Status.Terminal():
			// Reservations bypass the limit check; they were
			// admitted once already.
			_ = a.limits.CheckAndReserve(tx.WalletID, tx.ID, tx.Amount,
				nil, nil, tx.CreatedAt.Time())
		case tx.Status == StatusExecuted && tx.ExecutedAt.Time().After(cutoff):
			a.limits.Rehydrate(tx.WalletID, tx.ID, tx.Amount, tx.ExecutedAt.Time())
		}
		return true
	})
}

func (a *Authorizer) publish(ev events.Event) {
	if a.bus != nil {
		a.bus.Publish(ev)
	}
}
