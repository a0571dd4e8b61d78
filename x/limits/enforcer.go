// Package limits tracks cumulative wallet spending against rolling daily and
// monthly windows. The ledger is kept in memory and can be rebuilt from
// persisted transactions on startup, so losing it is never a correctness
// problem, only a short window of over-permissiveness after a restart
// without rehydration.
package limits

import (
	"sync"
	"time"

	"github.com/vaultsig/vaultsig/coin"
	"github.com/vaultsig/vaultsig/errors"
)

const (
	// DailyWindow is the rolling window the daily limit applies to.
	DailyWindow = 24 * time.Hour
	// MonthlyWindow is the rolling window the monthly limit applies to.
	MonthlyWindow = 30 * 24 * time.Hour
)

// entry is a single reservation or committed spend.
type entry struct {
	txID      string
	amount    coin.Coin
	at        time.Time
	committed bool
}

// Enforcer keeps per-wallet spending ledgers. A transaction's amount is
// reserved when it enters the pipeline and either released (cancel, expiry)
// or committed (execution). Committed amounts keep counting toward the
// windows until they age out.
type Enforcer struct {
	mu      sync.Mutex
	entries map[string][]entry
}

// NewEnforcer returns an empty enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{
		entries: make(map[string][]entry),
	}
}

// CheckAndReserve reserves amount against the wallet's windows. Nil limits
// are unlimited. Returns ErrLimitExceeded when the reservation would cross
// either configured limit; nothing is recorded in that case.
func (e *Enforcer) CheckAndReserve(walletID, txID string, amount coin.Coin, daily, monthly *coin.Coin, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prune(walletID, now)

	if daily != nil {
		spent, err := e.spentSince(walletID, now.Add(-DailyWindow), amount.Ticker)
		if err != nil {
			return err
		}
		if err := checkLimit(spent, amount, *daily, "daily"); err != nil {
			return err
		}
	}
	if monthly != nil {
		spent, err := e.spentSince(walletID, now.Add(-MonthlyWindow), amount.Ticker)
		if err != nil {
			return err
		}
		if err := checkLimit(spent, amount, *monthly, "monthly"); err != nil {
			return err
		}
	}

	e.entries[walletID] = append(e.entries[walletID], entry{
		txID:   txID,
		amount: amount,
		at:     now,
	})
	return nil
}

func checkLimit(spent, amount, limit coin.Coin, window string) error {
	total, err := spent.Add(amount)
	if err != nil {
		return err
	}
	if !limit.IsGTE(total) {
		return errors.Wrapf(ErrLimitExceeded,
			"%s limit %s, already spent %s, requested %s",
			window, limit, spent, amount)
	}
	return nil
}

// spentSince sums reservations and committed spends not older than the
// cutoff. Only entries with the matching ticker count; a wallet limit and
// its transactions always share one ticker per wallet validation.
func (e *Enforcer) spentSince(walletID string, cutoff time.Time, ticker string) (coin.Coin, error) {
	sum := coin.NewCoin(0, 0, ticker)
	for _, ent := range e.entries[walletID] {
		if ent.at.Before(cutoff) || ent.amount.Ticker != ticker {
			continue
		}
		var err error
		sum, err = sum.Add(ent.amount)
		if err != nil {
			return coin.Coin{}, err
		}
	}
	return sum, nil
}

// Release drops the reservation for the transaction. Releasing an unknown or
// already committed transaction is a no-op.
func (e *Enforcer) Release(walletID, txID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ledger := e.entries[walletID]
	for i, ent := range ledger {
		if ent.txID != txID || ent.committed {
			continue
		}
		e.entries[walletID] = append(ledger[:i], ledger[i+1:]...)
		return
	}
}

// Commit marks the reservation as executed spend, restamped to the commit
// time. The amount counts toward the rolling windows from execution, not
// from when the reservation was taken, and keeps counting until it ages
// out.
func (e *Enforcer) Commit(walletID, txID string, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ledger := e.entries[walletID]
	for i := range ledger {
		if ledger[i].txID == txID {
			ledger[i].committed = true
			ledger[i].at = at
			return
		}
	}
}

// Rehydrate loads a committed spend into the ledger. Used on startup to
// rebuild the windows from persisted executed transactions.
func (e *Enforcer) Rehydrate(walletID, txID string, amount coin.Coin, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.entries[walletID] = append(e.entries[walletID], entry{
		txID:      txID,
		amount:    amount,
		at:        at,
		committed: true,
	})
}

// prune drops committed entries older than the monthly window. Uncommitted
// reservations are kept regardless of age: they back a live transaction and
// leave the ledger only through Release or Commit. Callers hold e.mu.
func (e *Enforcer) prune(walletID string, now time.Time) {
	cutoff := now.Add(-MonthlyWindow)
	ledger := e.entries[walletID]
	kept := ledger[:0]
	for _, ent := range ledger {
		if !ent.committed || !ent.at.Before(cutoff) {
			kept = append(kept, ent)
		}
	}
	if len(kept) == 0 {
		delete(e.entries, walletID)
		return
	}
	e.entries[walletID] = kept
}
