// Package vaulttest provides helpers for building tests. They are meant to
// keep test setup short and deterministic, not to be used in production
// code.
package vaulttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/chain"
	"github.com/vaultsig/vaultsig/crypto"
)

// NewKey returns a deterministic private key derived from the given label.
// The same label always produces the same key.
func NewKey(label string) crypto.PrivateKey {
	var seed [32]byte
	copy(seed[:], label)
	return crypto.PrivateKeyFromSeed(seed[:])
}

// Keys returns n deterministic private keys.
func Keys(n int) []crypto.PrivateKey {
	out := make([]crypto.PrivateKey, n)
	for i := range out {
		out[i] = NewKey(fmt.Sprintf("key-%d", i))
	}
	return out
}

// Publics extracts the public keys.
func Publics(keys []crypto.PrivateKey) []crypto.PublicKey {
	out := make([]crypto.PublicKey, len(keys))
	for i, k := range keys {
		out[i] = k.PublicKey()
	}
	return out
}

// ChainProvider is a scriptable chain.Provider implementation.
type ChainProvider struct {
	mu sync.Mutex

	// Nonces maps address hex to the nonce returned by AccountNonce.
	Nonces map[string]uint64
	// NonceErr, when set, makes AccountNonce fail.
	NonceErr error

	// Gas is returned from EstimateGas.
	Gas      uint64
	GasErr   error
	GasCalls int
}

var _ chain.Provider = (*ChainProvider)(nil)

func (p *ChainProvider) AccountNonce(ctx context.Context, addr vaultsig.Address, chainID string) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NonceErr != nil {
		return 0, p.NonceErr
	}
	return p.Nonces[addr.String()], nil
}

func (p *ChainProvider) EstimateGas(ctx context.Context, req chain.EstimateReq) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GasCalls++
	if p.GasErr != nil {
		return 0, p.GasErr
	}
	return p.Gas, nil
}

// SetNonce scripts the nonce returned for an address.
func (p *ChainProvider) SetNonce(addr vaultsig.Address, nonce uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Nonces == nil {
		p.Nonces = make(map[string]uint64)
	}
	p.Nonces[addr.String()] = nonce
}

// Broadcaster records submitted payloads and returns scripted results.
type Broadcaster struct {
	mu sync.Mutex

	// Err, when set, makes every Submit fail.
	Err error
	// ID is the broadcast id returned on success. Defaults to
	// "broadcast-<n>" where n is the submission count.
	ID string
	// Delay, when set, is slept before returning. Useful for racing
	// concurrent executions.
	Delay time.Duration

	Submitted []chain.SignedPayload
}

var _ chain.Broadcaster = (*Broadcaster)(nil)

func (b *Broadcaster) Submit(ctx context.Context, payload chain.SignedPayload) (string, error) {
	b.mu.Lock()
	b.Submitted = append(b.Submitted, payload)
	n := len(b.Submitted)
	err := b.Err
	id := b.ID
	delay := b.Delay
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if id == "" {
		id = fmt.Sprintf("broadcast-%d", n)
	}
	return id, nil
}

// Count returns the number of Submit calls so far.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Submitted)
}

// Clock is a controllable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at the given time.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current scripted time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
