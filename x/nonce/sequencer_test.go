package nonce

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsig/vaultsig/events"
	"github.com/vaultsig/vaultsig/store"
	"github.com/vaultsig/vaultsig/vaulttest"
	"github.com/vaultsig/vaultsig/x/wallet"
)

func setup(t *testing.T, provider *vaulttest.ChainProvider) (*Sequencer, *wallet.Wallet, *wallet.Registry) {
	t.Helper()
	reg := wallet.NewRegistry(store.NewMemStore(), wallet.RegistryConfig{})
	w, err := reg.Create(context.Background(), wallet.CreateReq{
		Owners:    vaulttest.Publics(vaulttest.Keys(2)),
		Threshold: 1,
		ChainID:   "testnet",
	})
	require.NoError(t, err)
	return NewSequencer(reg, provider, nil, nil), w, reg
}

func TestSequencerNextDoesNotAdvance(t *testing.T) {
	seq, w, _ := setup(t, &vaulttest.ChainProvider{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := seq.Next(ctx, w.ID)
		require.NoError(t, err)
		require.Equal(t, uint64(0), n)
	}
}

func TestSequencerAdvance(t *testing.T) {
	seq, w, _ := setup(t, &vaulttest.ChainProvider{})
	ctx := context.Background()

	require.NoError(t, seq.Advance(ctx, w.ID, 0))
	n, err := seq.Next(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	// A stale advance for an already consumed nonce is a no-op.
	require.NoError(t, seq.Advance(ctx, w.ID, 0))
	n, err = seq.Next(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	require.NoError(t, seq.Advance(ctx, w.ID, 5))
	n, err = seq.Next(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(6), n)
}

func TestSequencerReconcile(t *testing.T) {
	provider := &vaulttest.ChainProvider{}
	seq, w, _ := setup(t, provider)
	ctx := context.Background()

	t.Run("raises when chain is ahead", func(t *testing.T) {
		provider.SetNonce(w.Address, 7)
		require.NoError(t, seq.Reconcile(ctx, w.ID))
		n, err := seq.Next(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), n)
	})

	t.Run("never lowers", func(t *testing.T) {
		provider.SetNonce(w.Address, 2)
		require.NoError(t, seq.Reconcile(ctx, w.ID))
		n, err := seq.Next(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), n)
	})

	t.Run("propagates provider failure", func(t *testing.T) {
		provider.NonceErr = errors.New("gateway down")
		require.Error(t, seq.Reconcile(ctx, w.ID))
		provider.NonceErr = nil
	})
}

func TestSequencerReconcilePublishesEvent(t *testing.T) {
	provider := &vaulttest.ChainProvider{}
	reg := wallet.NewRegistry(store.NewMemStore(), wallet.RegistryConfig{})
	w, err := reg.Create(context.Background(), wallet.CreateReq{
		Owners:    vaulttest.Publics(vaulttest.Keys(1)),
		Threshold: 1,
		ChainID:   "testnet",
	})
	require.NoError(t, err)

	bus := events.NewBus(nil)
	var got []ReconciledEvent
	events.SubscribeSync(bus, func(ev ReconciledEvent) {
		got = append(got, ev)
	})

	seq := NewSequencer(reg, provider, bus, nil)
	provider.SetNonce(w.Address, 3)
	require.NoError(t, seq.Reconcile(context.Background(), w.ID))

	require.Len(t, got, 1)
	assert.Equal(t, w.ID, got[0].WalletID)
	assert.Equal(t, uint64(0), got[0].Old)
	assert.Equal(t, uint64(3), got[0].New)

	// Nothing happens when local and chain already agree.
	require.NoError(t, seq.Reconcile(context.Background(), w.ID))
	require.Len(t, got, 1)
}

func TestSequencerReconcileAllContinuesOnFailure(t *testing.T) {
	provider := &vaulttest.ChainProvider{}
	reg := wallet.NewRegistry(store.NewMemStore(), wallet.RegistryConfig{})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		w, err := reg.Create(ctx, wallet.CreateReq{
			Owners:    vaulttest.Publics(vaulttest.Keys(i + 1)),
			Threshold: 1,
			ChainID:   "testnet",
		})
		require.NoError(t, err)
		ids = append(ids, w.ID)
		provider.SetNonce(w.Address, uint64(10+i))
	}

	seq := NewSequencer(reg, provider, nil, nil)
	require.NoError(t, seq.ReconcileAll(ctx))

	for i, id := range ids {
		n, err := seq.Next(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint64(10+i), n)
	}
}
