package authz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/coin"
	"github.com/vaultsig/vaultsig/errors"
	"github.com/vaultsig/vaultsig/store"
	"github.com/vaultsig/vaultsig/vaulttest"
)

func bucketTx(id string, expiresAt vaultsig.UnixTime) *Transaction {
	signers := vaulttest.Publics(vaulttest.Keys(2))
	return &Transaction{
		ID:          id,
		WalletID:    "w1",
		ChainID:     "testnet",
		Destination: vaultsig.NewAddress([]byte("destination")),
		Amount:      coin.NewCoin(1, 0, "IOV"),
		Required:    1,
		Signers:     signers,
		Status:      StatusPending,
		CreatedAt:   100,
		ExpiresAt:   expiresAt,
	}
}

func TestBucketRoundtrip(t *testing.T) {
	db := store.NewMemStore()
	b := NewBucket()

	tx := bucketTx("tx1", 200)
	tx.Signatures = []StdSignature{{
		Signer:    tx.Signers[0],
		Signature: []byte("sig"),
		SignedAt:  150,
	}}
	require.NoError(t, b.Save(db, tx))

	got, err := b.Get(db, "tx1")
	require.NoError(t, err)
	assert.Equal(t, tx, got)

	_, err = b.Get(db, "missing")
	require.True(t, errors.ErrNotFound.Is(err))
}

func TestBucketRejectsInvalid(t *testing.T) {
	db := store.NewMemStore()
	b := NewBucket()

	tx := bucketTx("tx1", 200)
	tx.Required = 5
	require.Error(t, b.Save(db, tx))
}

func TestBucketOpenDue(t *testing.T) {
	db := store.NewMemStore()
	b := NewBucket()

	for i, expiry := range []vaultsig.UnixTime{150, 200, 250} {
		require.NoError(t, b.Save(db, bucketTx(fmt.Sprintf("tx%d", i), expiry)))
	}

	due, err := b.OpenDue(db, 100)
	require.NoError(t, err)
	assert.Empty(t, due)

	// A record expiring exactly at now is not yet due.
	due, err = b.OpenDue(db, 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx0"}, due)

	due, err = b.OpenDue(db, 201)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx0", "tx1"}, due)

	due, err = b.OpenDue(db, 999)
	require.NoError(t, err)
	assert.Len(t, due, 3)

	// Finalizing a record drops it from the index.
	tx, err := b.Get(db, "tx0")
	require.NoError(t, err)
	tx.Status = StatusCancelled
	require.NoError(t, b.Save(db, tx))

	due, err = b.OpenDue(db, 999)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx1", "tx2"}, due)
}

func TestBucketIterate(t *testing.T) {
	db := store.NewMemStore()
	b := NewBucket()

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Save(db, bucketTx(fmt.Sprintf("tx%d", i), 200)))
	}

	var ids []string
	require.NoError(t, b.Iterate(db, func(tx *Transaction) bool {
		ids = append(ids, tx.ID)
		return len(ids) < 3
	}))
	assert.Len(t, ids, 3)
}
