package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/coin"
)

func digestTx() *Transaction {
	return &Transaction{
		ID:          "tx1",
		WalletID:    "w1",
		ChainID:     "testnet",
		Destination: vaultsig.NewAddress([]byte("destination")),
		Amount:      coin.NewCoin(5, 250, "IOV"),
		Data:        []byte("payload"),
		Nonce:       7,
	}
}

func TestDigestDeterministic(t *testing.T) {
	a, err := digestTx().Digest()
	require.NoError(t, err)
	b, err := digestTx().Digest()
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestDigestBindsEveryField(t *testing.T) {
	base, err := digestTx().Digest()
	require.NoError(t, err)

	mutations := map[string]func(*Transaction){
		"chain id":    func(tx *Transaction) { tx.ChainID = "mainnet" },
		"nonce":       func(tx *Transaction) { tx.Nonce = 8 },
		"destination": func(tx *Transaction) { tx.Destination = vaultsig.NewAddress([]byte("other")) },
		"amount":      func(tx *Transaction) { tx.Amount = coin.NewCoin(6, 250, "IOV") },
		"ticker":      func(tx *Transaction) { tx.Amount.Ticker = "BTC" },
		"data":        func(tx *Transaction) { tx.Data = []byte("other payload") },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			tx := digestTx()
			mutate(tx)
			got, err := tx.Digest()
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestDigestFieldsCannotShift(t *testing.T) {
	// Moving a byte between adjacent variable length fields must change
	// the digest; the length prefix prevents ambiguity.
	a := digestTx()
	a.ChainID = "testnetX"
	a.Data = []byte("payload")

	b := digestTx()
	b.ChainID = "testnet"
	b.Data = []byte("Xpayload")

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	require.NotEqual(t, da, db)
}

func TestSignBytesRejectsBadInput(t *testing.T) {
	tx := digestTx()
	tx.ChainID = ""
	_, err := tx.SignBytes()
	require.Error(t, err)

	tx = digestTx()
	tx.Destination = vaultsig.Address{0x01}
	_, err = tx.SignBytes()
	require.Error(t, err)
}
