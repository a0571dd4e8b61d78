package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/coin"
	"github.com/vaultsig/vaultsig/crypto"
	"github.com/vaultsig/vaultsig/errors"
	"github.com/vaultsig/vaultsig/vaulttest"
)

func validWallet(t *testing.T) *Wallet {
	t.Helper()
	pubs := vaulttest.Publics(vaulttest.Keys(3))
	return &Wallet{
		ID:        "w1",
		Address:   crypto.WalletAddress(pubs, 2, "testnet"),
		ChainID:   "testnet",
		Owners:    pubs,
		Threshold: 2,
		Enabled:   true,
	}
}

func TestWalletValidate(t *testing.T) {
	limit := coin.NewCoin(100, 0, "IOV")

	cases := map[string]struct {
		mutate  func(*Wallet)
		wantErr *errors.Error
	}{
		"valid": {
			mutate: func(w *Wallet) {},
		},
		"missing id": {
			mutate:  func(w *Wallet) { w.ID = "" },
			wantErr: errors.ErrEmpty,
		},
		"missing chain id": {
			mutate:  func(w *Wallet) { w.ChainID = "" },
			wantErr: ErrConfiguration,
		},
		"no owners": {
			mutate:  func(w *Wallet) { w.Owners = nil },
			wantErr: ErrConfiguration,
		},
		"duplicate owner": {
			mutate:  func(w *Wallet) { w.Owners[1] = w.Owners[0] },
			wantErr: ErrConfiguration,
		},
		"threshold zero": {
			mutate:  func(w *Wallet) { w.Threshold = 0 },
			wantErr: ErrConfiguration,
		},
		"threshold above owner count": {
			mutate:  func(w *Wallet) { w.Threshold = 4 },
			wantErr: ErrConfiguration,
		},
		"negative daily limit": {
			mutate: func(w *Wallet) {
				c := coin.NewCoin(-5, 0, "IOV")
				w.DailyLimit = &c
			},
			wantErr: ErrConfiguration,
		},
		"limit ticker mismatch": {
			mutate: func(w *Wallet) {
				d := limit
				m := coin.NewCoin(1000, 0, "BTC")
				w.DailyLimit = &d
				w.MonthlyLimit = &m
			},
			wantErr: ErrConfiguration,
		},
		"valid limits": {
			mutate: func(w *Wallet) {
				d := limit
				m := coin.NewCoin(1000, 0, "IOV")
				w.DailyLimit = &d
				w.MonthlyLimit = &m
			},
		},
		"malformed destination": {
			mutate: func(w *Wallet) {
				w.AllowedDestinations = []vaultsig.Address{{0x01}}
			},
			wantErr: errors.ErrInput,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := validWallet(t)
			tc.mutate(w)
			err := w.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.True(t, tc.wantErr.Is(err), "unexpected error: %+v", err)
			}
		})
	}
}

func TestWalletIsOwner(t *testing.T) {
	w := validWallet(t)
	require.True(t, w.IsOwner(w.Owners[0]))
	require.True(t, w.IsOwner(w.Owners[2]))

	stranger := vaulttest.NewKey("stranger").PublicKey()
	require.False(t, w.IsOwner(stranger))
}

func TestWalletAllowsDestination(t *testing.T) {
	w := validWallet(t)
	a := vaultsig.NewAddress([]byte("a"))
	b := vaultsig.NewAddress([]byte("b"))

	// Empty allow-list admits everything.
	require.True(t, w.AllowsDestination(a))

	w.AllowedDestinations = []vaultsig.Address{a}
	require.True(t, w.AllowsDestination(a))
	require.False(t, w.AllowsDestination(b))
}

func TestWalletCopyIsIndependent(t *testing.T) {
	w := validWallet(t)
	d := coin.NewCoin(10, 0, "IOV")
	w.DailyLimit = &d
	w.AllowedDestinations = []vaultsig.Address{vaultsig.NewAddress([]byte("x"))}

	cp := w.Copy()
	require.Equal(t, w, cp)

	cp.Owners[0][0] ^= 0xff
	cp.DailyLimit.Whole = 999
	cp.AllowedDestinations[0][0] ^= 0xff
	cp.Address[0] ^= 0xff

	assert.False(t, w.Owners[0].Equals(cp.Owners[0]))
	assert.Equal(t, int64(10), w.DailyLimit.Whole)
	assert.False(t, w.AllowedDestinations[0].Equals(cp.AllowedDestinations[0]))
	assert.False(t, w.Address.Equals(cp.Address))
}
