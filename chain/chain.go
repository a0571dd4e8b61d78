// Package chain declares the external collaborators this subsystem consumes:
// a chain state provider for nonce and gas lookups and a broadcaster that
// submits fully authorized transactions. Both are network services owned by
// other parts of the system, this package only fixes their contract and
// provides a degrade-to-cache wrapper plus a thin RPC client.
package chain

import (
	"context"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/coin"
)

// Provider exposes chain state lookups. Failures must degrade to cached or
// local values on the caller side, never block an authorization flow.
type Provider interface {
	// AccountNonce returns the next valid nonce for the account as the
	// chain sees it.
	AccountNonce(ctx context.Context, addr vaultsig.Address, chainID string) (uint64, error)

	// EstimateGas estimates the gas required for the described call.
	EstimateGas(ctx context.Context, req EstimateReq) (uint64, error)
}

// EstimateReq describes a call for gas estimation.
type EstimateReq struct {
	ChainID string           `json:"chain_id"`
	From    vaultsig.Address `json:"from"`
	To      vaultsig.Address `json:"to"`
	Value   coin.Coin        `json:"value"`
	Data    []byte           `json:"data"`
}

// PayloadSignature is a single collected signature inside the submitted
// payload, preserving signing order.
type PayloadSignature struct {
	Signer    []byte `json:"signer"`
	Signature []byte `json:"signature"`
}

// SignedPayload is the assembled, fully authorized transaction handed over
// for broadcasting.
type SignedPayload struct {
	ChainID     string             `json:"chain_id"`
	Wallet      vaultsig.Address   `json:"wallet"`
	Destination vaultsig.Address   `json:"destination"`
	Value       coin.Coin          `json:"value"`
	Data        []byte             `json:"data"`
	Nonce       uint64             `json:"nonce"`
	GasLimit    uint64             `json:"gas_limit"`
	GasPrice    uint64             `json:"gas_price"`
	Signatures  []PayloadSignature `json:"signatures"`
}

// Broadcaster submits an authorized payload to the network and returns the
// broadcast identifier assigned by the chain gateway.
type Broadcaster interface {
	Submit(ctx context.Context, payload SignedPayload) (string, error)
}
