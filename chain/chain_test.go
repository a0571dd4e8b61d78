package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/coin"
	"github.com/vaultsig/vaultsig/errors"
)

// scriptedProvider answers with fixed values until failing is flipped.
type scriptedProvider struct {
	nonce   uint64
	gas     uint64
	failing bool
}

func (p *scriptedProvider) AccountNonce(ctx context.Context, addr vaultsig.Address, chainID string) (uint64, error) {
	if p.failing {
		return 0, errors.ErrState.New("rpc down")
	}
	return p.nonce, nil
}

func (p *scriptedProvider) EstimateGas(ctx context.Context, req EstimateReq) (uint64, error) {
	if p.failing {
		return 0, errors.ErrState.New("rpc down")
	}
	return p.gas, nil
}

func TestCachedProviderServesLastKnownGood(t *testing.T) {
	inner := &scriptedProvider{nonce: 7, gas: 21000}
	cached := NewCachedProvider(inner, nil)

	addr := vaultsig.NewAddress([]byte("account"))
	ctx := context.Background()

	nonce, err := cached.AccountNonce(ctx, addr, "test-chain")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	inner.failing = true

	// Cached value survives the outage.
	nonce, err = cached.AccountNonce(ctx, addr, "test-chain")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	// Unknown account has nothing cached, the failure propagates.
	_, err = cached.AccountNonce(ctx, vaultsig.NewAddress([]byte("other")), "test-chain")
	require.Error(t, err)
}

func TestCachedProviderGas(t *testing.T) {
	inner := &scriptedProvider{gas: 50000}
	cached := NewCachedProvider(inner, nil)

	req := EstimateReq{
		ChainID: "test-chain",
		To:      vaultsig.NewAddress([]byte("contract")),
		Value:   coin.NewCoin(1, 0, "ETH"),
	}

	gas, err := cached.EstimateGas(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(50000), gas)

	inner.failing = true
	gas, err = cached.EstimateGas(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(50000), gas)
}

func TestRPCClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch req.Method {
		case methodAccountNonce:
			result = map[string]uint64{"nonce": 42}
		case methodEstimateGas:
			result = map[string]uint64{"gas": 21000}
		case methodSubmit:
			result = map[string]string{"broadcast_id": "0xbeef"}
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewRPCClient(srv.URL)
	ctx := context.Background()

	nonce, err := client.AccountNonce(ctx, vaultsig.NewAddress([]byte("account")), "test-chain")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), nonce)

	gas, err := client.EstimateGas(ctx, EstimateReq{ChainID: "test-chain"})
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)

	id, err := client.Submit(ctx, SignedPayload{ChainID: "test-chain"})
	require.NoError(t, err)
	assert.Equal(t, "0xbeef", id)
}

func TestRPCClientGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]interface{}{"code": -32000, "message": "mempool full"},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewRPCClient(srv.URL)
	_, err := client.Submit(context.Background(), SignedPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mempool full")
}
