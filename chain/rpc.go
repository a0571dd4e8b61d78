package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/errors"
)

// RPC method names of the chain gateway consumed by the daemon. The gateway
// is a thin service owned by the upstream system; the contract here is
// JSON-RPC 2.0 over HTTP POST.
const (
	methodAccountNonce = "chain.AccountNonce"
	methodEstimateGas  = "chain.EstimateGas"
	methodSubmit       = "chain.Submit"
)

// RPCClient implements both Provider and Broadcaster against a chain
// gateway endpoint.
type RPCClient struct {
	url    string
	client *http.Client
}

var (
	_ Provider    = (*RPCClient)(nil)
	_ Broadcaster = (*RPCClient)(nil)
)

// NewRPCClient returns a client for the given gateway URL.
func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type rpcRequest struct {
	Version string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params, result interface{}) error {
	body, err := sonic.Marshal(rpcRequest{
		Version: "2.0",
		ID:      time.Now().UnixNano(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrState, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrState, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrState, "gateway status %d", resp.StatusCode)
	}

	var decoded rpcResponse
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if decoded.Error != nil {
		return errors.Wrapf(errors.ErrState, "gateway error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if result != nil {
		if err := sonic.Unmarshal(decoded.Result, result); err != nil {
			return errors.Wrap(errors.ErrInput, err.Error())
		}
	}
	return nil
}

type accountNonceParams struct {
	Address string `json:"address"`
	ChainID string `json:"chain_id"`
}

func (c *RPCClient) AccountNonce(ctx context.Context, addr vaultsig.Address, chainID string) (uint64, error) {
	var result struct {
		Nonce uint64 `json:"nonce"`
	}
	params := accountNonceParams{Address: addr.String(), ChainID: chainID}
	if err := c.call(ctx, methodAccountNonce, params, &result); err != nil {
		return 0, errors.Wrap(err, "account nonce")
	}
	return result.Nonce, nil
}

func (c *RPCClient) EstimateGas(ctx context.Context, req EstimateReq) (uint64, error) {
	var result struct {
		Gas uint64 `json:"gas"`
	}
	if err := c.call(ctx, methodEstimateGas, req, &result); err != nil {
		return 0, errors.Wrap(err, "estimate gas")
	}
	return result.Gas, nil
}

func (c *RPCClient) Submit(ctx context.Context, payload SignedPayload) (string, error) {
	var result struct {
		BroadcastID string `json:"broadcast_id"`
	}
	if err := c.call(ctx, methodSubmit, payload, &result); err != nil {
		return "", errors.Wrap(err, "submit")
	}
	return result.BroadcastID, nil
}
