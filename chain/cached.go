package chain

import (
	"context"
	"sync"

	"go.uber.org/zap"

	vaultsig "github.com/vaultsig/vaultsig"
)

// CachedProvider wraps a Provider and remembers the last successful answer
// per account. When the wrapped provider fails, the cached value is served
// instead so chain outages degrade reads rather than blocking wallet
// creation or nonce reconciliation.
type CachedProvider struct {
	inner Provider
	log   *zap.Logger

	mu     sync.Mutex
	nonces map[string]uint64
	gas    map[string]uint64
}

var _ Provider = (*CachedProvider)(nil)

// NewCachedProvider wraps the given provider. A nil logger disables logging.
func NewCachedProvider(inner Provider, log *zap.Logger) *CachedProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedProvider{
		inner:  inner,
		log:    log,
		nonces: make(map[string]uint64),
		gas:    make(map[string]uint64),
	}
}

func (p *CachedProvider) AccountNonce(ctx context.Context, addr vaultsig.Address, chainID string) (uint64, error) {
	key := chainID + "/" + addr.String()

	nonce, err := p.inner.AccountNonce(ctx, addr, chainID)
	if err == nil {
		p.mu.Lock()
		p.nonces[key] = nonce
		p.mu.Unlock()
		return nonce, nil
	}

	p.mu.Lock()
	cached, ok := p.nonces[key]
	p.mu.Unlock()
	if ok {
		p.log.Warn("account nonce lookup failed, serving cached value",
			zap.String("address", addr.String()),
			zap.String("chain_id", chainID),
			zap.Uint64("nonce", cached),
			zap.Error(err))
		return cached, nil
	}
	return 0, err
}

func (p *CachedProvider) EstimateGas(ctx context.Context, req EstimateReq) (uint64, error) {
	key := req.ChainID + "/" + req.To.String()

	estimate, err := p.inner.EstimateGas(ctx, req)
	if err == nil {
		p.mu.Lock()
		p.gas[key] = estimate
		p.mu.Unlock()
		return estimate, nil
	}

	p.mu.Lock()
	cached, ok := p.gas[key]
	p.mu.Unlock()
	if ok {
		p.log.Warn("gas estimation failed, serving cached value",
			zap.String("destination", req.To.String()),
			zap.String("chain_id", req.ChainID),
			zap.Uint64("gas", cached),
			zap.Error(err))
		return cached, nil
	}
	return 0, err
}
