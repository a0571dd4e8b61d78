package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSweeperExpiresInBackground(t *testing.T) {
	f := newFixture(t, nil, nil)

	req := f.createReq()
	req.Timeout = time.Hour
	tx, err := f.auth.Create(context.Background(), req)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewSweeper(f.auth, 5*time.Millisecond, nil).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		got, err := f.auth.Get(context.Background(), tx.ID)
		require.NoError(t, err)
		return got.Status == StatusExpired
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}
