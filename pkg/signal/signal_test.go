package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WaitForShutdown(ctx, time.Second, func(ctx context.Context) error {
		called = true
		assert.NoError(t, ctx.Err(), "shutdown context must outlive the trigger")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestShutdownErrorIsReturned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	boom := errors.New("boom")
	assert.ErrorIs(t, WaitForShutdown(ctx, time.Second, func(context.Context) error { return boom }), boom)
}

func TestShutdownTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitForShutdown(ctx, 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, ErrShutdownTimeout)
}

func TestNilShutdownFunc(t *testing.T) {
	assert.Error(t, WaitForShutdown(context.Background(), time.Second, nil))
}
