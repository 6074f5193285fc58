package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock_SecondAcquireBlocksUntilReleased(t *testing.T) {
	l := NewLocalLock()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	acquired := make(chan bool, 1)
	go func() {
		_, ok2, err2 := l.Acquire(context.Background(), "k", time.Second)
		assert.NoError(t, err2)
		acquired <- ok2
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should not have completed before release")
	case <-time.After(30 * time.Millisecond):
	}

	release()
	assert.True(t, <-acquired)
}

func TestLocalLock_AcquireFailsOnContextTimeout(t *testing.T) {
	l := NewLocalLock()

	release, _, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok, err := l.Acquire(ctx, "k", time.Second)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestLocalLock_DifferentKeysDoNotContend(t *testing.T) {
	l := NewLocalLock()

	release1, ok1, err1 := l.Acquire(context.Background(), "k1", time.Second)
	require.NoError(t, err1)
	require.True(t, ok1)
	defer release1()

	release2, ok2, err2 := l.Acquire(context.Background(), "k2", time.Second)
	require.NoError(t, err2)
	require.True(t, ok2)
	defer release2()
}
