package device

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKeepsOrder(t *testing.T) {
	m := NewManager[string](WithWorkerLimit[string](3))
	serials := []string{"a", "b", "c", "d", "e"}

	results := m.Run(context.Background(), serials, func(_ context.Context, serial string) (string, error) {
		if serial == "c" {
			return "", fmt.Errorf("offline")
		}
		return "spec-" + serial, nil
	})

	require.Len(t, results, len(serials))
	for i, res := range results {
		assert.Equal(t, serials[i], res.Serial)
		if res.Serial == "c" {
			assert.EqualError(t, res.Err, "offline")
			continue
		}
		assert.NoError(t, res.Err)
		assert.Equal(t, "spec-"+res.Serial, res.Value)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	m := NewManager[int](WithWorkerLimit[int](2))
	var running, peak int32

	m.Run(context.Background(), []string{"1", "2", "3", "4", "5", "6"}, func(context.Context, string) (int, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return 0, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager[int](WithWorkerLimit[int](1))
	results := m.Run(ctx, []string{"a", "b"}, func(ctx context.Context, _ string) (int, error) {
		return 0, ctx.Err()
	})

	require.Len(t, results, 2)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
}

func TestRunEmpty(t *testing.T) {
	m := NewManager[int](WithWorkerLimit[int](0))
	assert.Empty(t, m.Run(context.Background(), nil, nil))
}
