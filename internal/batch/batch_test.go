package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	outcomes := Map(context.Background(), items, 2, func(_ context.Context, n int) (string, error) {
		return fmt.Sprintf("v%d", n), nil
	})

	require.Len(t, outcomes, 5)
	for i, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.Equal(t, fmt.Sprintf("v%d", items[i]), o.Value)
	}
}

func TestMapIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")

	outcomes := Map(context.Background(), []int{1, 2, 3}, 3, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n * 10, nil
	})

	assert.Equal(t, 10, outcomes[0].Value)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.Equal(t, 30, outcomes[2].Value, "a failed sibling must not cancel other items")
}

func TestMapRespectsLimit(t *testing.T) {
	var current, peak int32
	var mu sync.Mutex

	Map(context.Background(), make([]struct{}, 20), 3, func(_ context.Context, _ struct{}) (struct{}, error) {
		n := atomic.AddInt32(&current, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		atomic.AddInt32(&current, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak, int32(3))
}

func TestMapEmptyInput(t *testing.T) {
	outcomes := Map(context.Background(), nil, 4, func(_ context.Context, _ int) (int, error) {
		t.Fatal("must not be called")
		return 0, nil
	})
	assert.Empty(t, outcomes)
}
