package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesOrder(t *testing.T) {
	inputs := []int{5, 4, 3, 2, 1}
	results := Map(context.Background(), 3, inputs, func(ctx context.Context, in int) (int, error) {
		time.Sleep(time.Duration(in) * time.Millisecond)
		return in * 2, nil
	})

	require.Len(t, results, len(inputs))
	for i, r := range results {
		assert.Equal(t, inputs[i], r.Input)
		assert.Equal(t, inputs[i]*2, r.Value)
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, 0, Failed(results))
}

func TestMap_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	inputs := make([]int, 20)

	Map(context.Background(), 2, inputs, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestMap_ErrorsDoNotCancelOthers(t *testing.T) {
	boom := errors.New("boom")
	results := Map(context.Background(), 0, []int{1, 2, 3}, func(ctx context.Context, in int) (int, error) {
		if in == 2 {
			return 0, boom
		}
		return in, nil
	})

	assert.Equal(t, 1, Failed(results))
	assert.ErrorIs(t, results[1].Err, boom)
	assert.Equal(t, 3, results[2].Value)
}

func TestMap_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := Map(ctx, 2, []int{1, 2}, func(ctx context.Context, in int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return in, nil
	})

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, Failed(results))
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}
