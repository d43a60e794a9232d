package sessioncache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
	"github.com/stretchr/testify/require"
)

func countingLoader(calls *atomic.Int32) segment.Loader {
	return func(ctx context.Context, id model.ModelID) (segment.Session, error) {
		calls.Add(1)
		return &mockSession{id: id}, nil
	}
}

func TestCache_Get_SameInstance(t *testing.T) {
	var calls atomic.Int32
	c := New(countingLoader(&calls))

	s1, err := c.Get(context.Background(), model.ModelGeneral)
	require.NoError(t, err)
	s2, err := c.Get(context.Background(), model.ModelGeneral)
	require.NoError(t, err)

	require.Same(t, s1, s2)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, 1, c.Len())
}

func TestCache_Get_DistinctModels(t *testing.T) {
	var calls atomic.Int32
	c := New(countingLoader(&calls))

	s1, err := c.Get(context.Background(), model.ModelGeneral)
	require.NoError(t, err)
	s2, err := c.Get(context.Background(), model.ModelLightWght)
	require.NoError(t, err)

	require.NotSame(t, s1, s2)
	require.Equal(t, model.ModelGeneral, s1.Model())
	require.Equal(t, model.ModelLightWght, s2.Model())
	require.Equal(t, 2, c.Len())
}

func TestCache_Get_FailureNotCached(t *testing.T) {
	attempts := 0
	c := New(func(ctx context.Context, id model.ModelID) (segment.Session, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("weights unavailable")
		}
		return &mockSession{id: id}, nil
	})

	_, err := c.Get(context.Background(), model.ModelHumanSeg)
	require.ErrorIs(t, err, model.ErrModelLoad)
	require.Zero(t, c.Len())

	s, err := c.Get(context.Background(), model.ModelHumanSeg)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, 2, attempts)
}

func TestCache_Get_NilSession(t *testing.T) {
	c := New(func(ctx context.Context, id model.ModelID) (segment.Session, error) {
		return nil, nil
	})

	_, err := c.Get(context.Background(), model.ModelGeneral)
	require.ErrorIs(t, err, model.ErrModelLoad)
}

func TestCache_Get_ConcurrentSameModel(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(func(ctx context.Context, id model.ModelID) (segment.Session, error) {
		calls.Add(1)
		<-release
		return &mockSession{id: id}, nil
	})

	const n = 10
	got := make([]segment.Session, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.Get(context.Background(), model.ModelGeneral)
			require.NoError(t, err)
			got[i] = s
		}()
	}

	// даем горутинам встать в очередь singleflight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for i := 1; i < n; i++ {
		require.Same(t, got[0], got[i])
	}
}

func TestCache_Close(t *testing.T) {
	var calls atomic.Int32
	c := New(countingLoader(&calls))

	s, err := c.Get(context.Background(), model.ModelGeneral)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.True(t, s.(*mockSession).closed)
	require.Zero(t, c.Len())

	_, err = c.Get(context.Background(), model.ModelGeneral)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}
