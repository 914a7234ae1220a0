package throttle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "TIMEOUT:Operation timed out", Key(types.ErrorKindTimeout, "Operation timed out"))
}

func TestNew_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, New(0).Window())
	assert.Equal(t, 5*time.Second, DefaultWindow)
	assert.Equal(t, time.Second, New(time.Second).Window())
}

func TestAllow(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	key := Key(types.ErrorKindTimeout, "Operation timed out")

	tests := []struct {
		name   string
		second time.Duration
		want   bool
	}{
		{name: "100ms later is suppressed", second: 100 * time.Millisecond, want: false},
		{name: "just under the window is suppressed", second: 4999 * time.Millisecond, want: false},
		{name: "exactly the window is allowed", second: 5000 * time.Millisecond, want: true},
		{name: "well past the window is allowed", second: time.Minute, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := New(DefaultWindow)
			require.True(t, th.Allow(key, base))
			assert.Equal(t, tt.want, th.Allow(key, base.Add(tt.second)))
		})
	}
}

func TestAllow_SuppressedCallDoesNotRefresh(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th := New(DefaultWindow)
	key := "API:boom"

	require.True(t, th.Allow(key, base))
	require.False(t, th.Allow(key, base.Add(4*time.Second)))

	last, ok := th.LastSeen(key)
	require.True(t, ok)
	assert.Equal(t, base, last)

	// Measured from the first allowed call, not the suppressed one.
	assert.True(t, th.Allow(key, base.Add(5*time.Second)))
}

func TestAllow_DistinctKeysIndependent(t *testing.T) {
	now := time.Now()
	th := New(DefaultWindow)
	assert.True(t, th.Allow(Key(types.ErrorKindAPI, "x"), now))
	assert.True(t, th.Allow(Key(types.ErrorKindTimeout, "x"), now))
	assert.True(t, th.Allow(Key(types.ErrorKindAPI, "y"), now))
	assert.Equal(t, 3, th.Len())
}

func TestAllow_ConcurrentSingleWinner(t *testing.T) {
	th := New(DefaultWindow)
	now := time.Now()
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if th.Allow("RBAC:denied", now) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), allowed.Load())
}

func TestEvict(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th := New(DefaultWindow)
	th.Allow("old", base)
	th.Allow("new", base.Add(50*time.Minute))

	removed := th.Evict(30*time.Minute, base.Add(time.Hour))
	assert.Equal(t, 1, removed)
	_, ok := th.LastSeen("old")
	assert.False(t, ok)
	_, ok = th.LastSeen("new")
	assert.True(t, ok)
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	th := New(DefaultWindow)
	done := make(chan struct{})
	go func() {
		th.Run(context.Background(), 0, time.Minute)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with zero interval should return immediately")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	th := New(DefaultWindow)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		th.Run(ctx, 10*time.Millisecond, time.Minute)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
