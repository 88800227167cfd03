package benchmark

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopToken(t *testing.T) {
	stop := NewStopToken()
	assert.False(t, stop.IsSignaled())
	select {
	case <-stop.Done():
		t.Fatal("done before signal")
	default:
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stop.Signal()
		}()
	}
	wg.Wait()

	assert.True(t, stop.IsSignaled())
	<-stop.Done()
	stop.Signal()
	assert.True(t, stop.IsSignaled(), "never reverts")
}

func TestStopTokenTimer(t *testing.T) {
	stop := NewStopToken()
	stop.StartTimer(10 * time.Millisecond)

	select {
	case <-stop.Done():
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timer never signaled")
	}
	assert.True(t, stop.IsSignaled())

	stopped := NewStopToken()
	timer := stopped.StartTimer(time.Hour)
	assert.True(t, timer.Stop())
	assert.False(t, stopped.IsSignaled())
}
