package benchmark

import (
	"sync"
	"sync/atomic"
	"time"
)

// StopToken is a one-way stop signal shared by the monitor and all workers.
// Once signaled it stays signaled.
type StopToken struct {
	signaled atomic.Bool
	once     sync.Once
	done     chan struct{}
}

// NewStopToken returns an unsignaled token
func NewStopToken() *StopToken {
	return &StopToken{done: make(chan struct{})}
}

// Signal sets the token. Calling it more than once is harmless.
func (s *StopToken) Signal() {
	s.once.Do(func() {
		s.signaled.Store(true)
		close(s.done)
	})
}

// IsSignaled reports whether Signal was called, without blocking
func (s *StopToken) IsSignaled() bool {
	return s.signaled.Load()
}

// Done returns a channel that is closed once the token is signaled
func (s *StopToken) Done() <-chan struct{} {
	return s.done
}

// StartTimer signals the token after d. The returned timer can be stopped
// if the run ends early.
func (s *StopToken) StartTimer(d time.Duration) *time.Timer {
	return time.AfterFunc(d, s.Signal)
}
