package match

import (
	"sync"
	"sync/atomic"
)

// RunHandle controls a continuous round loop started by RunContinuously.
type RunHandle struct {
	stopped atomic.Bool
	done    chan struct{}
	mutex   sync.Mutex
	err     error
}

func newRunHandle() *RunHandle {
	return &RunHandle{done: make(chan struct{})}
}

// Stop asks the loop to exit. A round in flight is allowed to finish.
func (h *RunHandle) Stop() {
	h.stopped.Store(true)
}

// IsRunning reports whether the loop is active and has not been asked to stop.
func (h *RunHandle) IsRunning() bool {
	if h.stopped.Load() {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Done is closed once the loop goroutine has exited.
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the error that terminated the loop. A stop request, an
// aborted player or a player leaving all end the loop without error.
func (h *RunHandle) Err() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.err
}

func (h *RunHandle) stopRequested() bool {
	return h.stopped.Load()
}

func (h *RunHandle) finish(err error) {
	h.mutex.Lock()
	h.err = err
	h.mutex.Unlock()
	close(h.done)
}
