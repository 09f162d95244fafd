package stream

import (
	"sync"
	"time"
)

// DefaultTimeout is how long a stream may stay silent.
const DefaultTimeout = 60 * time.Second

// Monitor calls onExpire once if it is not reset within the timeout.
type Monitor struct {
	timeout  time.Duration
	onExpire func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewMonitor returns a disarmed monitor.
func NewMonitor(timeout time.Duration, onExpire func()) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Monitor{timeout: timeout, onExpire: onExpire}
}

// Start arms the monitor.
func (m *Monitor) Start() {
	m.Reset()
}

// Reset restarts the countdown. It does nothing once the monitor is stopped.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.gen++
	gen := m.gen
	m.timer = time.AfterFunc(m.timeout, func() { m.fire(gen) })
}

// Stop disarms the monitor. It is safe to call any number of times and
// reports whether this call did the disarming.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return false
	}
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
	}
	return true
}

// Timeout returns the configured silence limit.
func (m *Monitor) Timeout() time.Duration {
	return m.timeout
}

func (m *Monitor) fire(gen uint64) {
	m.mu.Lock()
	// a timer that was replaced or stopped may still fire
	if m.stopped || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.onExpire()
}
