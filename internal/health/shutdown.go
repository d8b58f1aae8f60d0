package health

import "sync/atomic"

// ready gates the readiness probe during graceful shutdown. The process starts
// ready; the shutdown hook flips it off so the load balancer drains traffic
// before connections close.
var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady toggles the readiness gate.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the current readiness gate state.
func IsReady() bool {
	return ready.Load()
}
