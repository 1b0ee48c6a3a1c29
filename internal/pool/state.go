package pool

import "sync/atomic"

// State is shared by every worker of a pool. Each field is a lone flag or counter, so
// plain atomics are enough.
type State struct {
	exit                atomic.Bool
	startupDone         atomic.Bool
	startupAcknowledged atomic.Int64
	initialized         atomic.Int64
}
