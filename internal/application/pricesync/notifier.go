package pricesync

import "sync"

// Notifier holds a single completion callback. Only the most recent registration is kept.
// The callback runs on the sync goroutine; consumers redispatch if they need another context.
type Notifier struct {
	mu sync.Mutex
	fn func(Result)
}

// SetCallback replaces the registered callback. A nil fn clears it.
func (n *Notifier) SetCallback(fn func(Result)) {
	n.mu.Lock()
	n.fn = fn
	n.mu.Unlock()
}

// Notify invokes the callback outside the notifier's lock.
func (n *Notifier) Notify(res Result) {
	if n == nil {
		return
	}
	n.mu.Lock()
	fn := n.fn
	n.mu.Unlock()
	if fn != nil {
		fn(res)
	}
}
