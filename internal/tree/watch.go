package tree

import (
	"sync"
)

// Snapshot is one observed value of a watched path.
type Snapshot struct {
	Path  string
	Value any
}

// Subscription delivers the current value at its path followed by every
// subsequent change, in the order the store applied them. A watcher at a
// path is notified when the path itself, any ancestor, or any descendant
// is written; the delivered value is always the watcher's own subtree.
type Subscription struct {
	store *Store
	id    int
	path  string
	segs  []string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Snapshot
	closed bool

	ch   chan Snapshot
	done chan struct{}
}

// Watch subscribes to path. The first snapshot is the value at the time of
// the call (possibly nil for a not-yet-populated path, which readers treat
// as "not ready"). Close the subscription when done.
func (s *Store) Watch(path string) *Subscription {
	sub := &Subscription{
		store: s,
		path:  path,
		segs:  splitPath(path),
		ch:    make(chan Snapshot),
		done:  make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)

	s.mu.Lock()
	sub.id = s.nextID
	s.nextID++
	s.watchers[sub.id] = sub
	sub.enqueue(Snapshot{Path: path, Value: deepCopy(s.valueAt(sub.segs))})
	s.mu.Unlock()

	go sub.pump()
	return sub
}

// C is the snapshot channel. It is closed after Close once the queue
// drains, or immediately if the receiver has stopped listening.
func (sub *Subscription) C() <-chan Snapshot {
	return sub.ch
}

func (sub *Subscription) Close() {
	sub.store.mu.Lock()
	delete(sub.store.watchers, sub.id)
	sub.store.mu.Unlock()

	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.done)
		sub.cond.Broadcast()
	}
	sub.mu.Unlock()
}

func (sub *Subscription) enqueue(snap Snapshot) {
	sub.mu.Lock()
	if !sub.closed {
		sub.queue = append(sub.queue, snap)
		sub.cond.Signal()
	}
	sub.mu.Unlock()
}

// pump preserves per-path ordering: snapshots leave the queue one at a
// time and are handed to the receiver in arrival order.
func (sub *Subscription) pump() {
	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 && !sub.closed {
			sub.cond.Wait()
		}
		if sub.closed {
			sub.mu.Unlock()
			close(sub.ch)
			return
		}
		snap := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.ch <- snap:
		case <-sub.done:
			close(sub.ch)
			return
		}
	}
}

// notify re-delivers each affected watcher's subtree. Callers hold s.mu,
// so snapshots are enqueued in apply order; cross-path ordering is
// whatever interleaving the writers produced.
func (s *Store) notify(written []string) {
	for _, sub := range s.watchers {
		if !overlaps(sub.segs, written) {
			continue
		}
		sub.enqueue(Snapshot{Path: sub.path, Value: deepCopy(s.valueAt(sub.segs))})
	}
}

// overlaps reports whether one path is an ancestor of (or equal to) the
// other.
func overlaps(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
