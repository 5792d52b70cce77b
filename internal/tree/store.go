// Package tree is an in-memory replicated tree store in the style of a
// realtime database: values are addressed by slash-separated paths, writes
// are last-write-wins at leaf granularity, and readers observe changes
// through ordered per-path watches. It also supports atomic
// read-modify-write transactions, server timestamps, and best-effort
// compensating writes fired when a client connection drops.
package tree

import (
	"strings"
	"sync"
	"time"
)

// ServerTimestamp is a sentinel value replaced with the store's current
// time in milliseconds when a write is applied.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

type Store struct {
	mu       sync.Mutex
	root     map[string]any
	watchers map[int]*Subscription
	nextID   int

	// hooks holds compensating writes keyed by connection token,
	// applied in registration order when the connection drops.
	hooks map[string][]hook

	now func() time.Time
}

type hook struct {
	path   string
	fields map[string]any
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock allows tests to pin the server clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		root:     make(map[string]any),
		watchers: make(map[int]*Subscription),
		hooks:    make(map[string][]hook),
		now:      now,
	}
}

// Now is the store's authoritative server time. Clients derive their clock
// offset from it for countdown display.
func (s *Store) Now() time.Time {
	return s.now()
}

// NowMillis is Now in ms since epoch, the unit timestamps are stored in.
func (s *Store) NowMillis() int64 {
	return s.now().UnixMilli()
}

func splitPath(path string) []string {
	var segs []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// Get returns a deep copy of the value at path, or nil if absent.
func (s *Store) Get(path string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopy(s.valueAt(splitPath(path)))
}

// Set replaces the value at path. Setting nil removes the subtree.
func (s *Store) Set(path string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(path, value)
}

// Update merges fields into the object at path, creating it if absent.
// Each field is written leaf-wise; nil removes the field.
func (s *Store) Update(path string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyUpdate(path, fields)
}

// Transact atomically applies fn to the current value at path. fn returns
// the new value and true to commit, or false to abort. An abort is not an
// error; use it for "leave as is" outcomes.
func (s *Store) Transact(path string, fn func(current any) (any, bool)) (committed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := deepCopy(s.valueAt(splitPath(path)))
	next, ok := fn(cur)
	if !ok {
		return false
	}
	s.apply(path, next)
	return true
}

// OnDisconnect registers a compensating update applied when FireDisconnect
// is called for the same token. Repeated registrations for one token
// accumulate; a token's hooks are cleared once fired.
func (s *Store) OnDisconnect(token, path string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[token] = append(s.hooks[token], hook{path: path, fields: fields})
}

// CancelDisconnect drops all hooks registered for token without firing.
func (s *Store) CancelDisconnect(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hooks, token)
}

// FireDisconnect applies and clears every hook registered for token. The
// transport calls this when it detects the connection is gone.
func (s *Store) FireDisconnect(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.hooks[token] {
		s.applyUpdate(h.path, h.fields)
	}
	delete(s.hooks, token)
}

// apply writes value at path and notifies watchers. Callers hold s.mu.
func (s *Store) apply(path string, value any) {
	segs := splitPath(path)
	value = s.resolve(value)
	if value == nil {
		s.deleteAt(segs)
	} else {
		s.setAt(segs, value)
	}
	s.notify(segs)
}

func (s *Store) applyUpdate(path string, fields map[string]any) {
	segs := splitPath(path)
	node := s.ensureMap(segs)
	for k, v := range fields {
		v = s.resolve(v)
		if v == nil {
			delete(node, k)
		} else {
			node[k] = v
		}
	}
	s.notify(segs)
}

// resolve substitutes ServerTimestamp sentinels and normalizes the value
// into the store's generic representation.
func (s *Store) resolve(value any) any {
	return normalize(value, s.now().UnixMilli())
}

func (s *Store) valueAt(segs []string) any {
	var cur any = s.root
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[seg]
	}
	return cur
}

// ensureMap returns the map at segs, replacing any scalar in the way.
func (s *Store) ensureMap(segs []string) map[string]any {
	cur := s.root
	for _, seg := range segs {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	return cur
}

func (s *Store) setAt(segs []string, value any) {
	if len(segs) == 0 {
		if m, ok := value.(map[string]any); ok {
			s.root = m
		}
		return
	}
	parent := s.ensureMap(segs[:len(segs)-1])
	parent[segs[len(segs)-1]] = value
}

func (s *Store) deleteAt(segs []string) {
	if len(segs) == 0 {
		s.root = make(map[string]any)
		return
	}
	parent, ok := s.valueAt(segs[:len(segs)-1]).(map[string]any)
	if !ok {
		return
	}
	delete(parent, segs[len(segs)-1])
}
