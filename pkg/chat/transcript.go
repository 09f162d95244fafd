package chat

import "sync"

// Observer receives a copy of the transcript after every change.
type Observer func(bubbles []Bubble)

// Transcript is an ordered list of bubbles. Bubbles are only ever appended
// or updated in place; order is insertion order.
type Transcript struct {
	mu        sync.RWMutex
	items     []Bubble
	index     map[string]int
	observers map[int]Observer
	nextObs   int
}

func NewTranscript() *Transcript {
	return &Transcript{
		index:     make(map[string]int),
		observers: make(map[int]Observer),
	}
}

// Tx is a view of the transcript inside Update.
type Tx struct {
	t *Transcript
}

// Get returns the bubble with the given id.
func (tx *Tx) Get(id string) (Bubble, bool) {
	if id == "" {
		return nil, false
	}
	i, ok := tx.t.index[id]
	if !ok {
		return nil, false
	}
	return tx.t.items[i], true
}

// Put replaces the bubble with the same id, or appends it.
func (tx *Tx) Put(b Bubble) {
	if i, ok := tx.t.index[b.BubbleID()]; ok {
		tx.t.items[i] = b
		return
	}
	tx.t.index[b.BubbleID()] = len(tx.t.items)
	tx.t.items = append(tx.t.items, b)
}

// Update runs fn under the write lock. Observers are notified once
// afterwards, and only when fn reports a change.
func (t *Transcript) Update(fn func(tx *Tx) bool) bool {
	t.mu.Lock()
	changed := fn(&Tx{t: t})
	var snapshot []Bubble
	var observers []Observer
	if changed {
		snapshot = t.snapshotLocked()
		observers = t.observersLocked()
	}
	t.mu.Unlock()

	for _, obs := range observers {
		obs(snapshot)
	}
	return changed
}

// Append adds a bubble at the end.
func (t *Transcript) Append(b Bubble) {
	t.Update(func(tx *Tx) bool {
		tx.Put(b)
		return true
	})
}

// Get returns the bubble with the given id.
func (t *Transcript) Get(id string) (Bubble, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return (&Tx{t: t}).Get(id)
}

// Snapshot returns the bubbles in display order.
func (t *Transcript) Snapshot() []Bubble {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Clear removes every bubble.
func (t *Transcript) Clear() {
	t.Update(func(tx *Tx) bool {
		if len(t.items) == 0 {
			return false
		}
		t.items = nil
		t.index = make(map[string]int)
		return true
	})
}

// Observe registers fn and returns a function that removes it.
func (t *Transcript) Observe(fn Observer) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.observers, id)
	}
}

func (t *Transcript) snapshotLocked() []Bubble {
	out := make([]Bubble, len(t.items))
	copy(out, t.items)
	return out
}

func (t *Transcript) observersLocked() []Observer {
	out := make([]Observer, 0, len(t.observers))
	for i := 0; i < t.nextObs; i++ {
		if obs, ok := t.observers[i]; ok {
			out = append(out, obs)
		}
	}
	return out
}
