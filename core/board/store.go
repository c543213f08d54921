package board

import (
	"sort"
	"sync"

	"github.com/haulplan/haulplan/internal/eventbus"
)

// ChangeOp describes how an item changed inside the store.
type ChangeOp string

const (
	OpUpsert ChangeOp = "upsert"
	OpRemove ChangeOp = "remove"
)

// Change is published to store subscribers after every mutation so the
// rendering host can repaint affected cells.
type Change struct {
	Op   ChangeOp
	Item Item
}

// Snapshot is a deep copy of the store contents, used to roll back an
// optimistic mutation when persistence fails.
type Snapshot map[string]Item

// Store is the session-scoped source of truth for everything rendered on the
// board. Both optimistic drag edits and inbound realtime events write here;
// the last write for a given item ID wins.
type Store interface {
	Upsert(Item)
	Remove(id string)
	Get(id string) (Item, bool)
	Members(ContainerRef) []Item
	ApplySequences(ref ContainerRef, seqs map[string]int)
	Snapshot() Snapshot
	Restore(Snapshot)
	Len() int
}

// MemoryStore implements Store with a mutex-guarded map.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]Item
	changes *eventbus.TypedBus[Change]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   map[string]Item{},
		changes: eventbus.NewTyped[Change](),
	}
}

// Changes returns a subscription to store mutations. The caller must
// Unsubscribe through the bus when done.
func (s *MemoryStore) Changes() <-chan Change { return s.changes.Subscribe() }

// UnsubscribeChanges removes a subscription obtained from Changes.
func (s *MemoryStore) UnsubscribeChanges(ch <-chan Change) { s.changes.Unsubscribe(ch) }

// Upsert inserts or overwrites the item by ID.
func (s *MemoryStore) Upsert(it Item) {
	s.mu.Lock()
	s.items[it.ID] = it
	s.mu.Unlock()
	s.changes.Publish(Change{Op: OpUpsert, Item: it})
}

// Remove deletes the item if present. Removing an absent ID is a no-op, so
// duplicate delete events are safe.
func (s *MemoryStore) Remove(id string) {
	s.mu.Lock()
	it, ok := s.items[id]
	if ok {
		delete(s.items, id)
	}
	s.mu.Unlock()
	if ok {
		s.changes.Publish(Change{Op: OpRemove, Item: it})
	}
}

// Get returns the item by ID.
func (s *MemoryStore) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	return it, ok
}

// Members returns the items of the given container ordered by sequence.
func (s *MemoryStore) Members(ref ContainerRef) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := ref.Key()
	var res []Item
	for _, it := range s.items {
		if it.Container.Key() == key {
			res = append(res, it)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Seq != res[j].Seq {
			return res[i].Seq < res[j].Seq
		}
		return res[i].ID < res[j].ID
	})
	return res
}

// ApplySequences moves every referenced item into ref and assigns its new
// sequence in a single store turn.
func (s *MemoryStore) ApplySequences(ref ContainerRef, seqs map[string]int) {
	var changed []Item
	s.mu.Lock()
	for id, seq := range seqs {
		it, ok := s.items[id]
		if !ok {
			continue
		}
		it.Container = ref
		it.Seq = seq
		s.items[id] = it
		changed = append(changed, it)
	}
	s.mu.Unlock()
	for _, it := range changed {
		s.changes.Publish(Change{Op: OpUpsert, Item: it})
	}
}

// Snapshot returns a deep copy of the current contents.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(Snapshot, len(s.items))
	for id, it := range s.items {
		snap[id] = it
	}
	return snap
}

// Restore replaces the contents with the given snapshot.
func (s *MemoryStore) Restore(snap Snapshot) {
	s.mu.Lock()
	s.items = make(map[string]Item, len(snap))
	for id, it := range snap {
		s.items[id] = it
	}
	s.mu.Unlock()
	for _, it := range snap {
		s.changes.Publish(Change{Op: OpUpsert, Item: it})
	}
}

// Len returns the number of items held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close shuts down the change bus.
func (s *MemoryStore) Close() { s.changes.Close() }
