// Package store holds the authoritative in-memory mapping from
// (resourceType, id) to the current version of each resource.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// TimestampLayout is the wire form of meta.lastUpdated.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store is an in-memory resource store. Each resource type keeps its ids in
// insertion order so iteration is stable for the life of the process.
type Store struct {
	mu    sync.RWMutex
	types map[string]*typeStore
	now   func() time.Time
}

type typeStore struct {
	order []string
	items map[string]*entry
}

type entry struct {
	resource    fhirmodels.Resource
	lastUpdated time.Time
}

// New creates an empty Store. A nil clock means time.Now.
func New(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		types: make(map[string]*typeStore),
		now:   clock,
	}
}

// Put writes payload under (resourceType, id). It sets id, meta.versionId
// (next version when the key is live, "1" otherwise) and meta.lastUpdated,
// and returns a copy of what was stored. Other meta children are kept.
func (s *Store) Put(resourceType, id string, payload fhirmodels.Resource) (fhirmodels.Resource, error) {
	if resourceType == "" || id == "" {
		return nil, fmt.Errorf("store: resourceType and id are required (got %q/%q)", resourceType, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.typeStore(resourceType)
	prev, exists := ts.items[id]

	var prevVersion string
	now := s.now().UTC()
	if exists {
		prevVersion = prev.resource.VersionID()
		if now.Before(prev.lastUpdated) {
			now = prev.lastUpdated
		}
	}
	version, err := NextVersion(prevVersion)
	if err != nil {
		return nil, fmt.Errorf("store: %s/%s: %w", resourceType, id, err)
	}

	r := payload.Clone()
	if r == nil {
		r = fhirmodels.Resource{}
	}
	r["resourceType"] = resourceType
	r["id"] = id
	meta := r.Meta()
	if meta == nil {
		meta = map[string]any{}
	}
	meta["versionId"] = version
	meta["lastUpdated"] = now.Format(TimestampLayout)
	r["meta"] = meta

	if !exists {
		ts.order = append(ts.order, id)
	}
	ts.items[id] = &entry{resource: r, lastUpdated: now}
	return r.Clone(), nil
}

// Get returns a copy of the resource, if present.
func (s *Store) Get(resourceType, id string) (fhirmodels.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.types[resourceType]
	if !ok {
		return nil, false
	}
	e, ok := ts.items[id]
	if !ok {
		return nil, false
	}
	return e.resource.Clone(), true
}

// Exists reports whether (resourceType, id) is live.
func (s *Store) Exists(resourceType, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.types[resourceType]
	if !ok {
		return false
	}
	_, ok = ts.items[id]
	return ok
}

// Delete removes the resource and reports whether it existed.
func (s *Store) Delete(resourceType, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.types[resourceType]
	if !ok {
		return false
	}
	if _, ok := ts.items[id]; !ok {
		return false
	}
	delete(ts.items, id)
	for i, v := range ts.order {
		if v == id {
			ts.order = append(ts.order[:i], ts.order[i+1:]...)
			break
		}
	}
	return true
}

// Iter returns copies of all live resources of resourceType in insertion
// order.
func (s *Store) Iter(resourceType string) []fhirmodels.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.types[resourceType]
	if !ok {
		return nil
	}
	out := make([]fhirmodels.Resource, 0, len(ts.order))
	for _, id := range ts.order {
		out = append(out, ts.items[id].resource.Clone())
	}
	return out
}

// Len returns the number of live resources of resourceType.
func (s *Store) Len(resourceType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ts, ok := s.types[resourceType]; ok {
		return len(ts.items)
	}
	return 0
}

// Types returns the resource types that currently hold at least one
// resource, sorted.
func (s *Store) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.types))
	for name, ts := range s.types {
		if len(ts.items) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Reset empties the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = make(map[string]*typeStore)
}

// typeStore returns the per-type store, creating it. Callers hold s.mu.
func (s *Store) typeStore(resourceType string) *typeStore {
	ts, ok := s.types[resourceType]
	if !ok {
		ts = &typeStore{items: make(map[string]*entry)}
		s.types[resourceType] = ts
	}
	return ts
}
