package state

import (
	"strings"

	"github.com/samber/lo"
)

// Store exposes the state catalog to handlers and services.
type Store interface {
	List() []State
	Find(idOrName string) (State, bool)
	Resolve(idOrName string) State
}

// MemoryStore implements Store over a fixed slice.
type MemoryStore struct {
	items []State
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied states.
func NewMemoryStore(items []State) *MemoryStore {
	return &MemoryStore{items: append([]State(nil), items...)}
}

// List returns the catalog in declaration order.
func (s *MemoryStore) List() []State {
	return append([]State(nil), s.items...)
}

// Names returns the display names of every state.
func (s *MemoryStore) Names() []string {
	return lo.Map(s.items, func(item State, _ int) string { return item.Name })
}

// Find matches by id, slug or case-insensitive name.
func (s *MemoryStore) Find(idOrName string) (State, bool) {
	key := strings.TrimSpace(idOrName)
	if key == "" {
		return State{}, false
	}
	slug := Slugify(key)
	return lo.Find(s.items, func(item State) bool {
		return item.ID == key || item.ID == slug || strings.EqualFold(item.Name, key)
	})
}

// Resolve never fails: unknown names keep their spelling and get the
// national fallback centre.
func (s *MemoryStore) Resolve(idOrName string) State {
	if found, ok := s.Find(idOrName); ok {
		return found
	}
	name := strings.TrimSpace(idOrName)
	return State{ID: Slugify(name), Name: name, Lat: FallbackLat, Lon: FallbackLon, Zoom: 5}
}
