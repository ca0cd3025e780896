package controller

import (
	"slices"

	"github.com/cbegin/eqlink-go/internal/eq"
)

// Store holds the latest accepted filter sequence per group.
// It is owned by the controller goroutine and not safe for concurrent use.
type Store struct {
	groups map[eq.Group][]eq.Filter
}

func NewStore() *Store {
	return &Store{groups: make(map[eq.Group][]eq.Filter, len(eq.Groups))}
}

// SetFilters replaces the sequence of group with a copy of filters.
func (s *Store) SetFilters(group eq.Group, filters []eq.Filter) {
	s.groups[group] = slices.Clone(filters)
}

// Filters returns a copy of the sequence of group, empty if never set.
func (s *Store) Filters(group eq.Group) []eq.Filter {
	f := s.groups[group]
	if len(f) == 0 {
		return []eq.Filter{}
	}
	return slices.Clone(f)
}
