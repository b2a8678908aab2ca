package workflow

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// MaxSelected caps how many results one confirmation may carry.
const MaxSelected = 5

// Selection holds the toggled result ids for the WAITING_SELECTION phase.
// Adding past the cap is silently ignored (cap, don't fail); removing is
// always allowed.
type Selection struct {
	set mapset.Set[string]
}

func NewSelection() *Selection {
	return &Selection{set: mapset.NewSet[string]()}
}

// Toggle flips id's membership and returns the resulting ids, sorted.
func (s *Selection) Toggle(id string) []string {
	if s.set.Contains(id) {
		s.set.Remove(id)
	} else if s.set.Cardinality() < MaxSelected {
		s.set.Add(id)
	}
	return s.IDs()
}

func (s *Selection) IDs() []string {
	ids := s.set.ToSlice()
	sort.Strings(ids)
	return ids
}

func (s *Selection) Count() int { return s.set.Cardinality() }

// CanConfirm is the 1..MaxSelected invariant.
func (s *Selection) CanConfirm() bool {
	n := s.set.Cardinality()
	return n >= 1 && n <= MaxSelected
}

func (s *Selection) Reset() { s.set.Clear() }
