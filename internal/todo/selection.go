package todo

import "sort"

// Selection is the set of task ids marked for a batch operation.
// It is not safe for concurrent use; Repository guards its own copy.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: map[string]struct{}{}}
}

// Toggle adds id when absent and removes it otherwise. It reports whether id
// is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Replace makes ids the whole selection.
func (s *Selection) Replace(ids []string) {
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *Selection) Clear() {
	s.ids = map[string]struct{}{}
}

func (s *Selection) Remove(ids ...string) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Retain drops every id for which keep returns false.
func (s *Selection) Retain(keep func(id string) bool) {
	for id := range s.ids {
		if !keep(id) {
			delete(s.ids, id)
		}
	}
}
