package storage

// PostedSet is an append-only, insertion-ordered set of published item ids.
// Matching is exact string equality.
type PostedSet struct {
	ids   []string
	index map[string]struct{}
}

func NewPostedSet(ids ...string) *PostedSet {
	s := &PostedSet{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *PostedSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Add appends id unless it is already present. It reports whether id was added.
func (s *PostedSet) Add(id string) bool {
	if s.Contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	s.index[id] = struct{}{}
	return true
}

func (s *PostedSet) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the ids, oldest first.
func (s *PostedSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Trim drops the oldest ids until at most capacity remain.
func (s *PostedSet) Trim(capacity int) {
	if capacity < 0 || len(s.ids) <= capacity {
		return
	}
	drop := len(s.ids) - capacity
	for _, id := range s.ids[:drop] {
		delete(s.index, id)
	}
	s.ids = append([]string(nil), s.ids[drop:]...)
}
