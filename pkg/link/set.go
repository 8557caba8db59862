package link

// Set is an insertion-ordered set of outgoing storage links.
type Set struct {
	order []StorageLink
	index map[StorageLink]struct{}
}

// NewSet returns a set holding links, in order, without duplicates.
func NewSet(links ...StorageLink) *Set {
	s := &Set{index: make(map[StorageLink]struct{})}
	for _, l := range links {
		s.insert(l)
	}
	return s
}

// Add inserts l. Adding a link already present is a no-op and reports false.
func (s *Set) Add(l StorageLink) (bool, error) {
	if err := l.Writable(); err != nil {
		return false, err
	}
	return s.insert(l), nil
}

func (s *Set) insert(l StorageLink) bool {
	if s.index == nil {
		s.index = make(map[StorageLink]struct{})
	}
	if _, ok := s.index[l]; ok {
		return false
	}
	s.index[l] = struct{}{}
	s.order = append(s.order, l)
	return true
}

// Remove deletes l and reports whether it was present.
func (s *Set) Remove(l StorageLink) bool {
	if _, ok := s.index[l]; !ok {
		return false
	}
	delete(s.index, l)
	for i, cur := range s.order {
		if cur == l {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports membership.
func (s *Set) Contains(l StorageLink) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[l]
	return ok
}

// Len returns the number of links.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Links returns the links in insertion order.
func (s *Set) Links() []StorageLink {
	if s == nil {
		return nil
	}
	return append([]StorageLink(nil), s.order...)
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return NewSet(s.Links()...)
}

// Equal reports whether both sets hold the same links, in any order.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, l := range s.Links() {
		if !other.Contains(l) {
			return false
		}
	}
	return true
}
