package engine

import "encoding/json"

// IDSet is an insertion-ordered set of ids that only grows.
// It marshals as a JSON array.
type IDSet[T ~string] struct {
	order []T
	index map[T]struct{}
}

// NewIDSet returns a set holding ids.
func NewIDSet[T ~string](ids ...T) IDSet[T] {
	var s IDSet[T]
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s *IDSet[T]) Add(id T) bool {
	if s.index == nil {
		s.index = make(map[T]struct{})
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Has reports membership.
func (s IDSet[T]) Has(id T) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of ids.
func (s IDSet[T]) Len() int {
	return len(s.order)
}

// Items returns a copy of the ids in insertion order.
func (s IDSet[T]) Items() []T {
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}

// Clone returns an independent copy.
func (s IDSet[T]) Clone() IDSet[T] {
	return NewIDSet(s.order...)
}

func (s IDSet[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

func (s *IDSet[T]) UnmarshalJSON(b []byte) error {
	var ids []T
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
