// Package uniquestack implements an ordered LIFO stack in which every
// element may appear at most once, with an O(1) membership test. It backs
// the work-stack formulation of Tarjan's algorithm in package graph, but is
// useful standalone wherever a caller needs push/pop/contains on a set of
// comparable values.
package uniquestack

import (
	"github.com/distr1/buildcore"
	"golang.org/x/xerrors"
)

// ErrDuplicate is returned by Push when the value is already on the stack.
// It wraps buildcore.ErrUniqueness so callers can test for any uniqueness
// violation across packages without depending on this package directly.
var ErrDuplicate = xerrors.Errorf("uniquestack: value already present: %w", buildcore.ErrUniqueness)

// ErrEmpty is returned by Pop and Peek when the stack has no elements.
var ErrEmpty = xerrors.New("uniquestack: stack is empty")

// Stack is an ordered LIFO stack with unique elements. The zero value is a
// valid, empty stack.
type Stack[T comparable] struct {
	order []T
	index map[T]int
}

// New constructs a Stack from an initial sequence. It fails with
// ErrDuplicate if the sequence contains the same value more than once.
func New[T comparable](initial ...T) (*Stack[T], error) {
	s := &Stack[T]{index: make(map[T]int, len(initial))}
	for _, v := range initial {
		if err := s.Push(v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Len returns the number of elements on the stack.
func (s *Stack[T]) Len() int { return len(s.order) }

// Contains reports whether v is currently on the stack, in O(1).
func (s *Stack[T]) Contains(v T) bool {
	if s.index == nil {
		return false
	}
	_, ok := s.index[v]
	return ok
}

// Push places v on top of the stack. It fails with ErrDuplicate if v is
// already present anywhere on the stack.
func (s *Stack[T]) Push(v T) error {
	if s.index == nil {
		s.index = make(map[T]int)
	}
	if _, ok := s.index[v]; ok {
		return xerrors.Errorf("push %v: %w", v, ErrDuplicate)
	}
	s.index[v] = len(s.order)
	s.order = append(s.order, v)
	return nil
}

// Peek returns the top element without removing it. It fails with ErrEmpty
// if the stack has no elements.
func (s *Stack[T]) Peek() (T, error) {
	var zero T
	if len(s.order) == 0 {
		return zero, xerrors.Errorf("peek: %w", ErrEmpty)
	}
	return s.order[len(s.order)-1], nil
}

// Pop removes and returns the top element. It fails with ErrEmpty if the
// stack has no elements.
func (s *Stack[T]) Pop() (T, error) {
	var zero T
	if len(s.order) == 0 {
		return zero, xerrors.Errorf("pop: %w", ErrEmpty)
	}
	last := len(s.order) - 1
	v := s.order[last]
	s.order = s.order[:last]
	delete(s.index, v)
	return v, nil
}
