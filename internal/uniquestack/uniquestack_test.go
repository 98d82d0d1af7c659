package uniquestack

import (
	"errors"
	"testing"

	"github.com/distr1/buildcore"
)

func TestPushPopOrder(t *testing.T) {
	s, err := New[string]()
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []string{"a", "b", "c"} {
		if err := s.Push(v); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := s.Len(), 3; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	for _, want := range []string{"c", "b", "a"} {
		got, err := s.Pop()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("Pop() = %q, want %q", got, want)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d after draining, want 0", s.Len())
	}
}

func TestPushDuplicateFails(t *testing.T) {
	s, _ := New[string]()
	if err := s.Push("a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Push("a"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Push(duplicate) = %v, want ErrDuplicate", err)
	}
}

func TestPushDuplicateWrapsBuildcoreErrUniqueness(t *testing.T) {
	s, _ := New[string]()
	s.Push("a")
	if err := s.Push("a"); !errors.Is(err, buildcore.ErrUniqueness) {
		t.Fatalf("Push(duplicate) = %v, want it to wrap buildcore.ErrUniqueness", err)
	}
}

func TestNewFromDuplicateSequenceFails(t *testing.T) {
	if _, err := New("a", "b", "a"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("New(a,b,a) = %v, want ErrDuplicate", err)
	}
}

func TestPopEmptyFails(t *testing.T) {
	s, _ := New[int]()
	if _, err := s.Pop(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Pop() on empty stack = %v, want ErrEmpty", err)
	}
	if _, err := s.Peek(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Peek() on empty stack = %v, want ErrEmpty", err)
	}
}

func TestContains(t *testing.T) {
	s, _ := New[string]()
	if s.Contains("a") {
		t.Fatal("Contains(a) = true before push")
	}
	s.Push("a")
	if !s.Contains("a") {
		t.Fatal("Contains(a) = false after push")
	}
	s.Pop()
	if s.Contains("a") {
		t.Fatal("Contains(a) = true after pop")
	}
}

func TestPeekDoesNotRemove(t *testing.T) {
	s, _ := New("x")
	v, err := s.Peek()
	if err != nil {
		t.Fatal(err)
	}
	if v != "x" {
		t.Fatalf("Peek() = %q, want x", v)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d after Peek, want 1", s.Len())
	}
}
