package exec

import (
	"tlog.app/go/errors"
)

// Node is the link embedded in every list element.
type Node struct {
	next *Node
	prev *Node
}

// Linked reports whether n currently sits in a list.
func (n *Node) Linked() bool {
	return n.next != nil && n.prev != nil
}

// List is a sentinel-bounded list of T. The zero value is an empty list.
// A List must not be copied once an element has been linked into it.
type List[T any] struct {
	head Node
	tail Node
}

// IsEmpty reports whether l has no elements.
func (l *List[T]) IsEmpty() bool {
	return l.head.next == nil || l.head.next == &l.tail
}

func (l *List[T]) init() {
	if l.head.next != nil {
		return
	}

	l.head.next = &l.tail
	l.tail.prev = &l.head
}

// Check walks l in both directions and verifies that neighbor links agree.
// It returns the number of elements. Check is a debugging aid for tests and
// validation passes, it is not used by iteration.
func (l *List[T]) Check() (n int, err error) {
	if l.head.next == nil && l.tail.prev == nil {
		return 0, nil
	}

	if l.head.next == nil || l.tail.prev == nil {
		return 0, errors.New("half-initialized sentinels")
	}

	if l.head.prev != nil {
		return 0, errors.New("head sentinel has a predecessor")
	}

	if l.tail.next != nil {
		return 0, errors.New("tail sentinel has a successor")
	}

	seen := make(map[*Node]struct{})

	for cur := &l.head; cur != &l.tail; cur = cur.next {
		if _, ok := seen[cur]; ok {
			return n, errors.New("cycle after %d elements", n)
		}

		seen[cur] = struct{}{}

		if cur.next == nil {
			return n, errors.New("element %d: nil next before the tail sentinel", n)
		}

		if cur.next.prev != cur {
			return n, errors.New("element %d: next.prev does not point back", n)
		}

		if cur != &l.head {
			n++
		}
	}

	back := 0

	for cur := l.tail.prev; cur != &l.head; cur = cur.prev {
		if cur == nil {
			return n, errors.New("element %d from the tail: nil prev before the head sentinel", back)
		}

		if _, ok := seen[cur]; !ok {
			return n, errors.New("element %d from the tail is not reachable forward", back)
		}

		back++

		if back > n {
			return n, errors.New("backward walk is longer than forward walk (%d elements)", n)
		}
	}

	if back != n {
		return n, errors.New("forward walk has %d elements, backward walk %d", n, back)
	}
	return n, nil
}
