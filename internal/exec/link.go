package exec

import (
	"tlog.app/go/errors"
)

// The operations below relink nodes. They are the producer's side of the
// list and must never run while an iterator over the same list is live.

// PushHead links e as the first element of l.
func (f Field[T]) PushHead(l *List[T], e *T) {
	l.init()
	link(f.Node(e), &l.head, l.head.next)
}

// PushTail links e as the last element of l.
func (f Field[T]) PushTail(l *List[T], e *T) {
	l.init()
	link(f.Node(e), l.tail.prev, &l.tail)
}

// InsertAfter links e right after at, which must be linked.
func (f Field[T]) InsertAfter(at, e *T) {
	a := f.Node(at)
	mustLinked(a)
	link(f.Node(e), a, a.next)
}

// InsertBefore links e right before at, which must be linked.
func (f Field[T]) InsertBefore(at, e *T) {
	a := f.Node(at)
	mustLinked(a)
	link(f.Node(e), a.prev, a)
}

// Remove unlinks e. Its node is left with nil neighbors.
func (f Field[T]) Remove(e *T) {
	n := f.Node(e)
	mustLinked(n)

	n.prev.next = n.next
	n.next.prev = n.prev
	n.next, n.prev = nil, nil
}

func link(n, prev, next *Node) {
	if n.next != nil || n.prev != nil {
		panic(errors.New("exec: node is already linked"))
	}

	n.prev = prev
	n.next = next
	prev.next = n
	next.prev = n
}

func mustLinked(n *Node) {
	if !n.Linked() {
		panic(errors.New("exec: node is not linked"))
	}
}
