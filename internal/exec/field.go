package exec

import (
	"iter"
	"unsafe"

	"tlog.app/go/errors"
)

// Field locates the Node embedded in records of type T.
//
// A Field is built once per owner type with FieldOf and then reused for
// every list of that type. Since List is parameterized by the same T, a
// Field can never be applied to a list of another record type.
type Field[T any] struct {
	off uintptr
}

// FieldOf returns the Field for the node that node selects inside T.
// The selector must return the address of a Node stored inside its argument,
// e.g. func(i *Instr) *Node { return &i.node }. It panics otherwise.
func FieldOf[T any](node func(*T) *Node) Field[T] {
	probe := new(T)
	n := node(probe)

	base := uintptr(unsafe.Pointer(probe))
	addr := uintptr(unsafe.Pointer(n))

	if n == nil || addr < base || addr+unsafe.Sizeof(Node{}) > base+unsafe.Sizeof(*probe) {
		panic(errors.New("exec: node is not embedded in %T", probe))
	}
	return Field[T]{off: addr - base}
}

// Offset is the byte offset of the node inside T.
func (f Field[T]) Offset() uintptr { return f.off }

// Elem converts a linked element node back to its record.
// n must be the node of a T, never a sentinel.
func (f Field[T]) Elem(n *Node) *T {
	return (*T)(unsafe.Add(unsafe.Pointer(n), -int(f.off)))
}

// Node returns the node embedded in e.
func (f Field[T]) Node(e *T) *Node {
	return (*Node)(unsafe.Add(unsafe.Pointer(e), f.off))
}

// Iter returns a forward iterator over l.
func (f Field[T]) Iter(l *List[T]) Iter[T] {
	return Iter[T]{n: &l.head, field: f}
}

// IterRev returns a backward iterator over l.
func (f Field[T]) IterRev(l *List[T]) Iter[T] {
	return Iter[T]{n: &l.tail, field: f, rev: true}
}

// IterAt returns an iterator positioned on e. The first call to Next yields
// the element after e (before e if rev is set), or nil if e is the last
// (first) element or is not linked.
func (f Field[T]) IterAt(e *T, rev bool) Iter[T] {
	return Iter[T]{n: f.Node(e), field: f, rev: rev}
}

// First returns the first element of l or nil.
func (f Field[T]) First(l *List[T]) *T {
	it := f.Iter(l)
	return it.Next()
}

// Last returns the last element of l or nil.
func (f Field[T]) Last(l *List[T]) *T {
	it := f.IterRev(l)
	return it.Next()
}

// All returns the elements of l front to back.
func (f Field[T]) All(l *List[T]) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		it := f.Iter(l)

		for e := it.Next(); e != nil; e = it.Next() {
			if !yield(e) {
				return
			}
		}
	}
}

// Backward returns the elements of l back to front.
func (f Field[T]) Backward(l *List[T]) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		it := f.IterRev(l)

		for e := it.Next(); e != nil; e = it.Next() {
			if !yield(e) {
				return
			}
		}
	}
}

// Iter is a cursor over a List. Its direction is fixed at construction.
// The zero value yields nothing.
type Iter[T any] struct {
	n     *Node
	field Field[T]
	rev   bool
}

// Next advances the cursor and returns the element under it,
// or nil once the opposite sentinel is reached.
func (it *Iter[T]) Next() *T {
	if it.n == nil {
		return nil
	}

	if it.rev {
		it.n = it.n.prev

		if it.n == nil || it.n.prev == nil {
			it.n = nil
			return nil
		}
	} else {
		it.n = it.n.next

		if it.n == nil || it.n.next == nil {
			it.n = nil
			return nil
		}
	}
	return it.field.Elem(it.n)
}
