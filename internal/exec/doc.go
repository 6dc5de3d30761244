// Package exec implements the intrusive doubly linked list shared by every
// IR record type.
//
// A record takes part in a list by embedding a Node by value. The list never
// knows its element type beyond the type parameter: a Field describes where
// the Node lives inside the record and turns node addresses back into record
// pointers, so walking a list copies nothing and allocates nothing.
//
// # Layout
//
// A List is bounded by two sentinel nodes. The head sentinel has a nil prev,
// the tail sentinel has a nil next, and every linked element node has both
// neighbors set. An empty list has its sentinels pointing at each other.
// Iteration stops at the first node whose onward neighbor is nil, which can
// only be the opposite sentinel.
//
// # Ownership
//
// Linking and unlinking belong to the graph producer. Consumers get IsEmpty
// and iteration only. Iterators borrow the list: relinking nodes while an
// iterator is live is a caller bug that this package cannot observe.
package exec
