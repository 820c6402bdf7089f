/*
Package identity assigns and maintains the integer ids of decision tree nodes.

Ids exist so that internal links can reference a node regardless of where it sits in
the hierarchy. They are assigned lazily, never reassigned, and the running counter is
an explicit value threaded through the caller rather than ambient state:

	tree, next := identity.EnsureIDs(imported)
	alloc := identity.NewAllocator(next)
	child := domain.NewTerminal(alloc.Next(), "Shoes", "/c/shoes")
*/
package identity
