package identity

import (
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// FirstID is the first id handed out for a tree that has none.
const FirstID = 1

// EnsureIDs returns a deep copy of root in which every node carries a positive id,
// together with the next unallocated id.
//
// Nodes are visited depth-first, parent before children. A node without a valid id
// receives the running counter, which is then incremented. A node that already has
// one keeps it and pushes the counter to max(counter, id+1). The counter is seeded
// above the largest explicit id of the tree, so backfilled ids never collide with
// ids that appear later in the traversal. Colliding explicit ids are left untouched.
//
// The input is not modified. Calling EnsureIDs on its own output is a no-op on ids.
func EnsureIDs(root *domain.Node) (*domain.Node, int) {
	if root == nil {
		return nil, FirstID
	}

	out := root.Clone()
	counter := max(FirstID, MaxID(out)+1)
	out.Walk(func(n *domain.Node, _ int) bool {
		if n.ID <= 0 {
			n.ID = counter
			counter++
			return true
		}
		counter = max(counter, n.ID+1)
		return true
	})
	return out, counter
}

// MaxID returns the largest valid id present in the tree, or 0 if there is none.
func MaxID(root *domain.Node) int {
	highest := 0
	root.Walk(func(n *domain.Node, _ int) bool {
		highest = max(highest, n.ID)
		return true
	})
	return highest
}

// Allocator hands out fresh node ids.
// Safe for concurrent use.
type Allocator struct {
	mu   sync.Mutex
	next int
}

// NewAllocator creates an allocator whose first id is next.
// Values below FirstID are raised to FirstID.
func NewAllocator(next int) *Allocator {
	return &Allocator{next: max(next, FirstID)}
}

// Next returns the current counter value and advances it by one.
func (a *Allocator) Next() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (a *Allocator) Peek() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Observe raises the counter above id, keeping the allocator ahead of ids that
// entered the tree from elsewhere (e.g. a pasted subtree).
func (a *Allocator) Observe(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next = max(a.next, id+1)
}

// Ref is a flattened reference to a node, offered as an internal link target.
type Ref struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

// CollectNodes flattens the tree depth-first, root first, skipping nodes without a
// valid id.
func CollectNodes(root *domain.Node) []Ref {
	refs := []Ref{}
	root.Walk(func(n *domain.Node, _ int) bool {
		if n.ID > 0 {
			refs = append(refs, Ref{ID: n.ID, Title: n.Title, Kind: n.Kind.String()})
		}
		return true
	})
	return refs
}
