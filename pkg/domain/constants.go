package domain

// Field constants shared by the codec and the adapters.
const (
	// InternalLinkType is the explicit "type" tag carried by internal link nodes.
	InternalLinkType = "internal_link"

	// DefaultStorageKey is the key a tree is persisted under when none is given.
	DefaultStorageKey = "decision-tree"

	// RootPath addresses the root node in editor paths.
	RootPath = "root"
)
