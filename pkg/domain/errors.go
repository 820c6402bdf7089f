package domain

import "errors"

// ErrTreeNotFound is returned when no tree is stored under the requested key.
var ErrTreeNotFound = errors.New("tree not found")

// ErrNodeNotFound is returned when a path does not address an existing node.
var ErrNodeNotFound = errors.New("node not found")

// ErrNotDecision is returned when children are added to a node that cannot hold them.
var ErrNotDecision = errors.New("node is not a decision")

// ErrInvalidPath is returned for malformed node paths or operations the root does not allow.
var ErrInvalidPath = errors.New("invalid node path")

// ErrTooDeep is returned when an imported document nests deeper than the accepted limit.
var ErrTooDeep = errors.New("tree exceeds maximum depth")

// ErrUnsupportedFormat is returned for unknown document or diagram formats.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrInvalidKey is returned for storage keys a store cannot represent.
var ErrInvalidKey = errors.New("invalid storage key")

// ErrInvalidDirection is returned for unknown flowchart directions.
var ErrInvalidDirection = errors.New("invalid flowchart direction")

// ErrInvalidTree is returned when a tree fails structural validation.
var ErrInvalidTree = errors.New("invalid tree")
