// Package editor edits decision trees in place.
//
// Nodes are addressed by path: "root" for the root, "0" for its first option,
// "0.2" for the third option of that one, and so on. New nodes are appended to a
// decision's options and receive ids from an identity.Allocator seeded above every
// id already in the tree.
package editor
