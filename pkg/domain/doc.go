/*
Package domain contains the core model of a decision tree.

It is kept pure and free of I/O, following the same hexagonal split as the rest of
the module: adapters persist trees, the codec imports and exports them, and the
presentation layer compiles them into diagram text.

# Key Entities

  - Node: a tagged union over three kinds (Decision, Terminal, InternalLink).
  - Kind: the discriminator, decided once when a node is built or imported.
  - Event: a change notification published after a tree is saved or deleted.
*/
package domain
