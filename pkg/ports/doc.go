/*
Package ports defines the driven ports (interfaces) for arbor.

These interfaces decouple tree editing and diagram generation from storage, so the
same workspace can run on memory, the filesystem or Redis.

# Key Interfaces

  - TreeStore: persists decision trees under a storage key.
  - DistributedLocker: serializes edits of the same key across replicas.
  - TreeWatcher: optional change feed offered by file and Redis stores.
*/
package ports
