/*
Package session serializes concurrent edits of stored decision trees.

Edits are read-modify-write cycles: load the tree, change it, save it. The Manager
holds an in-process lock per storage key for the whole cycle and, when configured
with a ports.DistributedLocker, a distributed lock as well, so replicas sharing a
store never lose each other's updates.
*/
package session
