// Package cmap provides a sharded concurrent map.
//
// Keys are spread across a power-of-two number of shards using murmur3,
// and every shard has its own RWMutex. Session attribute partitions and the
// in-memory session repository are built on it.
//
// Usage:
//
//	m := cmap.New[string, any]()
//	m.Set("cart", items)
//	val, ok := m.Get("cart")
//
// Range and Keys lock shard by shard, so they observe a point-in-time view
// per shard, not a global snapshot.
package cmap
