package cmap

// Range iterates over all key-value pairs until fn returns false.
// fn must not call back into the map for keys in the same shard.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns all keys in no particular order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())
	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Snapshot copies the map into a plain Go map.
func (m *Map[K, V]) Snapshot() map[K]V {
	out := make(map[K]V, m.Count())
	m.Range(func(key K, value V) bool {
		out[key] = value
		return true
	})
	return out
}

// DeleteIf removes every entry for which pred returns true and reports how
// many were removed.
func (m *Map[K, V]) DeleteIf(pred func(key K, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if pred(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
