package storage

import (
	"context"
	"time"
)

// KVEngine defines the interface for embedded key-value storage.
//
// Implementations must be safe for concurrent use and durable across
// process restarts unless configured in-memory.
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Replace overwrites the value of an existing key in one transaction.
	// Returns ErrKeyNotFound if key doesn't exist; nothing is written then.
	Replace(ctx context.Context, key, value []byte) error

	// Delete removes a key.
	Delete(ctx context.Context, key []byte) error

	// Scan iterates over keys with a given prefix.
	// Callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// GC runs value log garbage collection and reports how many passes
	// rewrote a file.
	GC(ctx context.Context) (int, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*KVStats, error)

	// Close gracefully shuts down the KV engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// LSMSize is the LSM tree size in bytes.
	LSMSize uint64

	// ValueLogSize is the value log size in bytes.
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64

	// GCRewrites is the total number of value log files rewritten by GC.
	GCRewrites uint64
}

// TotalSize is the disk usage in bytes.
func (s *KVStats) TotalSize() uint64 {
	return s.LSMSize + s.ValueLogSize
}

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// Dir is the storage directory. Required unless InMemory is set.
	Dir string

	// InMemory keeps all data in memory. Dir must be empty.
	InMemory bool

	// GCInterval is the interval between automatic GC runs.
	// Zero disables the GC loop.
	GCInterval time.Duration

	// GCDiscardRatio is the fraction of stale data in a value log file
	// that makes it eligible for rewrite (0.0-1.0).
	GCDiscardRatio float64

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	NumMemtables int

	// SyncWrites enables fsync after each write.
	SyncWrites bool
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:              dir,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
		CacheSize:        64 << 20, // 64MB
		ValueLogFileSize: 256 << 20,
		NumMemtables:     2,
		SyncWrites:       false,
	}
}
