package vault

import (
	"fmt"

	"github.com/ValentinKolb/vaultkv/lib/db"
	"github.com/ValentinKolb/vaultkv/lib/db/util"
)

const (
	defaultPath      = "vault.bin"
	defaultSizeBytes = 512 * 1024 * 1024
)

// Options configures a VaultDB instance.
type Options struct {
	// Path is the backing file path. Defaults to "vault.bin".
	Path string

	// SizeBytes is the fixed file size to allocate on first creation. It
	// has no effect when reopening an existing file, whose own size wins.
	// Defaults to 512 MiB.
	SizeBytes int64
}

// DefaultOptions returns the default VaultDB options.
func DefaultOptions() *Options {
	return &Options{
		Path:      defaultPath,
		SizeBytes: defaultSizeBytes,
	}
}

// VaultDB implements db.KVDB over a single memory-mapped file, combining a
// PersistentHeap allocator with a ConcurrentIndex for wait-free reads.
type VaultDB struct {
	idx *Index
}

// NewVaultDB creates or opens a VaultDB at opts.Path (nil uses
// DefaultOptions). Setup failures (a bad path, a corrupt heap header on
// reopen) are not operator-recoverable at this call site, so they panic
// rather than silently producing a half-initialized database; this keeps
// the store.DBFactory shape, which has no error return.
//
// Thread-safety: This function is not thread-safe and should only be
// called once during initialization.
func NewVaultDB(opts *Options) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}

	path := opts.Path
	if path == "" {
		path = defaultPath
	}

	size := opts.SizeBytes
	if size <= 0 {
		size = defaultSizeBytes
	}

	idx, err := New(path, size)
	if err != nil {
		panic(fmt.Sprintf("vault: failed to open database at %q: %v", path, err))
	}

	return &VaultDB{idx: idx}
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry with the given key and value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (v *VaultDB) Set(key string, value []byte) bool {
	return v.idx.Put([]byte(key), value)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a copy of the value for an exact key.
//
// Thread-safety: This method is thread-safe, lock-free, and can be called
// concurrently with itself and with Set.
func (v *VaultDB) Get(key string) ([]byte, bool) {
	return v.idx.Get([]byte(key))
}

// Has checks whether a key exists in the database.
//
// Thread-safety: This method is thread-safe, lock-free, and can be called
// concurrently with itself and with Set.
func (v *VaultDB) Has(key string) bool {
	return v.idx.Has([]byte(key))
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// SupportsFeature checks if this implementation supports a specific KVDB feature.
func (v *VaultDB) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureSet | db.FeatureGet | db.FeatureHas
	return supported&feature == feature
}

// GetInfo returns statistics about the database, derived from a walk of
// the underlying heap's free and used lists.
func (v *VaultDB) GetInfo() db.DatabaseInfo {
	usedBytes, freeBytes, usedBlocks, freeBlocks := v.idx.heap.stats()

	sizes := util.NewSizeHistogram()
	v.idx.Range(func(_, value []byte) bool {
		sizes.AddSample(len(value))
		return true
	})

	boundaries, percentages := sizes.SizeDistribution()

	return db.DatabaseInfo{
		SizeBytes:         int(v.idx.heap.size),
		DbType:            db.ImplVault,
		SupportedFeatures: []db.Feature{db.FeatureSet, db.FeatureGet, db.FeatureHas},
		Metadata: map[string]interface{}{
			"used_bytes":          usedBytes,
			"free_bytes":          freeBytes,
			"used_blocks":         usedBlocks,
			"free_blocks":         freeBlocks,
			"value_size_samples":  sizes.GetCount(),
			"value_size_average":  sizes.AverageSize(),
			"value_size_median":   sizes.MedianEstimate(),
			"value_size_boundary": boundaries,
			"value_size_percent":  percentages,
		},
	}
}

// Close unmaps and closes the underlying heap file.
func (v *VaultDB) Close() error {
	return v.idx.Close()
}
