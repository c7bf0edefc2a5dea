package blockstore

import (
	"fmt"

	"blockvault/block"
)

// ProviderType represents the storage backend used for a chain
type ProviderType string

const (
	// FileProviderType persists one JSON unit per block inside the chain
	// directory. This is the reference layout.
	FileProviderType ProviderType = "file"
	// BoltProviderType persists the whole chain into one consolidated
	// bbolt file per chain name.
	BoltProviderType ProviderType = "bolt"
	// LevelDBProviderType persists blocks into a LevelDB database.
	LevelDBProviderType ProviderType = "leveldb"
)

// Stored pairs a loaded block with the storage location it came from.
type Stored struct {
	Block    *block.Block
	Location string
}

// Provider abstracts the persisted representation of a chain. Locations are
// provider-specific opaque keys; one location may hold more than one block
// when the backend groups blocks, so reads address locations, not indices.
type Provider interface {
	// Load returns every persisted block ordered by index.
	Load() ([]Stored, error)

	// Put persists a sealed block and returns its storage location.
	Put(b *block.Block) (string, error)

	// ReadLocation loads all blocks stored at the given location.
	ReadLocation(location string) ([]*block.Block, error)

	// Has reports whether a block with the given index is persisted.
	Has(index uint64) (bool, error)

	// Close releases the backend.
	Close() error
}

// NewProvider creates the storage provider selected by the configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case FileProviderType, "":
		return NewFileProvider(cfg.Dir, cfg.Name)
	case BoltProviderType:
		return NewBoltProvider(cfg.Dir, cfg.Name)
	case LevelDBProviderType:
		return NewLevelDBProvider(cfg.Dir, cfg.Name)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
}
