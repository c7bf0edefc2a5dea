package blockstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	bolt "go.etcd.io/bbolt"

	"blockvault/block"
	"blockvault/jsonx"
)

var boltBlocksBucket = []byte("blocks")

// BoltProvider keeps the entire chain in one consolidated bbolt file per
// chain name ("{chain_name}_chain.db"), blocks bucket keyed by 8-byte
// big-endian index. This preserves the single-snapshot-file layout the
// access chain uses in the reference design.
type BoltProvider struct {
	db *bolt.DB
}

// NewBoltProvider opens (or creates) the consolidated chain file under dir.
func NewBoltProvider(dir, name string) (*BoltProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chain directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_chain.db", name))
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open chain file %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBlocksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare chain file %s: %w", path, err)
	}
	return &BoltProvider{db: db}, nil
}

func boltKey(index uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, index)
	return key
}

func boltLocation(index uint64) string {
	return fmt.Sprintf("blocks/%d", index)
}

func parseBoltLocation(location string) (uint64, error) {
	raw := strings.TrimPrefix(location, "blocks/")
	return strconv.ParseUint(raw, 10, 64)
}

func (p *BoltProvider) Load() ([]Stored, error) {
	var stored []Stored
	err := p.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBlocksBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var b block.Block
			if err := jsonx.Unmarshal(v, &b); err != nil {
				return fmt.Errorf("failed to decode block at key %x: %w", k, err)
			}
			stored = append(stored, Stored{Block: &b, Location: boltLocation(b.Index)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (p *BoltProvider) Put(b *block.Block) (string, error) {
	data, err := jsonx.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to encode block %d: %w", b.Index, err)
	}
	err = p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBlocksBucket).Put(boltKey(b.Index), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write block %d: %w", b.Index, err)
	}
	return boltLocation(b.Index), nil
}

func (p *BoltProvider) ReadLocation(location string) ([]*block.Block, error) {
	index, err := parseBoltLocation(location)
	if err != nil {
		return nil, fmt.Errorf("invalid block location %s: %w", location, err)
	}
	var b *block.Block
	err = p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBlocksBucket).Get(boltKey(index))
		if v == nil {
			return fmt.Errorf("block unit %s not found", location)
		}
		var decoded block.Block
		if err := jsonx.Unmarshal(v, &decoded); err != nil {
			return fmt.Errorf("failed to decode block unit %s: %w", location, err)
		}
		b = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []*block.Block{b}, nil
}

func (p *BoltProvider) Has(index uint64) (bool, error) {
	var found bool
	err := p.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(boltBlocksBucket).Get(boltKey(index)) != nil
		return nil
	})
	return found, err
}

func (p *BoltProvider) Close() error {
	return p.db.Close()
}
