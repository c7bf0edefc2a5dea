package blockstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"blockvault/block"
	"blockvault/jsonx"
)

const levelDBBlocksPrefix = "blocks:"

// LevelDBProvider persists blocks into a LevelDB database under the chain
// directory. Key = "blocks:" + index (uint64 BE), value = JSON block, so a
// prefix scan yields blocks in index order.
type LevelDBProvider struct {
	db *leveldb.DB
}

// NewLevelDBProvider opens (or creates) the chain database under dir.
func NewLevelDBProvider(dir, name string) (*LevelDBProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chain directory %s: %w", dir, err)
	}
	path := filepath.Join(filepath.Clean(dir), fmt.Sprintf("%s_chain.ldb", name))
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB at %s: %w", path, err)
	}
	return &LevelDBProvider{db: db}, nil
}

func levelDBKey(index uint64) []byte {
	key := make([]byte, len(levelDBBlocksPrefix)+8)
	copy(key, levelDBBlocksPrefix)
	binary.BigEndian.PutUint64(key[len(levelDBBlocksPrefix):], index)
	return key
}

func levelDBLocation(index uint64) string {
	return fmt.Sprintf("%s%d", levelDBBlocksPrefix, index)
}

func parseLevelDBLocation(location string) (uint64, error) {
	raw := strings.TrimPrefix(location, levelDBBlocksPrefix)
	return strconv.ParseUint(raw, 10, 64)
}

func (p *LevelDBProvider) Load() ([]Stored, error) {
	var stored []Stored
	iter := p.db.NewIterator(util.BytesPrefix([]byte(levelDBBlocksPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		var b block.Block
		if err := jsonx.Unmarshal(iter.Value(), &b); err != nil {
			return nil, fmt.Errorf("failed to decode block at key %x: %w", iter.Key(), err)
		}
		stored = append(stored, Stored{Block: &b, Location: levelDBLocation(b.Index)})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan chain database: %w", err)
	}
	return stored, nil
}

func (p *LevelDBProvider) Put(b *block.Block) (string, error) {
	data, err := jsonx.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to encode block %d: %w", b.Index, err)
	}
	if err := p.db.Put(levelDBKey(b.Index), data, nil); err != nil {
		return "", fmt.Errorf("failed to write block %d: %w", b.Index, err)
	}
	return levelDBLocation(b.Index), nil
}

func (p *LevelDBProvider) ReadLocation(location string) ([]*block.Block, error) {
	index, err := parseLevelDBLocation(location)
	if err != nil {
		return nil, fmt.Errorf("invalid block location %s: %w", location, err)
	}
	data, err := p.db.Get(levelDBKey(index), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read block unit %s: %w", location, err)
	}
	var b block.Block
	if err := jsonx.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode block unit %s: %w", location, err)
	}
	return []*block.Block{&b}, nil
}

func (p *LevelDBProvider) Has(index uint64) (bool, error) {
	return p.db.Has(levelDBKey(index), nil)
}

func (p *LevelDBProvider) Close() error {
	return p.db.Close()
}
