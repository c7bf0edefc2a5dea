package blockstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"blockvault/block"
	"blockvault/jsonx"
)

// FileProvider stores one JSON file per block, named
// "{chain_name}_block_{index}.json" inside the chain directory. Loading
// scans the directory and orders files by the embedded index, not by
// lexical filename order.
type FileProvider struct {
	dir  string
	name string
}

// NewFileProvider creates a per-block file provider rooted at dir.
func NewFileProvider(dir, name string) (*FileProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chain directory %s: %w", dir, err)
	}
	return &FileProvider{dir: dir, name: name}, nil
}

func (p *FileProvider) blockFilename(index uint64) string {
	return fmt.Sprintf("%s_block_%d.json", p.name, index)
}

// parseBlockIndex extracts the embedded index from a block filename,
// returning false for files that do not belong to this chain.
func (p *FileProvider) parseBlockIndex(filename string) (uint64, bool) {
	prefix := p.name + "_block_"
	if !strings.HasPrefix(filename, prefix) || !strings.HasSuffix(filename, ".json") {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(filename, prefix), ".json")
	index, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return index, true
}

func (p *FileProvider) Load() ([]Stored, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chain directory %s: %w", p.dir, err)
	}

	type unit struct {
		index    uint64
		filename string
	}
	var units []unit
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if index, ok := p.parseBlockIndex(e.Name()); ok {
			units = append(units, unit{index: index, filename: e.Name()})
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].index < units[j].index })

	stored := make([]Stored, 0, len(units))
	for _, u := range units {
		blocks, err := p.ReadLocation(u.filename)
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			stored = append(stored, Stored{Block: b, Location: u.filename})
		}
	}
	return stored, nil
}

func (p *FileProvider) Put(b *block.Block) (string, error) {
	data, err := jsonx.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to encode block %d: %w", b.Index, err)
	}
	filename := p.blockFilename(b.Index)
	if err := os.WriteFile(filepath.Join(p.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write block %d: %w", b.Index, err)
	}
	return filename, nil
}

func (p *FileProvider) ReadLocation(location string) ([]*block.Block, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, location))
	if err != nil {
		return nil, fmt.Errorf("failed to read block unit %s: %w", location, err)
	}
	var b block.Block
	if err := jsonx.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode block unit %s: %w", location, err)
	}
	return []*block.Block{&b}, nil
}

func (p *FileProvider) Has(index uint64) (bool, error) {
	_, err := os.Stat(filepath.Join(p.dir, p.blockFilename(index)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (p *FileProvider) Close() error {
	return nil
}
