// Package blockstore owns the append-only block sequence of a chain, its
// on-disk representation and its integrity checking. One ChainStore instance
// owns one named chain for the life of the process.
package blockstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"blockvault/block"
	cerrors "blockvault/errors"
	"blockvault/logx"
	"blockvault/pow"
)

// VerifyMode selects how load-time integrity violations are handled.
type VerifyMode string

const (
	// VerifyStrict aborts Open when loaded blocks violate the chain
	// invariant. This is the default.
	VerifyStrict VerifyMode = "strict"
	// VerifyLenient loads the chain anyway and flags it; the violation is
	// observable through VerifyFull.
	VerifyLenient VerifyMode = "lenient"
)

// Config describes one named chain and its storage backend.
type Config struct {
	// Name is the chain name, the storage namespace of one backup profile.
	Name string `json:"name" yaml:"name"`

	// Dir is the chain-specific storage directory.
	Dir string `json:"dir" yaml:"dir"`

	// Provider selects the storage backend; file is the default.
	Provider ProviderType `json:"provider" yaml:"provider"`

	// Difficulty is the number of leading zero hex characters required by
	// the admission predicate.
	Difficulty int `json:"difficulty" yaml:"difficulty"`

	// ProofCheckInterval is how many proof candidates are tried between
	// cancellation checks.
	ProofCheckInterval int `json:"proof_check_interval" yaml:"proof_check_interval"`

	// VerifyMode selects strict or lenient load-time verification.
	VerifyMode VerifyMode `json:"verify_mode" yaml:"verify_mode"`
}

// Validate validates the chain configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("chain name cannot be empty")
	}
	if c.Dir == "" {
		return fmt.Errorf("chain directory cannot be empty")
	}
	switch c.Provider {
	case FileProviderType, BoltProviderType, LevelDBProviderType, "":
	default:
		return fmt.Errorf("unsupported provider type: %s", c.Provider)
	}
	switch c.VerifyMode {
	case VerifyStrict, VerifyLenient, "":
	default:
		return fmt.Errorf("unsupported verify mode: %s", c.VerifyMode)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = FileProviderType
	}
	if c.Difficulty <= 0 {
		c.Difficulty = pow.DefaultDifficulty
	}
	if c.ProofCheckInterval <= 0 {
		c.ProofCheckInterval = pow.DefaultCheckInterval
	}
	if c.VerifyMode == "" {
		c.VerifyMode = VerifyStrict
	}
	return c
}

// ChainStore is the append-only, disk-persisted sequence of blocks for one
// chain name. Reads may run concurrently with each other but never with a
// seal; the internal lock enforces that for one process, and the directory
// lock keeps other processes out entirely.
type ChainStore struct {
	cfg      Config
	provider Provider
	lock     *dirLock

	mu        sync.RWMutex
	chain     []*block.Block
	pending   []block.Record
	locations map[uint64]string
	corrupt   bool
}

// Open loads all persisted blocks for the configured chain, verifying every
// adjacent pair. With no persisted blocks it seals a genesis block. In
// strict mode a violated chain invariant aborts the load with
// ErrCorruptChain; in lenient mode the store loads and VerifyFull reports
// the damage.
func Open(cfg Config) (*ChainStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeStorage, "failed to create chain directory", err)
	}
	lock, err := acquireDirLock(cfg.Dir, cfg.Name)
	if err != nil {
		return nil, err
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		if rerr := lock.release(); rerr != nil {
			logx.Warn("STORE", fmt.Sprintf("failed to release lock for chain %s: %v", cfg.Name, rerr))
		}
		return nil, cerrors.Wrap(cerrors.ErrCodeStorage, "failed to open chain storage", err)
	}

	cs := &ChainStore{
		cfg:       cfg,
		provider:  provider,
		lock:      lock,
		locations: make(map[uint64]string),
	}

	stored, err := provider.Load()
	if err != nil {
		cs.Close()
		return nil, cerrors.Wrap(cerrors.ErrCodeStorage, "failed to load chain", err)
	}

	for i, s := range stored {
		if s.Block.Index != uint64(i) {
			if err := cs.flagCorrupt(fmt.Sprintf("gap in chain %s: expected index %d, found %d", cfg.Name, i, s.Block.Index)); err != nil {
				return nil, err
			}
		} else if i > 0 && !cs.verifyPair(s.Block, stored[i-1].Block) {
			if err := cs.flagCorrupt(fmt.Sprintf("chain %s invalid at block %d", cfg.Name, s.Block.Index)); err != nil {
				return nil, err
			}
		}
		cs.chain = append(cs.chain, s.Block)
		cs.locations[s.Block.Index] = s.Location
	}

	if len(cs.chain) == 0 {
		if err := cs.sealGenesis(); err != nil {
			cs.Close()
			return nil, err
		}
	}

	logx.Info("STORE", fmt.Sprintf("chain %s opened with %d blocks", cfg.Name, len(cs.chain)))
	return cs, nil
}

// flagCorrupt applies the configured strictness to a load-time violation.
func (cs *ChainStore) flagCorrupt(detail string) error {
	if cs.cfg.VerifyMode == VerifyStrict {
		cs.Close()
		return cerrors.Wrap(cerrors.ErrCodeCorruptChain, detail, nil)
	}
	logx.Warn("STORE", detail)
	cs.corrupt = true
	return nil
}

func (cs *ChainStore) sealGenesis() error {
	genesis := block.New(0, 0, block.GenesisPrevHash, nil, time.Now())
	location, err := cs.provider.Put(genesis)
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeStorage, "failed to persist genesis block", err)
	}
	cs.chain = append(cs.chain, genesis)
	cs.locations[0] = location
	logx.Info("STORE", fmt.Sprintf("chain %s: sealed genesis block", cs.cfg.Name))
	return nil
}

// Name returns the chain name.
func (cs *ChainStore) Name() string {
	return cs.cfg.Name
}

// Add appends a record to the pending buffer. The record stays unsealed
// until the next Seal.
func (cs *ChainStore) Add(rec block.Record) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.pending = append(cs.pending, rec)
}

// PendingLen returns the number of unsealed records.
func (cs *ChainStore) PendingLen() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.pending)
}

// Seal seals the pending buffer into the next block, clearing the buffer.
func (cs *ChainStore) Seal(ctx context.Context) (*block.Block, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	b, err := cs.sealLocked(ctx, cs.pending)
	if err != nil {
		return nil, err
	}
	cs.pending = nil
	return b, nil
}

// SealRecords seals an explicit payload into the next block, leaving the
// pending buffer untouched.
func (cs *ChainStore) SealRecords(ctx context.Context, records []block.Record) (*block.Block, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.sealLocked(ctx, records)
}

func (cs *ChainStore) sealLocked(ctx context.Context, records []block.Record) (*block.Block, error) {
	tail := cs.chain[len(cs.chain)-1]
	next := uint64(len(cs.chain))
	if tail.Index+1 != next {
		return nil, cerrors.Wrap(cerrors.ErrCodeIndexMismatch,
			fmt.Sprintf("chain %s: tail index %d does not precede next index %d", cs.cfg.Name, tail.Index, next), nil)
	}
	// A persisted block at the next index means some other writer got past
	// the directory lock; never overwrite it.
	exists, err := cs.provider.Has(next)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeStorage, "failed to probe next block unit", err)
	}
	if exists {
		return nil, cerrors.Wrap(cerrors.ErrCodeIndexMismatch,
			fmt.Sprintf("chain %s: block %d already persisted", cs.cfg.Name, next), nil)
	}

	proof, err := pow.FindProof(ctx, tail.Proof, cs.cfg.Difficulty, cs.cfg.ProofCheckInterval)
	if err != nil {
		return nil, fmt.Errorf("proof search aborted: %w", err)
	}
	b := block.New(next, proof, tail.Digest(), records, time.Now())
	location, err := cs.provider.Put(b)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeStorage, fmt.Sprintf("failed to persist block %d", next), err)
	}
	cs.chain = append(cs.chain, b)
	cs.locations[next] = location
	logx.Debug("STORE", fmt.Sprintf("chain %s: sealed block %d with %d records", cs.cfg.Name, next, len(records)))
	return b, nil
}

// VerifyPair checks index contiguity, hash linkage and admission between two
// adjacent blocks. Pure, no I/O.
func VerifyPair(b, prev *block.Block, difficulty int) bool {
	if prev.Index+1 != b.Index {
		return false
	}
	if prev.Digest() != b.PrevHash {
		return false
	}
	return pow.Satisfies(b.Proof, prev.Proof, difficulty)
}

func (cs *ChainStore) verifyPair(b, prev *block.Block) bool {
	return VerifyPair(b, prev, cs.cfg.Difficulty)
}

// VerifyWindow loads the target block and its immediate persisted neighbors
// and checks every adjacent pair touching the target. Cheap localized check
// for read paths; corruption outside the window goes undetected.
func (cs *ChainStore) VerifyWindow(target uint64) bool {
	blocks, err := cs.LoadAdjacent(target)
	if err != nil {
		logx.Warn("STORE", fmt.Sprintf("chain %s: window load failed at %d: %v", cs.cfg.Name, target, err))
		return false
	}
	found := false
	for i, b := range blocks {
		if b.Index == target {
			found = true
		}
		if i == 0 {
			continue
		}
		prev := blocks[i-1]
		if prev.Index != target && b.Index != target {
			continue
		}
		if !cs.verifyPair(b, prev) {
			return false
		}
	}
	return found
}

// VerifyFull walks the entire in-memory chain checking every adjacent pair.
// O(chain length); the authoritative check after write-heavy operations.
func (cs *ChainStore) VerifyFull() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.corrupt {
		return false
	}
	for i := 1; i < len(cs.chain); i++ {
		if !cs.verifyPair(cs.chain[i], cs.chain[i-1]) {
			return false
		}
	}
	return true
}

// LoadAdjacent returns the distinct persisted blocks covering target-1,
// target and target+1, deduplicated by storage location and ordered by
// index. Block units are read back from storage, not from memory.
func (cs *ChainStore) LoadAdjacent(target uint64) ([]*block.Block, error) {
	cs.mu.RLock()
	indices := []uint64{target, target + 1}
	if target > 0 {
		indices = append(indices, target-1)
	}
	seen := make(map[string]bool)
	var locs []string
	for _, i := range indices {
		if loc, ok := cs.locations[i]; ok && !seen[loc] {
			seen[loc] = true
			locs = append(locs, loc)
		}
	}
	cs.mu.RUnlock()

	byIndex := make(map[uint64]*block.Block)
	for _, loc := range locs {
		blocks, err := cs.provider.ReadLocation(loc)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeStorage, fmt.Sprintf("failed to load block unit %s", loc), err)
		}
		for _, b := range blocks {
			byIndex[b.Index] = b
		}
	}
	var out []*block.Block
	for i := range indices {
		if b, ok := byIndex[indices[i]]; ok {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// Len returns the number of sealed blocks.
func (cs *ChainStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.chain)
}

// Tail returns the latest sealed block.
func (cs *ChainStore) Tail() *block.Block {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.chain[len(cs.chain)-1]
}

// BlockAt returns the in-memory block with the given index.
func (cs *ChainStore) BlockAt(index uint64) (*block.Block, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if index >= uint64(len(cs.chain)) {
		return nil, false
	}
	return cs.chain[index], true
}

// Blocks returns a snapshot of the in-memory chain in index order.
func (cs *ChainStore) Blocks() []*block.Block {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make([]*block.Block, len(cs.chain))
	copy(out, cs.chain)
	return out
}

// Close releases the storage backend and the single-writer lock. The chain
// stays on disk.
func (cs *ChainStore) Close() error {
	var firstErr error
	if cs.provider != nil {
		if err := cs.provider.Close(); err != nil {
			firstErr = err
		}
	}
	if cs.lock != nil {
		if err := cs.lock.release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
