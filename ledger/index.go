package ledger

import (
	"context"
	"fmt"
	"time"

	"blockvault/block"
	"blockvault/blockstore"
)

// IndexLedger stores periodic snapshots of the file listing, one snapshot
// per block. No derived state.
type IndexLedger struct {
	store *blockstore.ChainStore
}

// OpenIndex opens the index chain.
func OpenIndex(cfg blockstore.Config) (*IndexLedger, error) {
	store, err := blockstore.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &IndexLedger{store: store}, nil
}

// Store exposes the underlying chain store.
func (l *IndexLedger) Store() *blockstore.ChainStore {
	return l.store
}

// Close releases the underlying chain.
func (l *IndexLedger) Close() error {
	return l.store.Close()
}

// Update seals one listing snapshot. Snapshots are never merged.
func (l *IndexLedger) Update(ctx context.Context, listing []FileInfo) (*block.Block, error) {
	rec, err := encodeRecord(KindListing, ListingRecord{
		Files:     listing,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode listing record: %w", err)
	}
	return l.store.SealRecords(ctx, []block.Record{rec})
}

// Latest returns the most recent listing snapshot, or an empty listing when
// the chain holds only genesis.
func (l *IndexLedger) Latest() []FileInfo {
	blocks := l.store.Blocks()
	for i := len(blocks) - 1; i >= 0; i-- {
		for j := len(blocks[i].Records) - 1; j >= 0; j-- {
			if lr, ok := decodeListing(blocks[i].Records[j]); ok {
				return lr.Files
			}
		}
	}
	return nil
}
