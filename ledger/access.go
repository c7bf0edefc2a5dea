package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"blockvault/block"
	"blockvault/blockstore"
	"blockvault/logx"
)

// AccessLedger stores grant records on its own chain. There is no derived
// index; checks scan the whole chain.
type AccessLedger struct {
	store *blockstore.ChainStore
}

// OpenAccess opens the access chain. Unless overridden, it uses the
// consolidated single-file bolt layout rather than per-block files.
func OpenAccess(cfg blockstore.Config) (*AccessLedger, error) {
	if cfg.Provider == "" {
		cfg.Provider = blockstore.BoltProviderType
	}
	store, err := blockstore.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &AccessLedger{store: store}, nil
}

// Store exposes the underlying chain store.
func (l *AccessLedger) Store() *blockstore.ChainStore {
	return l.store
}

// Close releases the underlying chain.
func (l *AccessLedger) Close() error {
	return l.store.Close()
}

// Grant seals a grant record sharing path with grantee. Granting twice
// yields two records; both satisfy the check.
func (l *AccessLedger) Grant(ctx context.Context, path, granter, grantee string) (*block.Block, error) {
	rec, err := encodeRecord(KindGrant, GrantRecord{
		Path:      path,
		Granter:   granter,
		Grantee:   grantee,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode grant record: %w", err)
	}
	b, err := l.store.SealRecords(ctx, []block.Record{rec})
	if err != nil {
		return nil, err
	}
	logx.Info("ACCESS", fmt.Sprintf("granted %s to %s", path, grantee))
	return b, nil
}

// HasAccess reports whether identity was ever granted path, or granted it
// to someone. Paths are compared by basename only, matching the reference
// behavior: a grant on a file name applies to same-named files in any
// directory.
func (l *AccessLedger) HasAccess(path, identity string) bool {
	base := filepath.Base(path)
	for _, b := range l.store.Blocks() {
		for _, rec := range b.Records {
			gr, ok := decodeGrant(rec)
			if !ok {
				continue
			}
			if filepath.Base(gr.Path) == base && (gr.Grantee == identity || gr.Granter == identity) {
				return true
			}
		}
	}
	return false
}
