package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"blockvault/block"
	"blockvault/blockstore"
	cerrors "blockvault/errors"
	"blockvault/logx"
)

// AccessGranter is the collaborator that records access grants. PutFile
// calls it to self-grant the owner; keeping it an interface keeps the
// three chains independently testable.
type AccessGranter interface {
	Grant(ctx context.Context, path, granter, grantee string) (*block.Block, error)
}

// ListingUpdater is the collaborator that snapshots the file listing.
type ListingUpdater interface {
	Update(ctx context.Context, listing []FileInfo) (*block.Block, error)
}

// ContentLedger stores file snapshots and the user credential registry on
// its own chain. fileIndex and users are caches rebuilt by replaying the
// chain; the chain is the only source of truth.
type ContentLedger struct {
	store *blockstore.ChainStore

	mu        sync.RWMutex
	fileIndex map[string]uint64
	users     map[string]string
}

// OpenContent opens the content chain and rebuilds the derived indices.
func OpenContent(cfg blockstore.Config) (*ContentLedger, error) {
	store, err := blockstore.Open(cfg)
	if err != nil {
		return nil, err
	}
	l := &ContentLedger{store: store}
	l.rebuild()
	return l, nil
}

// Store exposes the underlying chain store.
func (l *ContentLedger) Store() *blockstore.ChainStore {
	return l.store
}

// Close releases the underlying chain.
func (l *ContentLedger) Close() error {
	return l.store.Close()
}

// rebuild replays the whole chain into fileIndex and users.
func (l *ContentLedger) rebuild() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fileIndex = make(map[string]uint64)
	l.users = make(map[string]string)
	for _, b := range l.store.Blocks() {
		for _, rec := range b.Records {
			if fr, ok := decodeFile(rec); ok {
				l.fileIndex[fr.Path] = b.Index
			} else if cr, ok := decodeCredential(rec); ok {
				l.users[cr.Username] = cr.Digest
			}
		}
	}
}

// DigestSecret hashes a user secret with the chain digest function.
func DigestSecret(secret string) string {
	return block.SumHex([]byte(secret))
}

// PutFile seals a file snapshot into the next block, then asks the
// collaborators to self-grant the owner and refresh the listing snapshot.
// Returns the index of the new block.
func (l *ContentLedger) PutFile(ctx context.Context, path string, observed time.Time, content []byte, owner string, access AccessGranter, listing ListingUpdater) (uint64, error) {
	rec, err := encodeRecord(KindFile, FileRecord{
		Path:     path,
		Observed: observed,
		Content:  content,
		Owner:    owner,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode file record: %w", err)
	}
	l.store.Add(rec)
	b, err := l.store.Seal(ctx)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.fileIndex[path] = b.Index
	l.mu.Unlock()

	if access != nil {
		if _, err := access.Grant(ctx, path, owner, owner); err != nil {
			return b.Index, fmt.Errorf("file stored but owner grant failed: %w", err)
		}
	}
	if listing != nil {
		if _, err := listing.Update(ctx, l.ListFiles()); err != nil {
			return b.Index, fmt.Errorf("file stored but listing update failed: %w", err)
		}
	}
	logx.Info("CONTENT", fmt.Sprintf("stored %s as block %d", path, b.Index))
	return b.Index, nil
}

// GetFile returns the stored content of path. The owning block's window is
// verified before serving; a failed check returns ErrIntegrityFailure and
// never partial or stale data. identity must match the record's owner
// unless allowShared is set.
func (l *ContentLedger) GetFile(path, identity string, allowShared bool) ([]byte, error) {
	l.mu.RLock()
	index, ok := l.fileIndex[path]
	l.mu.RUnlock()
	if !ok {
		return nil, cerrors.Wrap(cerrors.ErrCodeNotFound, fmt.Sprintf("file %s not in chain", path), nil)
	}
	if !l.store.VerifyWindow(index) {
		return nil, cerrors.Wrap(cerrors.ErrCodeIntegrityFailure,
			fmt.Sprintf("window verification failed at block %d", index), nil)
	}
	window, err := l.store.LoadAdjacent(index)
	if err != nil {
		return nil, err
	}
	// Newest first, so the owning block's record wins when an older
	// version of the same path sits in the window.
	foundOther := false
	for i := len(window) - 1; i >= 0; i-- {
		b := window[i]
		for _, rec := range b.Records {
			fr, ok := decodeFile(rec)
			if !ok || fr.Path != path {
				continue
			}
			if fr.Owner == identity || allowShared {
				return fr.Content, nil
			}
			foundOther = true
		}
	}
	if foundOther {
		return nil, cerrors.Wrap(cerrors.ErrCodeUnauthorized,
			fmt.Sprintf("identity %s does not own %s", identity, path), nil)
	}
	return nil, cerrors.Wrap(cerrors.ErrCodeNotFound, fmt.Sprintf("file %s not in chain", path), nil)
}

// HasFile reports whether path has a record in the chain.
func (l *ContentLedger) HasFile(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.fileIndex[path]
	return ok
}

// ListFiles returns every historical file record in chain order, oldest
// first. Later records for the same path are not merged; callers needing
// only the latest snapshot use the file index via GetFile.
func (l *ContentLedger) ListFiles() []FileInfo {
	var out []FileInfo
	for _, b := range l.store.Blocks() {
		for _, rec := range b.Records {
			if fr, ok := decodeFile(rec); ok {
				out = append(out, FileInfo{Path: fr.Path, Owner: fr.Owner, Observed: fr.Observed})
			}
		}
	}
	return out
}

// Search returns every file record whose path contains term,
// case-insensitively.
func (l *ContentLedger) Search(term string) []FileRecord {
	term = strings.ToLower(term)
	var out []FileRecord
	for _, b := range l.store.Blocks() {
		for _, rec := range b.Records {
			if fr, ok := decodeFile(rec); ok && strings.Contains(strings.ToLower(fr.Path), term) {
				out = append(out, fr)
			}
		}
	}
	return out
}

// RegisterUser seals a credential record for a new user. Returns false
// without sealing anything when the name is already registered.
func (l *ContentLedger) RegisterUser(ctx context.Context, name, secret string) (bool, error) {
	l.mu.RLock()
	_, exists := l.users[name]
	l.mu.RUnlock()
	if exists {
		return false, nil
	}
	digest := DigestSecret(secret)
	rec, err := encodeRecord(KindCredential, CredentialRecord{Username: name, Digest: digest})
	if err != nil {
		return false, fmt.Errorf("failed to encode credential record: %w", err)
	}
	l.store.Add(rec)
	if _, err := l.store.Seal(ctx); err != nil {
		return false, err
	}
	l.mu.Lock()
	l.users[name] = digest
	l.mu.Unlock()
	logx.Info("CONTENT", fmt.Sprintf("registered user %s", name))
	return true, nil
}

// Authenticate compares the secret's digest with the registered credential.
// Unknown users and wrong secrets are indistinguishable.
func (l *ContentLedger) Authenticate(name, secret string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	digest, ok := l.users[name]
	return ok && digest == DigestSecret(secret)
}
