package blockstore

import (
	"fmt"
	"os"
	"path/filepath"

	cerrors "blockvault/errors"
)

// dirLock is the single-writer guard for a chain: an exclusively created
// lock file scoped to Open, removed on Close. The chain logic itself does
// not tolerate concurrent writers, so a second opener is refused outright.
type dirLock struct {
	path string
}

func acquireDirLock(dir, name string) (*dirLock, error) {
	path := filepath.Join(dir, name+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, cerrors.Wrap(cerrors.ErrCodeChainLocked,
				fmt.Sprintf("chain %s is locked, remove %s if no other process owns it", name, path), err)
		}
		return nil, cerrors.Wrap(cerrors.ErrCodeStorage, "failed to acquire chain lock", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &dirLock{path: path}, nil
}

func (l *dirLock) release() error {
	return os.Remove(l.path)
}
