package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockvault/block"
	"blockvault/blockstore"
	cerrors "blockvault/errors"
	"blockvault/jsonx"
)

func testChainConfig(t testing.TB, dir string) blockstore.Config {
	t.Helper()
	return blockstore.Config{
		Name:       "testprofile",
		Dir:        dir,
		Difficulty: 1,
	}
}

// openLedgers wires the three chains the way the backup tool does: one
// profile, three storage directories.
func openLedgers(t testing.TB) (*ContentLedger, *AccessLedger, *IndexLedger) {
	t.Helper()
	root := t.TempDir()

	content, err := OpenContent(testChainConfig(t, root+"/content"))
	require.NoError(t, err)
	access, err := OpenAccess(testChainConfig(t, root+"/access"))
	require.NoError(t, err)
	index, err := OpenIndex(testChainConfig(t, root+"/index"))
	require.NoError(t, err)

	t.Cleanup(func() {
		content.Close()
		access.Close()
		index.Close()
	})
	return content, access, index
}

func TestRegisterUser(t *testing.T) {
	content, _, _ := openLedgers(t)
	ctx := context.Background()

	ok, err := content.RegisterUser(ctx, "alice", "p")
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-registering must fail and leave the stored credential unchanged.
	ok, err = content.RegisterUser(ctx, "alice", "q")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, content.Authenticate("alice", "p"))
	assert.False(t, content.Authenticate("alice", "q"))
}

func TestAuthenticate(t *testing.T) {
	content, _, _ := openLedgers(t)
	_, err := content.RegisterUser(context.Background(), "alice", "p")
	require.NoError(t, err)

	assert.True(t, content.Authenticate("alice", "p"))
	assert.False(t, content.Authenticate("alice", "wrong"))
	assert.False(t, content.Authenticate("nouser", "x"))
}

func TestPutAndGetFile(t *testing.T) {
	content, access, index := openLedgers(t)
	ctx := context.Background()

	blockIndex, err := content.PutFile(ctx, "f.txt", time.Now(), []byte("hi"), "alice", access, index)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), blockIndex)

	data, err := content.GetFile("f.txt", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)

	// Owner mismatch without the shared flag.
	_, err = content.GetFile("f.txt", "bob", false)
	require.ErrorIs(t, err, cerrors.ErrUnauthorized)

	// The shared flag bypasses the owner check.
	data, err = content.GetFile("f.txt", "bob", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)

	_, err = content.GetFile("missing.txt", "alice", false)
	require.ErrorIs(t, err, cerrors.ErrNotFound)
}

func TestPutFileNotifiesCollaborators(t *testing.T) {
	content, access, index := openLedgers(t)

	_, err := content.PutFile(context.Background(), "dir/f.txt", time.Now(), []byte("hi"), "alice", access, index)
	require.NoError(t, err)

	// Owner self-grant on the access chain.
	assert.True(t, access.HasAccess("dir/f.txt", "alice"))
	assert.False(t, access.HasAccess("dir/f.txt", "bob"))

	// Listing snapshot on the index chain.
	listing := index.Latest()
	require.Len(t, listing, 1)
	assert.Equal(t, "dir/f.txt", listing[0].Path)
	assert.Equal(t, "alice", listing[0].Owner)
}

func TestListFilesKeepsHistory(t *testing.T) {
	content, access, index := openLedgers(t)
	ctx := context.Background()

	_, err := content.PutFile(ctx, "f.txt", time.Now(), []byte("v1"), "alice", access, index)
	require.NoError(t, err)
	_, err = content.PutFile(ctx, "f.txt", time.Now(), []byte("v2"), "alice", access, index)
	require.NoError(t, err)

	// Every historical record is returned, duplicates by design.
	files := content.ListFiles()
	require.Len(t, files, 2)
	assert.Equal(t, "f.txt", files[0].Path)
	assert.Equal(t, "f.txt", files[1].Path)

	// The derived index tracks only the latest record.
	data, err := content.GetFile("f.txt", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestSearch(t *testing.T) {
	content, access, index := openLedgers(t)
	ctx := context.Background()

	for _, path := range []string{"notes/Plan.md", "photos/cat.jpg", "notes/plan_b.md"} {
		_, err := content.PutFile(ctx, path, time.Now(), []byte("x"), "alice", access, index)
		require.NoError(t, err)
	}

	results := content.Search("PLAN")
	require.Len(t, results, 2)

	assert.Empty(t, content.Search("zzz"))
}

func TestGetFileRefusesDamagedBlock(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "content")
	content, err := OpenContent(testChainConfig(t, dir))
	require.NoError(t, err)
	defer content.Close()
	ctx := context.Background()

	_, err = content.PutFile(ctx, "f.txt", time.Now(), []byte("hi"), "alice", nil, nil)
	require.NoError(t, err)
	// Seal a successor so the file's block is linked from block 2. Damage to
	// the tail block itself goes unnoticed: nothing links back to it, so a
	// window check has no digest to compare against.
	_, err = content.RegisterUser(ctx, "bob", "p")
	require.NoError(t, err)

	// Rewrite the persisted block out-of-band while the ledger stays open.
	path := filepath.Join(dir, "testprofile_block_1.json")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var b block.Block
	require.NoError(t, jsonx.Unmarshal(raw, &b))
	b.Records = append(b.Records, block.Record{Kind: KindFile, Data: []byte(`{}`)})
	raw, err = jsonx.Marshal(&b)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	// The read must refuse the damaged block rather than serve stale bytes.
	_, err = content.GetFile("f.txt", "alice", false)
	require.ErrorIs(t, err, cerrors.ErrIntegrityFailure)
}

func TestDerivedStateRebuiltOnReload(t *testing.T) {
	root := t.TempDir()
	cfg := testChainConfig(t, root+"/content")

	content, err := OpenContent(cfg)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = content.RegisterUser(ctx, "alice", "p")
	require.NoError(t, err)
	_, err = content.PutFile(ctx, "f.txt", time.Now(), []byte("hi"), "alice", nil, nil)
	require.NoError(t, err)
	require.NoError(t, content.Close())

	// fileIndex and users are caches; a fresh instance replays the chain.
	content, err = OpenContent(cfg)
	require.NoError(t, err)
	defer content.Close()

	assert.True(t, content.Authenticate("alice", "p"))
	data, err := content.GetFile("f.txt", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)
}
