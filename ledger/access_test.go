package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAccessLedger(t testing.TB) *AccessLedger {
	t.Helper()
	access, err := OpenAccess(testChainConfig(t, t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { access.Close() })
	return access
}

func TestGrantAndHasAccess(t *testing.T) {
	access := openAccessLedger(t)

	b, err := access.Grant(context.Background(), "f.txt", "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.Index)

	assert.True(t, access.HasAccess("f.txt", "bob"))
	assert.True(t, access.HasAccess("f.txt", "alice"), "granter counts as authorized")
	assert.False(t, access.HasAccess("f.txt", "carol"))
}

func TestGrantDuplicatesAllowed(t *testing.T) {
	access := openAccessLedger(t)
	ctx := context.Background()

	_, err := access.Grant(ctx, "f.txt", "alice", "bob")
	require.NoError(t, err)
	_, err = access.Grant(ctx, "f.txt", "alice", "bob")
	require.NoError(t, err)

	// Two records, both satisfy the check.
	assert.Equal(t, 3, access.Store().Len())
	assert.True(t, access.HasAccess("f.txt", "bob"))
}

func TestHasAccessComparesBasenames(t *testing.T) {
	access := openAccessLedger(t)

	_, err := access.Grant(context.Background(), "dir/f.txt", "alice", "bob")
	require.NoError(t, err)

	// Reference behavior: a grant applies to any path with the same
	// basename.
	assert.True(t, access.HasAccess("other/f.txt", "bob"))
	assert.True(t, access.HasAccess("f.txt", "bob"))
	assert.False(t, access.HasAccess("dir/g.txt", "bob"))
}

func TestAccessChainPersistsConsolidated(t *testing.T) {
	dir := t.TempDir()
	cfg := testChainConfig(t, dir)

	access, err := OpenAccess(cfg)
	require.NoError(t, err)
	_, err = access.Grant(context.Background(), "f.txt", "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, access.Close())

	access, err = OpenAccess(cfg)
	require.NoError(t, err)
	defer access.Close()

	assert.Equal(t, 2, access.Store().Len())
	assert.True(t, access.HasAccess("f.txt", "bob"))
}
