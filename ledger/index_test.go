package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openIndexLedger(t testing.TB) *IndexLedger {
	t.Helper()
	index, err := OpenIndex(testChainConfig(t, t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	return index
}

func TestLatestEmptyForGenesisOnly(t *testing.T) {
	index := openIndexLedger(t)
	assert.Empty(t, index.Latest())
}

func TestUpdateAndLatest(t *testing.T) {
	index := openIndexLedger(t)
	ctx := context.Background()

	first := []FileInfo{{Path: "a.txt", Owner: "alice", Observed: time.Now()}}
	b, err := index.Update(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.Index)

	got := index.Latest()
	require.Len(t, got, 1)
	assert.Equal(t, "a.txt", got[0].Path)

	// A later snapshot replaces the answer, not the history.
	second := []FileInfo{
		{Path: "a.txt", Owner: "alice", Observed: time.Now()},
		{Path: "b.txt", Owner: "bob", Observed: time.Now()},
	}
	_, err = index.Update(ctx, second)
	require.NoError(t, err)

	got = index.Latest()
	require.Len(t, got, 2)
	assert.Equal(t, 3, index.Store().Len())
}
