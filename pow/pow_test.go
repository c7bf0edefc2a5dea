package pow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindProofReturnsSmallest(t *testing.T) {
	for _, prev := range []uint64{0, 1, 17, 99999} {
		proof, err := FindProof(context.Background(), prev, 1, 0)
		require.NoError(t, err)

		assert.True(t, Satisfies(proof, prev, 1))
		for candidate := uint64(0); candidate < proof; candidate++ {
			assert.False(t, Satisfies(candidate, prev, 1), "candidate %d below proof %d must not satisfy", candidate, proof)
		}
	}
}

func TestFindProofDeterministic(t *testing.T) {
	a, err := FindProof(context.Background(), 7, 2, 0)
	require.NoError(t, err)
	b, err := FindProof(context.Background(), 7, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFindProofCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An absurd difficulty would stall forever; cancellation must stop it.
	_, err := FindProof(ctx, 0, 16, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSatisfiesMatchesDigestPrefix(t *testing.T) {
	proof, err := FindProof(context.Background(), 0, 1, 0)
	require.NoError(t, err)

	// A proof for difficulty 1 does not automatically satisfy a harder gate.
	if Satisfies(proof, 0, 4) {
		t.Skip("proof happens to satisfy difficulty 4")
	}
	assert.True(t, Satisfies(proof, 0, 1))
}
