// Package pow implements the local proof-of-work admission gate. The gate is
// a CPU-cost threshold for sealing blocks, not a security mechanism against
// adversarial writers.
package pow

import (
	"context"
	"strconv"
	"strings"

	"blockvault/block"
)

const (
	// DefaultDifficulty is the number of leading zero hex characters the
	// admission digest must carry.
	DefaultDifficulty = 4

	// DefaultCheckInterval is how many candidates the search tries between
	// cooperative cancellation checks.
	DefaultCheckInterval = 4096
)

// Satisfies reports whether candidate is an admissible proof relative to the
// previous block's proof: the digest of the decimal concatenation
// "{prev}{candidate}" must start with difficulty zero hex characters.
func Satisfies(candidate, prev uint64, difficulty int) bool {
	if difficulty <= 0 {
		difficulty = DefaultDifficulty
	}
	guess := strconv.FormatUint(prev, 10) + strconv.FormatUint(candidate, 10)
	digest := block.SumHex([]byte(guess))
	return strings.HasPrefix(digest, strings.Repeat("0", difficulty))
}

// FindProof enumerates candidates from 0 upward and returns the smallest
// proof satisfying the admission predicate for prev. The enumeration is
// deterministic given prev and difficulty. The search is unbounded, so it
// honors ctx: cancellation is checked every checkInterval candidates.
func FindProof(ctx context.Context, prev uint64, difficulty, checkInterval int) (uint64, error) {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	for candidate := uint64(0); ; candidate++ {
		if candidate%uint64(checkInterval) == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if Satisfies(candidate, prev, difficulty) {
			return candidate, nil
		}
	}
}
