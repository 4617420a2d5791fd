// Package pow implements the proof-of-work nonce search.
package pow

import (
	"context"
	"errors"
	"time"

	"github.com/tos-network/chainmsg/core/types"
)

// checkInterval is how often the mining loop checks for cancellation.
const checkInterval = 1 << 14

// ExpectedDuration is the target time a mining attempt should take; the
// local difficulty policy in Adjust is centered on this value.
const ExpectedDuration = 10 * time.Second

// ErrCancelled is returned by Mine when ctx is done before a valid nonce
// is found.
var ErrCancelled = errors.New("pow: mining cancelled")

// Mine searches for a nonce that makes block's hash satisfy difficulty
// leading zero hex nibbles, mutating block's Nonce and Hash in place.
// Termination is probabilistic; the search is cancellable via ctx and is
// checked at a bounded interval so shutdown does not stall.
func Mine(ctx context.Context, block *types.Block, difficulty int) (*types.Block, error) {
	for nonce := uint64(0); ; nonce++ {
		if nonce%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ErrCancelled
			default:
			}
		}
		block.Nonce = nonce
		block.Hash = block.Recompute()
		if block.HasValidPoW(difficulty) {
			return block, nil
		}
	}
}

// Adjust implements the optional local difficulty-adjustment policy: if the
// previous mine took less than half the expected duration, difficulty
// increases by one; if it took more than double and difficulty is above
// one, it decreases by one. The chain does not encode difficulty changes —
// this is purely a local policy.
func Adjust(previous time.Duration, difficulty int) int {
	switch {
	case previous < ExpectedDuration/2:
		return difficulty + 1
	case previous > ExpectedDuration*2 && difficulty > 1:
		return difficulty - 1
	default:
		return difficulty
	}
}
