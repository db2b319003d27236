// Package guard provides keyed create-if-absent records used to enforce
// one vote per player per round and one response per player per line.
package guard

import (
	"context"
	"strings"
)

type Guard interface {
	// Claim records key and reports whether this call created it.
	Claim(ctx context.Context, key string) (bool, error)
	// Release removes key so a failed write can be retried.
	Release(ctx context.Context, key string) error
}

func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func VoteKey(roundID, playerID string) string {
	return Key("vote", roundID, playerID)
}

func ResponseKey(lineID, playerID string) string {
	return Key("response", lineID, playerID)
}

func ClaimKey(rewardID, playerID string) string {
	return Key("claim", rewardID, playerID)
}

// CloseKey marks the one close a round may have.
func CloseKey(roundID string) string {
	return Key("close", roundID)
}
