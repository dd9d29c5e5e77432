package app

import (
	"strings"

	"polyedge/clients/polymarketapi"
)

// AggregateTraders merges trader records from multiple leaderboard windows
// into a deduplicated candidate set, keeping only profitable traders with at
// least minVolume traded.
//
// Dedup policy is first-seen-wins: sources are processed in the order given,
// and the first record observed for a wallet is that wallet's record,
// verbatim. Later duplicates are dropped, never merged, so source order is
// significant and callers must pass windows in their intended precedence
// order (typically all-time, then monthly, then weekly). A wallet whose
// first-seen record fails the filter is excluded even if a later window's
// record would have passed.
//
// Idempotent: aggregating the output of a previous aggregation (as a single
// source) returns the same records.
func AggregateTraders(
	sources [][]polymarketapi.LeaderboardEntry,
	minVolume float64,
) []polymarketapi.LeaderboardEntry {
	seen := make(map[string]struct{})
	var out []polymarketapi.LeaderboardEntry

	for _, source := range sources {
		for _, entry := range source {
			wallet := strings.ToLower(strings.TrimSpace(entry.ProxyWallet))
			if wallet == "" {
				continue
			}
			if _, dup := seen[wallet]; dup {
				continue
			}
			seen[wallet] = struct{}{}

			if entry.Amount > 0 && entry.Volume >= minVolume {
				out = append(out, entry)
			}
		}
	}

	return out
}
