package app

import (
	"polyedge/clients/polymarketapi"
)

// msEpochThreshold separates second-resolution from millisecond-resolution
// epoch timestamps. Upstream activity feeds report both; anything below this
// magnitude is treated as seconds.
const msEpochThreshold = int64(1_000_000_000_000)

// WatchEntry is one wallet on the watchlist, carrying the display metadata
// and score it was admitted with.
type WatchEntry struct {
	Wallet    string  `json:"wallet"`
	Name      string  `json:"name,omitempty"`
	EdgeScore float64 `json:"edge_score,omitempty"`
}

// WatchState is the persisted tracking state for one watchlist: the wallets
// being watched and, per wallet, the timestamp (epoch milliseconds) of the
// most recent trade already observed. Watermarks only ever move forward.
type WatchState struct {
	InitializedAt int64            `json:"initialized_at,omitempty"`
	LastSeen      map[string]int64 `json:"last_seen"`
	Watchlist     []WatchEntry     `json:"watchlist,omitempty"`
}

// NewWatchState returns an empty watch state initialized at nowMs.
func NewWatchState(nowMs int64) WatchState {
	return WatchState{
		InitializedAt: nowMs,
		LastSeen:      make(map[string]int64),
	}
}

// clone deep-copies the state so TrackNewActivity can return updated state
// without mutating its input.
func (ws WatchState) clone() WatchState {
	out := ws
	out.LastSeen = make(map[string]int64, len(ws.LastSeen))
	for k, v := range ws.LastSeen {
		out.LastSeen[k] = v
	}
	if ws.Watchlist != nil {
		out.Watchlist = make([]WatchEntry, len(ws.Watchlist))
		copy(out.Watchlist, ws.Watchlist)
	}
	return out
}

// Watermark returns the last-seen trade timestamp for a wallet, or zero when
// the wallet has never been polled.
func (ws WatchState) Watermark(wallet string) int64 {
	return ws.LastSeen[wallet]
}

// TrackNewActivity filters one wallet's recent activity down to trades that
// are both newer than the wallet's watermark and at least minSize USD, then
// advances the watermark to the newest fetched timestamp regardless of which
// records qualified, so undersized trades are not re-evaluated next poll.
//
// The first poll for a wallet seeds the watermark with nowMs instead of
// zero, suppressing the historical backlog the API would otherwise replay.
// Records whose timestamp cannot be interpreted are skipped, never fatal.
// Returns the qualifying trades (input order preserved) and the updated
// state; the input state is not mutated.
func TrackNewActivity(
	wallet string,
	activity []polymarketapi.Activity,
	state WatchState,
	minSize float64,
	nowMs int64,
) ([]polymarketapi.Activity, WatchState) {
	updated := state.clone()
	if updated.InitializedAt == 0 {
		updated.InitializedAt = nowMs
	}

	watermark, known := updated.LastSeen[wallet]
	if !known {
		watermark = nowMs
	}

	maxTs := watermark
	var fresh []polymarketapi.Activity

	for _, a := range activity {
		ts := NormalizeTimestampMs(a.Timestamp)
		if ts <= 0 {
			// Unparseable timestamp: skip the record, not the pass.
			continue
		}

		if ts > maxTs {
			maxTs = ts
		}
		if ts <= watermark {
			continue
		}
		if a.Type != "" && a.Type != "TRADE" {
			continue
		}
		if tradeNotional(a) < minSize {
			continue
		}

		fresh = append(fresh, a)
	}

	updated.LastSeen[wallet] = maxTs

	return fresh, updated
}

// NormalizeTimestampMs converts an epoch timestamp of ambiguous resolution
// to milliseconds. Non-positive values normalize to zero.
func NormalizeTimestampMs(ts int64) int64 {
	if ts <= 0 {
		return 0
	}
	if ts < msEpochThreshold {
		return ts * 1000
	}
	return ts
}

// tradeNotional returns the USD size of an activity record, falling back to
// shares*price when the feed omits the USDC amount.
func tradeNotional(a polymarketapi.Activity) float64 {
	if a.UsdcSize > 0 {
		return a.UsdcSize
	}
	return a.Size * a.Price
}
