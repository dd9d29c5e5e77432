package app

import (
	"testing"

	"polyedge/clients/polymarketapi"
)

func trade(tsMs int64, usdcSize float64) polymarketapi.Activity {
	return polymarketapi.Activity{Type: "TRADE", Timestamp: tsMs, UsdcSize: usdcSize, Side: "BUY"}
}

func TestTrackNewActivity_FiltersByWatermarkAndSize(t *testing.T) {
	const watermark = int64(1_700_000_000_000)
	state := NewWatchState(watermark - 1000)
	state.LastSeen["0xa"] = watermark

	activity := []polymarketapi.Activity{
		trade(watermark+2000, 20000), // new and big enough
		trade(watermark+1000, 50),    // new but too small
		trade(watermark-1, 99999),    // already seen
	}

	fresh, updated := TrackNewActivity("0xa", activity, state, 10000, watermark+5000)

	if len(fresh) != 1 {
		t.Fatalf("expected 1 qualifying trade, got %d", len(fresh))
	}
	if fresh[0].Timestamp != watermark+2000 {
		t.Errorf("unexpected trade returned: ts=%d", fresh[0].Timestamp)
	}
	// Watermark advances to the newest fetched timestamp even though the
	// undersized trade was filtered out.
	if updated.LastSeen["0xa"] != watermark+2000 {
		t.Errorf("expected watermark %d, got %d", watermark+2000, updated.LastSeen["0xa"])
	}
}

func TestTrackNewActivity_NeverReturnsAtOrBelowWatermark(t *testing.T) {
	const watermark = int64(1_700_000_000_000)
	state := NewWatchState(watermark)
	state.LastSeen["0xa"] = watermark

	activity := []polymarketapi.Activity{
		trade(watermark, 50000),
		trade(watermark-5000, 50000),
	}

	fresh, _ := TrackNewActivity("0xa", activity, state, 1000, watermark+1)

	if len(fresh) != 0 {
		t.Errorf("expected no trades at or below the watermark, got %d", len(fresh))
	}
}

func TestTrackNewActivity_WatermarkMonotonic(t *testing.T) {
	const watermark = int64(1_700_000_000_000)
	state := NewWatchState(watermark)
	state.LastSeen["0xa"] = watermark

	// Only stale records: the watermark must not move backwards.
	activity := []polymarketapi.Activity{
		trade(watermark-10_000, 50000),
	}

	_, updated := TrackNewActivity("0xa", activity, state, 1000, watermark+1)

	if updated.LastSeen["0xa"] != watermark {
		t.Errorf("expected watermark unchanged at %d, got %d", watermark, updated.LastSeen["0xa"])
	}

	// All records filtered by size: watermark still advances.
	activity = []polymarketapi.Activity{trade(watermark+7000, 1)}
	_, updated = TrackNewActivity("0xa", activity, state, 1000, watermark+1)

	if updated.LastSeen["0xa"] != watermark+7000 {
		t.Errorf("expected watermark advanced to %d, got %d", watermark+7000, updated.LastSeen["0xa"])
	}
}

func TestTrackNewActivity_FirstPollSeedsWithNow(t *testing.T) {
	const nowMs = int64(1_700_000_000_000)
	state := NewWatchState(nowMs)

	// Historical backlog from before the first observation must not flood
	// the caller.
	activity := []polymarketapi.Activity{
		trade(nowMs-60_000, 50000),
		trade(nowMs-120_000, 80000),
	}

	fresh, updated := TrackNewActivity("0xnew", activity, state, 1000, nowMs)

	if len(fresh) != 0 {
		t.Errorf("expected no backlog trades on first poll, got %d", len(fresh))
	}
	if updated.LastSeen["0xnew"] != nowMs {
		t.Errorf("expected watermark seeded with now, got %d", updated.LastSeen["0xnew"])
	}
}

func TestTrackNewActivity_NormalizesSecondTimestamps(t *testing.T) {
	const watermarkMs = int64(1_700_000_000_000)
	state := NewWatchState(watermarkMs)
	state.LastSeen["0xa"] = watermarkMs

	// The data API reports this trade in seconds; it is 100s past the
	// watermark once normalized.
	activity := []polymarketapi.Activity{
		trade(1_700_000_100, 50000),
	}

	fresh, updated := TrackNewActivity("0xa", activity, state, 1000, watermarkMs+200_000)

	if len(fresh) != 1 {
		t.Fatalf("expected second-resolution trade normalized and returned, got %d", len(fresh))
	}
	if updated.LastSeen["0xa"] != 1_700_000_100_000 {
		t.Errorf("expected watermark in milliseconds, got %d", updated.LastSeen["0xa"])
	}
}

func TestTrackNewActivity_SkipsUnparseableTimestamps(t *testing.T) {
	const watermark = int64(1_700_000_000_000)
	state := NewWatchState(watermark)
	state.LastSeen["0xa"] = watermark

	activity := []polymarketapi.Activity{
		trade(0, 50000),
		trade(-5, 50000),
		trade(watermark+1000, 50000),
	}

	fresh, updated := TrackNewActivity("0xa", activity, state, 1000, watermark+2000)

	if len(fresh) != 1 {
		t.Fatalf("expected only the valid record, got %d", len(fresh))
	}
	if updated.LastSeen["0xa"] != watermark+1000 {
		t.Errorf("unexpected watermark: %d", updated.LastSeen["0xa"])
	}
}

func TestTrackNewActivity_IgnoresNonTradeActivity(t *testing.T) {
	const watermark = int64(1_700_000_000_000)
	state := NewWatchState(watermark)
	state.LastSeen["0xa"] = watermark

	redeem := polymarketapi.Activity{
		Type: "REDEEM", Timestamp: watermark + 3000, UsdcSize: 90000,
	}

	fresh, updated := TrackNewActivity("0xa", []polymarketapi.Activity{redeem}, state, 1000, watermark+5000)

	if len(fresh) != 0 {
		t.Errorf("expected non-trade activity excluded, got %d", len(fresh))
	}
	// But it still advances the watermark.
	if updated.LastSeen["0xa"] != watermark+3000 {
		t.Errorf("expected watermark advanced by non-trade record, got %d", updated.LastSeen["0xa"])
	}
}

func TestTrackNewActivity_DoesNotMutateInput(t *testing.T) {
	const watermark = int64(1_700_000_000_000)
	state := NewWatchState(watermark)
	state.LastSeen["0xa"] = watermark

	_, updated := TrackNewActivity("0xa", []polymarketapi.Activity{trade(watermark+1000, 50000)}, state, 1, watermark+2000)

	if state.LastSeen["0xa"] != watermark {
		t.Errorf("input state mutated: %d", state.LastSeen["0xa"])
	}
	if updated.LastSeen["0xa"] != watermark+1000 {
		t.Errorf("returned state not updated: %d", updated.LastSeen["0xa"])
	}
}

func TestTrackNewActivity_NotionalFallback(t *testing.T) {
	const watermark = int64(1_700_000_000_000)
	state := NewWatchState(watermark)
	state.LastSeen["0xa"] = watermark

	// UsdcSize omitted; shares*price = 20000 passes the 10k filter.
	a := polymarketapi.Activity{
		Type: "TRADE", Timestamp: watermark + 1000, Size: 40000, Price: 0.5,
	}

	fresh, _ := TrackNewActivity("0xa", []polymarketapi.Activity{a}, state, 10000, watermark+2000)

	if len(fresh) != 1 {
		t.Errorf("expected notional fallback to shares*price, got %d trades", len(fresh))
	}
}

func TestNormalizeTimestampMs(t *testing.T) {
	cases := []struct {
		in   int64
		want int64
	}{
		{0, 0},
		{-10, 0},
		{1_700_000_000, 1_700_000_000_000},     // seconds
		{1_700_000_000_000, 1_700_000_000_000}, // already milliseconds
	}
	for _, tc := range cases {
		if got := NormalizeTimestampMs(tc.in); got != tc.want {
			t.Errorf("NormalizeTimestampMs(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
