package app

import (
	"math"
	"testing"

	"polyedge/clients/polymarketapi"
)

func closedPositions(pnls ...float64) []polymarketapi.ClosedPosition {
	out := make([]polymarketapi.ClosedPosition, len(pnls))
	for i, pnl := range pnls {
		out[i] = polymarketapi.ClosedPosition{RealizedPnl: pnl}
	}
	return out
}

func TestComputePositionMetrics_Mixed(t *testing.T) {
	m := ComputePositionMetrics(closedPositions(100, -50, 30, -10))

	if m.Wins != 2 {
		t.Errorf("expected 2 wins, got %d", m.Wins)
	}
	if m.Losses != 2 {
		t.Errorf("expected 2 losses, got %d", m.Losses)
	}
	if m.TotalTrades != 4 {
		t.Errorf("expected 4 total trades, got %d", m.TotalTrades)
	}
	if m.WinRate != 0.5 {
		t.Errorf("expected win rate 0.5, got %f", m.WinRate)
	}
	if m.TotalWins != 130 {
		t.Errorf("expected total wins 130, got %f", m.TotalWins)
	}
	if m.TotalLosses != 60 {
		t.Errorf("expected total losses 60, got %f", m.TotalLosses)
	}
	if math.Abs(m.ProfitFactor-2.1667) > 0.0001 {
		t.Errorf("expected profit factor 2.1667, got %f", m.ProfitFactor)
	}
	if m.AvgWin != 65 {
		t.Errorf("expected avg win 65, got %f", m.AvgWin)
	}
	if m.AvgLoss != 30 {
		t.Errorf("expected avg loss 30, got %f", m.AvgLoss)
	}
}

func TestComputePositionMetrics_ZeroPnlExcluded(t *testing.T) {
	m := ComputePositionMetrics(closedPositions(100, 0, 0, -40))

	if m.Wins != 1 || m.Losses != 1 {
		t.Errorf("expected 1 win and 1 loss, got %d/%d", m.Wins, m.Losses)
	}
	if m.TotalTrades != 2 {
		t.Errorf("expected zero-pnl positions excluded from total, got %d", m.TotalTrades)
	}
	if m.Wins+m.Losses != m.TotalTrades {
		t.Error("wins+losses must equal total trades")
	}
}

func TestComputePositionMetrics_Empty(t *testing.T) {
	m := ComputePositionMetrics(nil)

	if m.TotalTrades != 0 {
		t.Errorf("expected 0 trades, got %d", m.TotalTrades)
	}
	if m.WinRate != 0 {
		t.Errorf("expected neutral win rate 0, got %f", m.WinRate)
	}
	if m.ProfitFactor != ProfitFactorNeutral {
		t.Errorf("expected neutral profit factor %f, got %f", ProfitFactorNeutral, m.ProfitFactor)
	}
	if m.AvgWin != 0 || m.AvgLoss != 0 {
		t.Errorf("expected zero averages, got %f/%f", m.AvgWin, m.AvgLoss)
	}
}

func TestComputePositionMetrics_OnlyWins(t *testing.T) {
	m := ComputePositionMetrics(closedPositions(50, 25))

	if m.WinRate != 1 {
		t.Errorf("expected win rate 1, got %f", m.WinRate)
	}
	if m.ProfitFactor != ProfitFactorCeiling {
		t.Errorf("expected ceiling profit factor %f, got %f", ProfitFactorCeiling, m.ProfitFactor)
	}
}

func TestComputePositionMetrics_OnlyLosses(t *testing.T) {
	m := ComputePositionMetrics(closedPositions(-50, -25))

	if m.WinRate != 0 {
		t.Errorf("expected win rate 0, got %f", m.WinRate)
	}
	if m.ProfitFactor != 0 {
		t.Errorf("expected profit factor 0, got %f", m.ProfitFactor)
	}
	if m.TotalLosses != 75 {
		t.Errorf("expected total losses 75 (positive magnitude), got %f", m.TotalLosses)
	}
}

func TestComputePositionMetrics_WinRateBounds(t *testing.T) {
	cases := [][]float64{
		{},
		{10},
		{-10},
		{1, -1, 2, -2, 3},
		{0, 0, 0},
	}
	for _, pnls := range cases {
		m := ComputePositionMetrics(closedPositions(pnls...))
		if m.WinRate < 0 || m.WinRate > 1 {
			t.Errorf("win rate out of [0,1] for %v: %f", pnls, m.WinRate)
		}
	}
}
