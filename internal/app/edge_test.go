package app

import (
	"math"
	"testing"
)

func TestScoreTrader_WorkedExample(t *testing.T) {
	// Trader with 50k pnl on 100k volume and the closed positions
	// 100, -50, 30, -10: efficiency 0.5 caps the efficiency sub-score.
	m := ComputePositionMetrics(closedPositions(100, -50, 30, -10))
	s := ScoreTrader(50000, 100000, m)

	if s.EfficiencyScore != 100 {
		t.Errorf("expected efficiency score capped at 100, got %f", s.EfficiencyScore)
	}
	if s.WinRateScore != 50 {
		t.Errorf("expected win rate score 50, got %f", s.WinRateScore)
	}
	if math.Abs(s.ProfitFactorScore-43.3333) > 0.001 {
		t.Errorf("expected profit factor score 43.33, got %f", s.ProfitFactorScore)
	}
	if s.ConsistencyScore != 20 {
		t.Errorf("expected consistency score 20, got %f", s.ConsistencyScore)
	}
	if math.Abs(s.SizeScore-75.0) > 0.001 {
		t.Errorf("expected size score ~75.0, got %f", s.SizeScore)
	}
	if s.Score != 61.7 {
		t.Errorf("expected edge score 61.7, got %f", s.Score)
	}
}

func TestScoreTrader_Bounds(t *testing.T) {
	cases := []struct {
		name   string
		pnl    float64
		volume float64
		pnls   []float64
	}{
		{"flat", 0, 0, nil},
		{"loser", -100000, 50000, []float64{-100, -200}},
		{"huge winner", 10_000_000, 1_000_000, []float64{5000, 4000, 3000}},
		{"tiny", 1, 1, []float64{1}},
	}

	for _, tc := range cases {
		m := ComputePositionMetrics(closedPositions(tc.pnls...))
		s := ScoreTrader(tc.pnl, tc.volume, m)

		if s.Score < 0 || s.Score > 100 {
			t.Errorf("%s: edge score out of [0,100]: %f", tc.name, s.Score)
		}
		for name, sub := range map[string]float64{
			"efficiency":   s.EfficiencyScore,
			"winRate":      s.WinRateScore,
			"profitFactor": s.ProfitFactorScore,
			"consistency":  s.ConsistencyScore,
			"size":         s.SizeScore,
		} {
			if sub < 0 || sub > 100 {
				t.Errorf("%s: %s sub-score out of [0,100]: %f", tc.name, name, sub)
			}
		}
	}
}

func TestScoreTrader_NegativePnlZeroesEfficiency(t *testing.T) {
	m := ComputePositionMetrics(closedPositions(-100, -50))
	s := ScoreTrader(-20000, 40000, m)

	if s.Efficiency >= 0 {
		t.Errorf("expected negative raw efficiency, got %f", s.Efficiency)
	}
	if s.EfficiencyScore != 0 {
		t.Errorf("expected efficiency sub-score clamped to 0, got %f", s.EfficiencyScore)
	}
}

func TestScoreTrader_ZeroVolume(t *testing.T) {
	// Volume 0 must not divide by zero or feed log10 a value below 1.
	m := ComputePositionMetrics(closedPositions(10))
	s := ScoreTrader(500, 0, m)

	if math.IsNaN(s.Score) || math.IsInf(s.Score, 0) {
		t.Fatalf("expected finite score, got %f", s.Score)
	}
	if s.SizeScore != 0 {
		t.Errorf("expected size score 0 at zero volume, got %f", s.SizeScore)
	}
}

func TestScoreTrader_NoTradesUsesNeutralWinRate(t *testing.T) {
	m := ComputePositionMetrics(nil)
	s := ScoreTrader(1000, 10000, m)

	if s.WinRateScore != 50 {
		t.Errorf("expected neutral win rate score 50 with no closed positions, got %f", s.WinRateScore)
	}
	if s.ConsistencyScore != 0 {
		t.Errorf("expected consistency score 0 with no trades, got %f", s.ConsistencyScore)
	}
}

func TestScoreTrader_ConsistencySaturates(t *testing.T) {
	pnls := make([]float64, 25)
	for i := range pnls {
		pnls[i] = 10
	}
	m := ComputePositionMetrics(closedPositions(pnls...))
	s := ScoreTrader(1000, 10000, m)

	if s.ConsistencyScore != 100 {
		t.Errorf("expected consistency score 100 at 25 trades, got %f", s.ConsistencyScore)
	}
}

func TestScoreTrader_RoundsFinalScoreOnly(t *testing.T) {
	m := ComputePositionMetrics(closedPositions(100, -50, 30, -10))
	s := ScoreTrader(50000, 100000, m)

	// The profit-factor sub-score keeps its full precision.
	if s.ProfitFactorScore == 43.3 {
		t.Error("sub-scores must not be rounded before weighting")
	}
	if math.Abs(s.Score*10-math.Round(s.Score*10)) > 1e-9 {
		t.Errorf("final score must be rounded to one decimal, got %f", s.Score)
	}
}
