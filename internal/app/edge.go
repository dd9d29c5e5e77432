package app

import (
	"math"
)

// Edge score weights. Capital efficiency dominates, then win rate and
// risk/reward; trade count and volume scale act as tie-breakers. Fixed at
// compile time, not runtime configuration.
const (
	weightEfficiency   = 0.30
	weightWinRate      = 0.25
	weightProfitFactor = 0.20
	weightConsistency  = 0.15
	weightSize         = 0.10

	// efficiencyScale saturates the efficiency sub-score at 50% efficiency.
	efficiencyScale = 200.0
	// profitFactorScale saturates the profit-factor sub-score at 5.
	profitFactorScale = 20.0
	// consistencyFullTrades is the trade count for full consistency credit.
	consistencyFullTrades = 20
	// sizeLogScale scales log10(volume+1) into the size sub-score.
	sizeLogScale = 15.0

	// edgeNeutralWinRate stands in for WinRate when a wallet has no decisive
	// closed positions. ComputePositionMetrics reports 0 in that case, which
	// is the right screening default but would unfairly zero the win-rate
	// sub-score here.
	edgeNeutralWinRate = 0.5
)

// EdgeScore is the composite score for one trader, in [0, 100], with its
// named sub-scores. Sub-scores are clamped to [0, 100] before weighting; only
// the final score is rounded (one decimal place).
type EdgeScore struct {
	Score float64 `json:"score"`

	Efficiency        float64 `json:"efficiency"`
	EfficiencyScore   float64 `json:"efficiency_score"`
	WinRateScore      float64 `json:"win_rate_score"`
	ProfitFactorScore float64 `json:"profit_factor_score"`
	ConsistencyScore  float64 `json:"consistency_score"`
	SizeScore         float64 `json:"size_score"`

	Metrics PositionMetrics `json:"metrics"`
}

// ScoreTrader combines trader-level aggregates (cumulative PnL and volume)
// with closed-position metrics into a composite edge score. Pure; safe to
// call concurrently.
func ScoreTrader(pnl, volume float64, m PositionMetrics) EdgeScore {
	efficiency := pnl / math.Max(volume, 1)

	winRate := m.WinRate
	if m.TotalTrades == 0 {
		winRate = edgeNeutralWinRate
	}

	consistency := 100.0
	if m.TotalTrades < consistencyFullTrades {
		consistency = float64(m.TotalTrades) / consistencyFullTrades * 100
	}

	// volume is non-negative upstream, but clamp anyway so log10 never sees
	// an argument below 1.
	vol := math.Max(volume, 0)

	s := EdgeScore{
		Efficiency:        efficiency,
		EfficiencyScore:   clampScore(efficiency * efficiencyScale),
		WinRateScore:      clampScore(winRate * 100),
		ProfitFactorScore: clampScore(m.ProfitFactor * profitFactorScale),
		ConsistencyScore:  clampScore(consistency),
		SizeScore:         clampScore(math.Log10(vol+1) * sizeLogScale),
		Metrics:           m,
	}

	score := weightEfficiency*s.EfficiencyScore +
		weightWinRate*s.WinRateScore +
		weightProfitFactor*s.ProfitFactorScore +
		weightConsistency*s.ConsistencyScore +
		weightSize*s.SizeScore

	s.Score = math.Round(score*10) / 10

	return s
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
