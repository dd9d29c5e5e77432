package app

import (
	"polyedge/clients/polymarketapi"
)

// Sentinel values for ratios that are undefined on one-sided samples.
// Callers across the codebase share these; do not pick different sentinels
// per call site.
const (
	// ProfitFactorCeiling is reported when a wallet has realized wins and no
	// realized losses.
	ProfitFactorCeiling = 10.0

	// ProfitFactorNeutral is reported when a wallet has no realized wins and
	// no realized losses.
	ProfitFactorNeutral = 1.0
)

// PositionMetrics summarizes a wallet's closed positions. Positions with a
// realized PnL of exactly zero are excluded from every count: they are
// neither wins nor losses, so Wins+Losses == TotalTrades always holds.
type PositionMetrics struct {
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"` // 0 when there are no decisive trades
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"` // positive magnitude
	TotalWins    float64 `json:"total_wins"`
	TotalLosses  float64 `json:"total_losses"` // positive magnitude
	ProfitFactor float64 `json:"profit_factor"`
}

// ComputePositionMetrics computes win/loss statistics from a list of closed
// positions. Order of the input is irrelevant.
func ComputePositionMetrics(positions []polymarketapi.ClosedPosition) PositionMetrics {
	var m PositionMetrics

	for _, p := range positions {
		switch {
		case p.RealizedPnl > 0:
			m.Wins++
			m.TotalWins += p.RealizedPnl
		case p.RealizedPnl < 0:
			m.Losses++
			m.TotalLosses += -p.RealizedPnl
		}
	}

	m.TotalTrades = m.Wins + m.Losses

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.Wins) / float64(m.TotalTrades)
	}
	if m.Wins > 0 {
		m.AvgWin = m.TotalWins / float64(m.Wins)
	}
	if m.Losses > 0 {
		m.AvgLoss = m.TotalLosses / float64(m.Losses)
	}

	switch {
	case m.TotalLosses > 0:
		m.ProfitFactor = m.TotalWins / m.TotalLosses
	case m.TotalWins > 0:
		m.ProfitFactor = ProfitFactorCeiling
	default:
		m.ProfitFactor = ProfitFactorNeutral
	}

	return m
}
