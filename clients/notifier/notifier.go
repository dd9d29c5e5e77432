package notifier

import (
	"time"
)

// CandidateAlert announces a trader newly ranked as a copy-trade candidate.
type CandidateAlert struct {
	// Wallet info
	TraderName    string
	TraderAddress string
	WalletURL     string

	// Scoring
	EdgeScore    float64
	Efficiency   float64
	WinRate      float64
	ProfitFactor float64
	TotalTrades  int
	Pnl          float64
	Volume       float64
	Rank         int

	Timestamp time.Time
}

// SignalAlert announces a position consensus among followed traders.
type SignalAlert struct {
	// Market info
	ConditionID string
	MarketTitle string
	MarketURL   string
	Outcome     string

	// Signal details
	Side        string // LONG or SHORT
	TotalSize   float64
	AvgPrice    float64
	TraderCount int
	Confidence  string // HIGH, MEDIUM, or LOW
	Traders     []string

	Timestamp time.Time
}

// WhaleAlert announces a large trade by a watched trader.
type WhaleAlert struct {
	// Wallet info
	TraderName    string
	TraderAddress string
	WalletURL     string
	EdgeScore     float64

	// Trade info
	Side     string // BUY or SELL
	Shares   float64
	Price    float64
	Notional float64

	// Market info
	MarketTitle string
	MarketURL   string
	ConditionID string
	Outcome     string

	Timestamp time.Time
}

// Notifier is the interface for sending alerts to various channels.
type Notifier interface {
	// SendCandidateAlert sends a new copy-trade candidate notification.
	SendCandidateAlert(alert CandidateAlert)

	// SendSignalAlert sends a consensus signal notification.
	SendSignalAlert(alert SignalAlert)

	// SendWhaleAlert sends a large-trade notification.
	SendWhaleAlert(alert WhaleAlert)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts alerts to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// SendCandidateAlert sends the alert to all registered notifiers.
func (m *MultiNotifier) SendCandidateAlert(alert CandidateAlert) {
	for _, n := range m.notifiers {
		n.SendCandidateAlert(alert)
	}
}

// SendSignalAlert sends the alert to all registered notifiers.
func (m *MultiNotifier) SendSignalAlert(alert SignalAlert) {
	for _, n := range m.notifiers {
		n.SendSignalAlert(alert)
	}
}

// SendWhaleAlert sends the alert to all registered notifiers.
func (m *MultiNotifier) SendWhaleAlert(alert WhaleAlert) {
	for _, n := range m.notifiers {
		n.SendWhaleAlert(alert)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
