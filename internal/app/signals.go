package app

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"polyedge/clients/polymarketapi"
	"polyedge/config"

	"go.uber.org/zap"
)

// Side is the direction of an aggregated signal.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Confidence is the tier assigned to a signal.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// TaggedPosition is an open position together with the wallet that holds it.
type TaggedPosition struct {
	Trader   string
	Position polymarketapi.Position
}

// Signal is an aggregated directional view on one (market, outcome) pair,
// built from the open positions of multiple followed traders.
type Signal struct {
	ConditionID string     `json:"condition_id"`
	Outcome     string     `json:"outcome"`
	Side        Side       `json:"side"`
	TotalSize   float64    `json:"total_size"`
	AvgPrice    float64    `json:"avg_price"`
	TraderCount int        `json:"trader_count"`
	Confidence  Confidence `json:"confidence"`
	Traders     []string   `json:"traders"`

	// Market metadata, filled in by the signal monitor when available.
	Title string `json:"title,omitempty"`
	Slug  string `json:"slug,omitempty"`
}

// Key identifies a signal for deduplication purposes.
func (s Signal) Key() string {
	return s.ConditionID + "|" + s.Outcome
}

// SignalConfig holds the aggregation thresholds. The three-tier structure is
// fixed; the thresholds are tunable.
type SignalConfig struct {
	MinSignalSize    float64 // Drop groups with less aggregate size than this
	HighMinTraders   int     // HIGH tier: at least this many distinct traders
	MediumMinTraders int     // MEDIUM tier: this many traders OR MediumMinSize
	MediumMinSize    float64
	LowMinSize       float64 // LOW tier: aggregate size above this; else drop
}

// DefaultSignalConfig returns sensible defaults.
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		MinSignalSize:    1000.0,
		HighMinTraders:   3,
		MediumMinTraders: 2,
		MediumMinSize:    50000.0,
		LowMinSize:       10000.0,
	}
}

// SignalConfigFrom maps the app-level signals configuration onto the
// aggregation thresholds.
func SignalConfigFrom(cfg config.SignalsConfig) SignalConfig {
	return SignalConfig{
		MinSignalSize:    cfg.MinSignalSize,
		HighMinTraders:   cfg.HighMinTraders,
		MediumMinTraders: cfg.MediumMinTraders,
		MediumMinSize:    cfg.MediumMinSize,
		LowMinSize:       cfg.LowMinSize,
	}
}

// BuildSignals groups open positions by (conditionId, outcome), aggregates
// size and price per group, assigns a confidence tier, and returns the
// surviving groups sorted by aggregate size descending. Pure: no
// deduplication against prior runs happens here (see SignalBook).
//
// Per-position size is |currentValue|, falling back to |size| when the
// current value is unreported. AvgPrice is the simple mean of each position's
// average entry price (falling back to the current market price), not
// size-weighted.
func BuildSignals(positions []TaggedPosition, cfg SignalConfig) []Signal {
	type group struct {
		signal   Signal
		priceSum float64
		priceN   int
		seen     map[string]struct{}
		anyLong  bool
	}

	groups := make(map[string]*group)
	var order []string

	for _, tp := range positions {
		p := tp.Position
		if p.ConditionID == "" {
			continue
		}

		key := p.ConditionID + "|" + p.Outcome
		g, ok := groups[key]
		if !ok {
			g = &group{
				signal: Signal{
					ConditionID: p.ConditionID,
					Outcome:     p.Outcome,
				},
				seen: make(map[string]struct{}),
			}
			groups[key] = g
			order = append(order, key)
		}

		size := p.CurrentValue
		if size == 0 {
			size = p.Size
		}
		g.signal.TotalSize += abs(size)

		price := p.AvgPrice
		if price == 0 {
			price = p.CurPrice
		}
		g.priceSum += price
		g.priceN++

		if p.Size > 0 {
			g.anyLong = true
		}

		trader := strings.ToLower(strings.TrimSpace(tp.Trader))
		if trader != "" {
			if _, dup := g.seen[trader]; !dup {
				g.seen[trader] = struct{}{}
				g.signal.Traders = append(g.signal.Traders, tp.Trader)
			}
		}
	}

	var signals []Signal
	for _, key := range order {
		g := groups[key]
		s := g.signal

		if s.TotalSize < cfg.MinSignalSize {
			continue
		}

		if g.priceN > 0 {
			s.AvgPrice = g.priceSum / float64(g.priceN)
		}
		s.TraderCount = len(s.Traders)
		if g.anyLong {
			s.Side = SideLong
		} else {
			s.Side = SideShort
		}

		switch {
		case s.TraderCount >= cfg.HighMinTraders:
			s.Confidence = ConfidenceHigh
		case s.TraderCount >= cfg.MediumMinTraders || s.TotalSize > cfg.MediumMinSize:
			s.Confidence = ConfidenceMedium
		case s.TotalSize > cfg.LowMinSize:
			s.Confidence = ConfidenceLow
		default:
			continue
		}

		signals = append(signals, s)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].TotalSize > signals[j].TotalSize
	})

	return signals
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// SignalBook remembers which signal keys were emitted and when, so the
// daemon does not re-alert on the same (market, outcome) within the dedup
// window. Stateless scoring paths skip the book entirely.
type SignalBook struct {
	logger      *zap.Logger
	dedupWindow time.Duration

	mu      sync.Mutex
	emitted map[string]time.Time
}

// NewSignalBook creates a signal book with the given dedup window.
func NewSignalBook(logger *zap.Logger, dedupWindow time.Duration) *SignalBook {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dedupWindow <= 0 {
		dedupWindow = 24 * time.Hour
	}

	return &SignalBook{
		logger:      logger.Named("signal-book"),
		dedupWindow: dedupWindow,
		emitted:     make(map[string]time.Time),
	}
}

// FilterNew returns the subset of signals whose key has not been emitted
// within the dedup window, and records those as emitted now.
func (sb *SignalBook) FilterNew(signals []Signal) []Signal {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-sb.dedupWindow)

	var fresh []Signal
	for _, s := range signals {
		key := s.Key()
		if at, ok := sb.emitted[key]; ok && at.After(cutoff) {
			continue
		}
		sb.emitted[key] = now
		fresh = append(fresh, s)
	}

	return fresh
}

// Prune drops emission records older than the dedup window. Returns the
// number of entries removed.
func (sb *SignalBook) Prune() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	cutoff := time.Now().Add(-sb.dedupWindow)
	pruned := 0
	for key, at := range sb.emitted {
		if at.Before(cutoff) {
			delete(sb.emitted, key)
			pruned++
		}
	}

	return pruned
}

// Size returns the number of remembered signal keys.
func (sb *SignalBook) Size() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return len(sb.emitted)
}

// SignalBookSnapshot is the serializable form of a SignalBook.
type SignalBookSnapshot struct {
	Version   int                  `json:"version"`
	Timestamp time.Time            `json:"timestamp"`
	Emitted   map[string]time.Time `json:"emitted"`
}

// Export returns a snapshot of the book for persistence.
func (sb *SignalBook) Export() *SignalBookSnapshot {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	emitted := make(map[string]time.Time, len(sb.emitted))
	for k, v := range sb.emitted {
		emitted[k] = v
	}

	return &SignalBookSnapshot{
		Version:   1,
		Timestamp: time.Now(),
		Emitted:   emitted,
	}
}

// Import merges a snapshot into the book. Existing newer entries win.
// Returns the number of entries imported.
func (sb *SignalBook) Import(snapshot *SignalBookSnapshot) int {
	if snapshot == nil || len(snapshot.Emitted) == 0 {
		return 0
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	imported := 0
	for key, at := range snapshot.Emitted {
		if existing, ok := sb.emitted[key]; ok && existing.After(at) {
			continue
		}
		sb.emitted[key] = at
		imported++
	}

	sb.logger.Debug("imported signal book",
		zap.Int("imported", imported),
		zap.Int("total", len(sb.emitted)),
	)

	return imported
}

// describeSignal renders a short log-friendly description.
func describeSignal(s Signal) string {
	return fmt.Sprintf("%s %s %s size=%.0f traders=%d conf=%s",
		shortID(s.ConditionID), s.Outcome, s.Side, s.TotalSize, s.TraderCount, s.Confidence)
}
