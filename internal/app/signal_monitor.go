package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"polyedge/clients/notifier"
	"polyedge/clients/polymarketapi"

	"go.uber.org/zap"
)

const (
	positionsFetchLimit = 100
	profileURLPrefix    = "https://polymarket.com/profile/"
	eventURLPrefix      = "https://polymarket.com/event/"
)

// SignalAPIClient is the API surface the signal monitor needs.
// Satisfied by polymarketapi.PolymarketApiClient.
type SignalAPIClient interface {
	GetPositions(ctx context.Context, wallet string, market string, limit int) ([]polymarketapi.Position, error)
	GetMarketByConditionID(ctx context.Context, conditionID string) (*polymarketapi.GammaMarket, error)
}

// WatchlistSource provides the set of traders whose positions feed the
// signal aggregation. Satisfied by TraderScanner.
type WatchlistSource interface {
	Followed() []WatchEntry
}

// SignalMonitor periodically pulls the open positions of the followed
// traders, aggregates them into consensus signals, and emits alerts for
// signals not seen within the dedup window.
type SignalMonitor struct {
	logger    *zap.Logger
	apiClient SignalAPIClient
	watchlist WatchlistSource
	notify    notifier.Notifier
	book      *SignalBook

	signalCfg    SignalConfig
	pollInterval time.Duration

	mu             sync.Mutex
	signalsEmitted int
	lastPollAt     time.Time
	lastAssets     []string
}

// NewSignalMonitor creates a new signal monitor.
func NewSignalMonitor(
	logger *zap.Logger,
	apiClient SignalAPIClient,
	watchlist WatchlistSource,
	notify notifier.Notifier,
	book *SignalBook,
	signalCfg SignalConfig,
	pollInterval time.Duration,
) *SignalMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}

	return &SignalMonitor{
		logger:       logger.Named("signal-monitor"),
		apiClient:    apiClient,
		watchlist:    watchlist,
		notify:       notify,
		book:         book,
		signalCfg:    signalCfg,
		pollInterval: pollInterval,
	}
}

// Poll runs one aggregation pass and returns the signals that were emitted.
func (sm *SignalMonitor) Poll(ctx context.Context) ([]Signal, error) {
	entries := sm.watchlist.Followed()
	if len(entries) == 0 {
		sm.logger.Debug("no followed traders, skipping signal poll")
		sm.markPoll(0)
		return nil, nil
	}

	// Market metadata gathered from positions, keyed by condition ID.
	type marketMeta struct {
		title string
		slug  string
	}
	meta := make(map[string]marketMeta)
	assetSet := make(map[string]struct{})

	var tagged []TaggedPosition
	for _, entry := range entries {
		positions, err := sm.apiClient.GetPositions(ctx, entry.Wallet, "", positionsFetchLimit)
		if err != nil {
			sm.logger.Warn("failed to fetch positions",
				zap.String("wallet", shortID(entry.Wallet)),
				zap.Error(err),
			)
			continue
		}

		for _, p := range positions {
			tagged = append(tagged, TaggedPosition{Trader: entry.Wallet, Position: p})
			if p.ConditionID != "" && p.Title != "" {
				meta[p.ConditionID] = marketMeta{title: p.Title, slug: p.Slug}
			}
			if p.Asset != "" {
				assetSet[p.Asset] = struct{}{}
			}
		}
	}

	assets := make([]string, 0, len(assetSet))
	for a := range assetSet {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	signals := BuildSignals(tagged, sm.signalCfg)
	fresh := sm.book.FilterNew(signals)

	for i := range fresh {
		s := &fresh[i]

		if m, ok := meta[s.ConditionID]; ok {
			s.Title = m.title
			s.Slug = m.slug
		} else if market, err := sm.apiClient.GetMarketByConditionID(ctx, s.ConditionID); err == nil {
			s.Title = market.Question
			s.Slug = market.Slug
		}

		if sm.notify != nil {
			sm.notify.SendSignalAlert(sm.buildAlert(*s))
		}
	}

	sm.mu.Lock()
	sm.lastAssets = assets
	sm.mu.Unlock()

	sm.markPoll(len(fresh))

	if len(fresh) > 0 {
		sm.logger.Info("emitted signals",
			zap.Int("built", len(signals)),
			zap.Int("emitted", len(fresh)),
		)
	}

	return fresh, nil
}

// Run polls on the configured interval until the context is canceled.
// One poll runs immediately on start.
func (sm *SignalMonitor) Run(ctx context.Context) {
	sm.logger.Info("signal monitor started",
		zap.Duration("pollInterval", sm.pollInterval),
	)

	if _, err := sm.Poll(ctx); err != nil {
		sm.logger.Warn("initial signal poll failed", zap.Error(err))
	}

	ticker := time.NewTicker(sm.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sm.logger.Info("signal monitor stopping")
			return
		case <-ticker.C:
			if _, err := sm.Poll(ctx); err != nil {
				sm.logger.Warn("signal poll failed", zap.Error(err))
			}
			sm.book.Prune()
		}
	}
}

func (sm *SignalMonitor) buildAlert(s Signal) notifier.SignalAlert {
	marketURL := ""
	if s.Slug != "" {
		marketURL = eventURLPrefix + s.Slug
	}

	return notifier.SignalAlert{
		ConditionID: s.ConditionID,
		MarketTitle: nz(s.Title, shortID(s.ConditionID)),
		MarketURL:   marketURL,
		Outcome:     s.Outcome,
		Side:        string(s.Side),
		TotalSize:   s.TotalSize,
		AvgPrice:    s.AvgPrice,
		TraderCount: s.TraderCount,
		Confidence:  string(s.Confidence),
		Traders:     s.Traders,
		Timestamp:   time.Now(),
	}
}

// Assets returns the token IDs held by the followed traders as of the
// last poll, for live stream subscriptions.
func (sm *SignalMonitor) Assets() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	out := make([]string, len(sm.lastAssets))
	copy(out, sm.lastAssets)
	return out
}

func (sm *SignalMonitor) markPoll(emitted int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.signalsEmitted += emitted
	sm.lastPollAt = time.Now()
}

// SignalMonitorStats holds counters for the stats endpoint.
type SignalMonitorStats struct {
	SignalsEmitted int
	LastPollAt     time.Time
	BookSize       int
}

// Stats returns a snapshot of the monitor's counters.
func (sm *SignalMonitor) Stats() SignalMonitorStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return SignalMonitorStats{
		SignalsEmitted: sm.signalsEmitted,
		LastPollAt:     sm.lastPollAt,
		BookSize:       sm.book.Size(),
	}
}
