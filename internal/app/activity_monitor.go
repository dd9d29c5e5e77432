package app

import (
	"context"
	"sync"
	"time"

	"polyedge/clients/notifier"
	"polyedge/clients/polymarketapi"
	"polyedge/config"

	"go.uber.org/zap"
)

// ActivityAPIClient is the API surface the activity monitor needs.
// Satisfied by polymarketapi.PolymarketApiClient.
type ActivityAPIClient interface {
	GetUserActivity(ctx context.Context, wallet string, limit int) ([]polymarketapi.Activity, error)
}

// ActivityMonitor polls the recent trade activity of watched traders and
// emits whale alerts for fresh trades above the size threshold. Per-wallet
// watermarks guarantee each trade is reported at most once.
type ActivityMonitor struct {
	logger    *zap.Logger
	apiClient ActivityAPIClient
	watchlist WatchlistSource
	notify    notifier.Notifier

	minTradeSize  float64
	pollInterval  time.Duration
	activityLimit int

	mu         sync.Mutex
	state      WatchState
	alertsSent int
	lastPollAt time.Time
}

// NewActivityMonitor creates a new activity monitor.
func NewActivityMonitor(
	logger *zap.Logger,
	apiClient ActivityAPIClient,
	watchlist WatchlistSource,
	notify notifier.Notifier,
	cfg config.WatcherConfig,
) *ActivityMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	limit := cfg.ActivityLimit
	if limit <= 0 {
		limit = 25
	}

	return &ActivityMonitor{
		logger:        logger.Named("activity-monitor"),
		apiClient:     apiClient,
		watchlist:     watchlist,
		notify:        notify,
		minTradeSize:  cfg.MinTradeSize,
		pollInterval:  interval,
		activityLimit: limit,
		state:         NewWatchState(time.Now().UnixMilli()),
	}
}

// State returns a copy of the current watch state for persistence.
func (am *ActivityMonitor) State() WatchState {
	am.mu.Lock()
	defer am.mu.Unlock()
	return am.state.clone()
}

// SetState replaces the watch state, typically on startup from a snapshot.
func (am *ActivityMonitor) SetState(state WatchState) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if state.LastSeen == nil {
		state.LastSeen = make(map[string]int64)
	}
	am.state = state.clone()
}

// Poll fetches each watched trader's recent activity once and returns the
// fresh trades that were alerted on.
func (am *ActivityMonitor) Poll(ctx context.Context) ([]polymarketapi.Activity, error) {
	entries := am.watchlist.Followed()

	am.mu.Lock()
	state := am.state.clone()
	am.mu.Unlock()

	state.Watchlist = entries

	nowMs := time.Now().UnixMilli()
	var fresh []polymarketapi.Activity

	for _, entry := range entries {
		activity, err := am.apiClient.GetUserActivity(ctx, entry.Wallet, am.activityLimit)
		if err != nil {
			am.logger.Warn("failed to fetch activity",
				zap.String("wallet", shortID(entry.Wallet)),
				zap.Error(err),
			)
			continue
		}

		trades, next := TrackNewActivity(entry.Wallet, activity, state, am.minTradeSize, nowMs)
		state = next

		for _, trade := range trades {
			fresh = append(fresh, trade)
			if am.notify != nil {
				am.notify.SendWhaleAlert(am.buildAlert(entry, trade))
			}
		}
	}

	am.mu.Lock()
	am.state = state
	am.alertsSent += len(fresh)
	am.lastPollAt = time.Now()
	am.mu.Unlock()

	if len(fresh) > 0 {
		am.logger.Info("whale trades detected",
			zap.Int("trades", len(fresh)),
			zap.Int("watched", len(entries)),
		)
	}

	return fresh, nil
}

// Run polls on the configured interval until the context is canceled.
// One poll runs immediately on start.
func (am *ActivityMonitor) Run(ctx context.Context) {
	am.logger.Info("activity monitor started",
		zap.Duration("pollInterval", am.pollInterval),
		zap.Float64("minTradeSize", am.minTradeSize),
	)

	if _, err := am.Poll(ctx); err != nil {
		am.logger.Warn("initial activity poll failed", zap.Error(err))
	}

	ticker := time.NewTicker(am.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			am.logger.Info("activity monitor stopping")
			return
		case <-ticker.C:
			if _, err := am.Poll(ctx); err != nil {
				am.logger.Warn("activity poll failed", zap.Error(err))
			}
		}
	}
}

func (am *ActivityMonitor) buildAlert(entry WatchEntry, trade polymarketapi.Activity) notifier.WhaleAlert {
	marketURL := ""
	if trade.Slug != "" {
		marketURL = eventURLPrefix + trade.Slug
	}

	return notifier.WhaleAlert{
		TraderName:    nz(entry.Name, shortID(entry.Wallet)),
		TraderAddress: entry.Wallet,
		WalletURL:     profileURLPrefix + entry.Wallet,
		EdgeScore:     entry.EdgeScore,
		Side:          trade.Side,
		Shares:        trade.Size,
		Price:         trade.Price,
		Notional:      tradeNotional(trade),
		MarketTitle:   nz(trade.Title, shortID(trade.ConditionID)),
		MarketURL:     marketURL,
		ConditionID:   trade.ConditionID,
		Outcome:       trade.Outcome,
		Timestamp:     time.UnixMilli(NormalizeTimestampMs(trade.Timestamp)),
	}
}

// ActivityMonitorStats holds counters for the stats endpoint.
type ActivityMonitorStats struct {
	AlertsSent     int
	WatchedWallets int
	LastPollAt     time.Time
}

// Stats returns a snapshot of the monitor's counters.
func (am *ActivityMonitor) Stats() ActivityMonitorStats {
	am.mu.Lock()
	defer am.mu.Unlock()

	return ActivityMonitorStats{
		AlertsSent:     am.alertsSent,
		WatchedWallets: len(am.state.Watchlist),
		LastPollAt:     am.lastPollAt,
	}
}
