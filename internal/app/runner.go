package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	clts "polyedge/clients"
	"polyedge/clients/notifier"
	"polyedge/clients/polymarketstream"
	"polyedge/config"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

type Runner struct {
	clients         *clts.Clients
	cfg             *config.Config
	scanner         *TraderScanner
	signalBook      *SignalBook
	signalMonitor   *SignalMonitor
	activityMonitor *ActivityMonitor
	stateStore      *StateStore
	healthServer    *http.Server
	startTime       time.Time

	mu              sync.Mutex
	candidateAlerts int
	lastScanAt      time.Time
	assetSet        map[string]struct{}
	streamConnected bool
	streamTrades    int
}

// ServiceStats holds comprehensive service statistics.
type ServiceStats struct {
	// Build info
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	// Service info
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	// Scanner stats
	Scanner struct {
		RankedCandidates int    `json:"ranked_candidates"`
		FollowedTraders  int    `json:"followed_traders"`
		ScoreCacheSize   int    `json:"score_cache_size"`
		CandidateAlerts  int    `json:"candidate_alerts"`
		LastScanAt       string `json:"last_scan_at,omitempty"`
		LastScanAgo      string `json:"last_scan_ago,omitempty"`
	} `json:"scanner"`

	// Signal stats
	Signals struct {
		Emitted    int    `json:"emitted"`
		BookSize   int    `json:"book_size"`
		LastPollAt string `json:"last_poll_at,omitempty"`
	} `json:"signals"`

	// Watcher stats
	Watcher struct {
		WhaleAlerts    int    `json:"whale_alerts"`
		WatchedWallets int    `json:"watched_wallets"`
		LastPollAt     string `json:"last_poll_at,omitempty"`
	} `json:"watcher"`

	// WebSocket stats
	WebSocket struct {
		Enabled          bool   `json:"enabled"`
		Connected        bool   `json:"connected"`
		MessageCount     uint64 `json:"message_count"`
		LastMessageAt    string `json:"last_message_at,omitempty"`
		LastMessageAgo   string `json:"last_message_ago,omitempty"`
		SubscribedAssets int    `json:"subscribed_assets"`
		TradesSeenViaWS  int    `json:"trades_seen_via_ws"`
	} `json:"websocket"`

	// Notification status
	Notifications struct {
		DiscordEnabled  bool `json:"discord_enabled"`
		TelegramEnabled bool `json:"telegram_enabled"`
		WebhookEnabled  bool `json:"webhook_enabled"`
		SinkCount       int  `json:"sink_count"`
	} `json:"notifications"`

	// Runtime stats
	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		HeapSys    uint64 `json:"heap_sys"`
		HeapInuse  uint64 `json:"heap_inuse"`
		StackInuse uint64 `json:"stack_inuse"`
		NumGC      uint32 `json:"num_gc"`
		LastGC     string `json:"last_gc"`
		GoVersion  string `json:"go_version"`
		NumCPU     int    `json:"num_cpu"`
		GOOS       string `json:"goos"`
		GOARCH     string `json:"goarch"`
	} `json:"runtime"`
}

func NewRunner(clients *clts.Clients, cfg *config.Config) *Runner {
	return &Runner{
		clients: clients,
		cfg:     cfg,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	logger := r.clients.Logger
	cfg := r.cfg

	logger.Info("starting trader scanner",
		zap.Strings("windows", cfg.Scanner.Windows),
		zap.Float64("minVolume", cfg.Scanner.MinVolume),
		zap.Int("topCandidates", cfg.Scanner.TopCandidates),
		zap.Int("followCount", cfg.Scanner.FollowCount),
	)

	r.scanner = NewTraderScanner(logger, r.clients.Polymarket, cfg.Scanner)
	r.signalBook = NewSignalBook(logger, cfg.Signals.DedupWindow)
	r.signalMonitor = NewSignalMonitor(
		logger,
		r.clients.Polymarket,
		r.scanner,
		r.clients.Notifier,
		r.signalBook,
		SignalConfigFrom(cfg.Signals),
		cfg.Signals.PollInterval,
	)
	r.activityMonitor = NewActivityMonitor(
		logger,
		r.clients.Polymarket,
		r.scanner,
		r.clients.Notifier,
		cfg.Watcher,
	)
	r.stateStore = NewStateStore(logger, cfg.State, r.scanner, r.signalBook, r.activityMonitor)

	// Restore persisted state before the first scan so restarts don't
	// re-alert on everything.
	r.stateStore.LoadAll()

	// Initial scan. New entrants are not alerted on the first pass, the
	// whole leaderboard would be "new".
	result, err := r.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("initial leaderboard scan: %w", err)
	}
	r.markScan(0)
	logger.Info("initial scan complete",
		zap.Int("ranked", len(result.Ranked)),
		zap.Int("followed", len(r.scanner.Followed())),
	)

	// Start health check server if enabled
	if cfg.HealthServer.Enabled {
		r.startHealthServer(cfg.HealthServer.Port)
		logger.Info("health server started", zap.Int("port", cfg.HealthServer.Port))
	}

	go r.runScanLoop(ctx)
	go r.signalMonitor.Run(ctx)
	go r.activityMonitor.Run(ctx)
	go r.stateStore.Run(ctx)

	if r.clients.Stream != nil {
		if err := r.connectStream(ctx); err != nil {
			logger.Warn("failed to connect trade stream, polling only", zap.Error(err))
		}
		go r.runStreamConsumer(ctx)
		go r.runStreamReconnector(ctx)
	}

	<-ctx.Done()
	logger.Info("runner shutting down")

	if r.clients.Stream != nil {
		_ = r.clients.Stream.Close()
	}

	// Shutdown health server
	if r.healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = r.healthServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	return nil
}

// runScanLoop rescans the leaderboards on the configured interval and
// alerts on candidates entering the ranking.
func (r *Runner) runScanLoop(ctx context.Context) {
	logger := r.clients.Logger
	interval := r.cfg.Scanner.ScanInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := r.scanner.Scan(ctx)
			if err != nil {
				logger.Warn("leaderboard scan failed", zap.Error(err))
				continue
			}

			for _, entrant := range result.NewEntrants {
				if r.clients.Notifier != nil {
					r.clients.Notifier.SendCandidateAlert(r.buildCandidateAlert(entrant))
				}
			}
			r.markScan(len(result.NewEntrants))

			pruned := r.scanner.PruneStale()
			logger.Info("scan complete",
				zap.Int("ranked", len(result.Ranked)),
				zap.Int("newEntrants", len(result.NewEntrants)),
				zap.Int("prunedScores", pruned),
			)

			r.refreshStreamSubscriptions()
		}
	}
}

// refreshStreamSubscriptions subscribes the stream to assets the followed
// traders have picked up since connecting.
func (r *Runner) refreshStreamSubscriptions() {
	if r.clients.Stream == nil {
		return
	}

	assets := r.signalMonitor.Assets()

	r.mu.Lock()
	if r.assetSet == nil {
		r.assetSet = make(map[string]struct{})
	}
	var added []string
	for _, a := range assets {
		if _, ok := r.assetSet[a]; !ok {
			r.assetSet[a] = struct{}{}
			added = append(added, a)
		}
	}
	r.mu.Unlock()

	if len(added) == 0 {
		return
	}
	if err := r.clients.Stream.SubscribeAssets(added); err != nil {
		r.clients.Logger.Warn("failed to subscribe new assets",
			zap.Int("count", len(added)),
			zap.Error(err),
		)
	}
}

func (r *Runner) buildCandidateAlert(ts TraderScore) notifier.CandidateAlert {
	return notifier.CandidateAlert{
		TraderName:    nz(ts.Name, shortID(ts.Wallet)),
		TraderAddress: ts.Wallet,
		WalletURL:     profileURLPrefix + ts.Wallet,
		EdgeScore:     ts.Edge.Score,
		Efficiency:    ts.Edge.Efficiency,
		WinRate:       ts.Edge.Metrics.WinRate,
		ProfitFactor:  ts.Edge.Metrics.ProfitFactor,
		TotalTrades:   ts.Edge.Metrics.TotalTrades,
		Pnl:           ts.Pnl,
		Volume:        ts.Volume,
		Rank:          ts.Rank,
		Timestamp:     time.Now(),
	}
}

func (r *Runner) markScan(alerts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidateAlerts += alerts
	r.lastScanAt = time.Now()
}

// connectStream connects the market stream and subscribes to the assets
// held by the followed traders.
func (r *Runner) connectStream(ctx context.Context) error {
	assets := r.signalMonitor.Assets()

	// Pass the parent context, not a timeout context. ConnectMarket uses
	// ctx both for dialing and for a goroutine that closes the connection
	// when ctx is canceled.
	if err := r.clients.Stream.ConnectMarket(ctx, assets); err != nil {
		return fmt.Errorf("connect market stream: %w", err)
	}

	assetSet := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		assetSet[a] = struct{}{}
	}

	r.mu.Lock()
	r.assetSet = assetSet
	r.streamConnected = true
	r.mu.Unlock()

	r.clients.Logger.Info("trade stream connected",
		zap.Int("subscribedAssets", len(assets)),
	)
	return nil
}

// runStreamConsumer reads trade events off the live stream and alerts on
// trades made by followed wallets.
func (r *Runner) runStreamConsumer(ctx context.Context) {
	logger := r.clients.Logger

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-r.clients.Stream.Errors():
			if !ok {
				return
			}
			logger.Warn("trade stream error", zap.Error(err))
		case raw, ok := <-r.clients.Stream.Messages():
			if !ok {
				return
			}
			r.handleStreamMessage(raw)
		}
	}
}

func (r *Runner) handleStreamMessage(raw json.RawMessage) {
	event := polymarketstream.ParseTradeEvent(raw)
	if event == nil {
		return
	}

	entries := r.scanner.Followed()
	for _, entry := range entries {
		if !event.InvolvesWallet(entry.Wallet) {
			continue
		}

		notional := event.PriceFloat() * event.SizeFloat()
		if notional < r.cfg.Watcher.MinTradeSize {
			continue
		}

		r.mu.Lock()
		r.streamTrades++
		r.mu.Unlock()

		if r.clients.Notifier != nil {
			r.clients.Notifier.SendWhaleAlert(notifier.WhaleAlert{
				TraderName:    nz(entry.Name, shortID(entry.Wallet)),
				TraderAddress: entry.Wallet,
				WalletURL:     profileURLPrefix + entry.Wallet,
				EdgeScore:     entry.EdgeScore,
				Side:          event.Side,
				Shares:        event.SizeFloat(),
				Price:         event.PriceFloat(),
				Notional:      notional,
				MarketTitle:   shortID(event.AssetID),
				Timestamp:     time.Now(),
			})
		}
	}
}

// runStreamReconnector monitors stream health and reconnects when stale.
func (r *Runner) runStreamReconnector(ctx context.Context) {
	logger := r.clients.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := r.clients.Stream.Stats()
			if stats.MessageCount > 0 && time.Since(stats.LastMessageAt) > 2*time.Minute {
				logger.Warn("trade stream appears stale, reconnecting",
					zap.Duration("timeSinceLastMessage", time.Since(stats.LastMessageAt)),
				)
				r.reconnectStream(ctx)
			}
		}
	}
}

func (r *Runner) reconnectStream(ctx context.Context) {
	logger := r.clients.Logger

	_ = r.clients.Stream.Close()
	r.mu.Lock()
	r.streamConnected = false
	r.mu.Unlock()

	time.Sleep(5 * time.Second)

	if err := r.connectStream(ctx); err != nil {
		logger.Error("failed to reconnect trade stream", zap.Error(err))
	}
}

// GetStats returns comprehensive service statistics.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	// Build info
	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	// Service info
	stats.StartTime = r.startTime.UTC().Format(time.RFC3339)
	uptime := time.Since(r.startTime)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())

	r.mu.Lock()
	candidateAlerts := r.candidateAlerts
	lastScanAt := r.lastScanAt
	subscribedAssets := len(r.assetSet)
	streamConnected := r.streamConnected
	streamTrades := r.streamTrades
	r.mu.Unlock()

	// Scanner stats
	if r.scanner != nil {
		stats.Scanner.RankedCandidates = len(r.scanner.Ranked())
		stats.Scanner.FollowedTraders = len(r.scanner.Followed())
		stats.Scanner.ScoreCacheSize = r.scanner.CacheSize()
	}
	stats.Scanner.CandidateAlerts = candidateAlerts
	if !lastScanAt.IsZero() {
		stats.Scanner.LastScanAt = lastScanAt.UTC().Format(time.RFC3339)
		stats.Scanner.LastScanAgo = time.Since(lastScanAt).Round(time.Second).String()
	}

	// Signal stats
	if r.signalMonitor != nil {
		ss := r.signalMonitor.Stats()
		stats.Signals.Emitted = ss.SignalsEmitted
		stats.Signals.BookSize = ss.BookSize
		if !ss.LastPollAt.IsZero() {
			stats.Signals.LastPollAt = ss.LastPollAt.UTC().Format(time.RFC3339)
		}
	}

	// Watcher stats
	if r.activityMonitor != nil {
		as := r.activityMonitor.Stats()
		stats.Watcher.WhaleAlerts = as.AlertsSent
		stats.Watcher.WatchedWallets = as.WatchedWallets
		if !as.LastPollAt.IsZero() {
			stats.Watcher.LastPollAt = as.LastPollAt.UTC().Format(time.RFC3339)
		}
	}

	// WebSocket stats
	stats.WebSocket.Enabled = r.clients.Stream != nil
	if r.clients.Stream != nil {
		wsStats := r.clients.Stream.Stats()
		stats.WebSocket.Connected = streamConnected
		stats.WebSocket.MessageCount = wsStats.MessageCount
		stats.WebSocket.SubscribedAssets = subscribedAssets
		stats.WebSocket.TradesSeenViaWS = streamTrades
		if !wsStats.LastMessageAt.IsZero() {
			stats.WebSocket.LastMessageAt = wsStats.LastMessageAt.UTC().Format(time.RFC3339)
			stats.WebSocket.LastMessageAgo = time.Since(wsStats.LastMessageAt).Round(time.Second).String()
		}
	}

	// Notification status
	stats.Notifications.DiscordEnabled = r.clients.Discord != nil && r.clients.Discord.Enabled()
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil && r.clients.Telegram.Enabled()
	stats.Notifications.WebhookEnabled = r.clients.Webhook != nil && r.clients.Webhook.Enabled()
	if mn, ok := r.clients.Notifier.(*notifier.MultiNotifier); ok {
		stats.Notifications.SinkCount = mn.Count()
	}

	// Runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = memStats.HeapAlloc
	stats.Runtime.HeapSys = memStats.HeapSys
	stats.Runtime.HeapInuse = memStats.HeapInuse
	stats.Runtime.StackInuse = memStats.StackInuse
	stats.Runtime.NumGC = memStats.NumGC
	if memStats.LastGC > 0 {
		stats.Runtime.LastGC = time.Unix(0, int64(memStats.LastGC)).UTC().Format(time.RFC3339)
	}
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.NumCPU = runtime.NumCPU()
	stats.Runtime.GOOS = runtime.GOOS
	stats.Runtime.GOARCH = runtime.GOARCH

	return stats
}
