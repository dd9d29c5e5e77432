package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"polyedge/clients/polymarketapi"
	"polyedge/config"

	"go.uber.org/zap"
)

// closedPositionsPageSize matches the data API's per-request cap.
const closedPositionsPageSize = 50

var errAllWindowsFailed = errors.New("all leaderboard windows failed")

// ScannerAPIClient is the API surface the scanner needs.
// Satisfied by polymarketapi.PolymarketApiClient.
type ScannerAPIClient interface {
	GetLeaderboard(ctx context.Context, window string, limit int) ([]polymarketapi.LeaderboardEntry, error)
	GetClosedPositions(ctx context.Context, wallet string, limit, offset int) ([]polymarketapi.ClosedPosition, error)
}

// TraderScore is a leaderboard trader with their computed edge score.
type TraderScore struct {
	Wallet    string    `json:"wallet"`
	Name      string    `json:"name"`
	Pnl       float64   `json:"pnl"`
	Volume    float64   `json:"volume"`
	Edge      EdgeScore `json:"edge"`
	Rank      int       `json:"rank"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// TraderScanner discovers profitable traders from the leaderboard and ranks
// them by edge score. Scores are cached to avoid re-fetching closed positions
// for wallets seen on consecutive scans.
type TraderScanner struct {
	logger    *zap.Logger
	apiClient ScannerAPIClient

	windows       []string
	minVolume     float64
	scoreCacheTTL time.Duration
	topCandidates int
	followCount   int

	mu     sync.RWMutex
	cache  map[string]*TraderScore
	ranked []TraderScore
}

// NewTraderScanner creates a new trader scanner.
func NewTraderScanner(logger *zap.Logger, apiClient ScannerAPIClient, cfg config.ScannerConfig) *TraderScanner {
	if logger == nil {
		logger = zap.NewNop()
	}

	windows := cfg.Windows
	if len(windows) == 0 {
		windows = []string{"all", "30d", "7d"}
	}
	ttl := cfg.ScoreCacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	top := cfg.TopCandidates
	if top <= 0 {
		top = 25
	}
	follow := cfg.FollowCount
	if follow <= 0 {
		follow = 10
	}

	return &TraderScanner{
		logger:        logger.Named("scanner"),
		apiClient:     apiClient,
		windows:       windows,
		minVolume:     cfg.MinVolume,
		scoreCacheTTL: ttl,
		topCandidates: top,
		followCount:   follow,
		cache:         make(map[string]*TraderScore),
	}
}

// ScanResult is the outcome of a single leaderboard scan.
type ScanResult struct {
	Ranked      []TraderScore
	NewEntrants []TraderScore // wallets absent from the previous ranking
}

// Scan fetches the configured leaderboard windows, aggregates and filters the
// traders, scores each candidate, and ranks them by edge score. Wallets
// scored within the cache TTL reuse their cached score.
func (ts *TraderScanner) Scan(ctx context.Context) (*ScanResult, error) {
	sources := make([][]polymarketapi.LeaderboardEntry, 0, len(ts.windows))
	for _, window := range ts.windows {
		entries, err := ts.apiClient.GetLeaderboard(ctx, window, 50)
		if err != nil {
			ts.logger.Warn("leaderboard fetch failed",
				zap.String("window", window),
				zap.Error(err),
			)
			continue
		}
		sources = append(sources, entries)
	}

	if len(sources) == 0 {
		return nil, errAllWindowsFailed
	}

	candidates := AggregateTraders(sources, ts.minVolume)

	scores := make([]TraderScore, 0, len(candidates))
	for _, entry := range candidates {
		score, err := ts.scoreTrader(ctx, entry)
		if err != nil {
			ts.logger.Warn("failed to score trader",
				zap.String("wallet", shortID(entry.ProxyWallet)),
				zap.Error(err),
			)
			continue
		}
		scores = append(scores, *score)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Edge.Score != scores[j].Edge.Score {
			return scores[i].Edge.Score > scores[j].Edge.Score
		}
		return scores[i].Pnl > scores[j].Pnl
	})

	if len(scores) > ts.topCandidates {
		scores = scores[:ts.topCandidates]
	}
	for i := range scores {
		scores[i].Rank = i + 1
	}

	ts.mu.Lock()
	prev := make(map[string]struct{}, len(ts.ranked))
	for _, s := range ts.ranked {
		prev[strings.ToLower(s.Wallet)] = struct{}{}
	}
	firstScan := ts.ranked == nil
	ts.ranked = scores
	ts.mu.Unlock()

	var entrants []TraderScore
	if !firstScan {
		for _, s := range scores {
			if _, seen := prev[strings.ToLower(s.Wallet)]; !seen {
				entrants = append(entrants, s)
			}
		}
	}

	ts.logger.Info("scan complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("ranked", len(scores)),
		zap.Int("newEntrants", len(entrants)),
	)

	return &ScanResult{Ranked: scores, NewEntrants: entrants}, nil
}

// scoreTrader returns a cached score if fresh, otherwise fetches the wallet's
// closed positions and computes one.
func (ts *TraderScanner) scoreTrader(ctx context.Context, entry polymarketapi.LeaderboardEntry) (*TraderScore, error) {
	wallet := strings.ToLower(strings.TrimSpace(entry.ProxyWallet))

	ts.mu.RLock()
	cached, ok := ts.cache[wallet]
	ts.mu.RUnlock()

	if ok && time.Since(cached.FetchedAt) < ts.scoreCacheTTL {
		return cached, nil
	}

	positions, err := ts.fetchClosedPositions(ctx, entry.ProxyWallet)
	if err != nil {
		// If we have stale cache, return it on error
		if cached != nil {
			ts.logger.Warn("using stale score due to fetch error",
				zap.String("wallet", shortID(wallet)),
				zap.Error(err),
			)
			return cached, nil
		}
		return nil, err
	}

	metrics := ComputePositionMetrics(positions)
	edge := ScoreTrader(entry.Amount, entry.Volume, metrics)

	score := &TraderScore{
		Wallet:    wallet,
		Name:      nz(entry.Name, entry.Pseudonym),
		Pnl:       entry.Amount,
		Volume:    entry.Volume,
		Edge:      edge,
		FetchedAt: time.Now(),
	}

	ts.mu.Lock()
	ts.cache[wallet] = score
	ts.mu.Unlock()

	ts.logger.Debug("scored trader",
		zap.String("wallet", shortID(wallet)),
		zap.Float64("edgeScore", edge.Score),
		zap.Int("totalTrades", metrics.TotalTrades),
	)

	return score, nil
}

// fetchClosedPositions pages through the wallet's closed positions. The API
// caps each page at 50 rows; a full first page triggers a second fetch.
func (ts *TraderScanner) fetchClosedPositions(ctx context.Context, wallet string) ([]polymarketapi.ClosedPosition, error) {
	positions, err := ts.apiClient.GetClosedPositions(ctx, wallet, closedPositionsPageSize, 0)
	if err != nil {
		return nil, err
	}

	if len(positions) == closedPositionsPageSize {
		second, err := ts.apiClient.GetClosedPositions(ctx, wallet, closedPositionsPageSize, closedPositionsPageSize)
		if err != nil {
			ts.logger.Warn("failed to fetch second batch of closed positions",
				zap.String("wallet", shortID(wallet)),
				zap.Error(err),
			)
		} else {
			positions = append(positions, second...)
		}
	}

	return positions, nil
}

// Ranked returns a copy of the most recent ranking.
func (ts *TraderScanner) Ranked() []TraderScore {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	out := make([]TraderScore, len(ts.ranked))
	copy(out, ts.ranked)
	return out
}

// Followed returns the top ranked traders as watchlist entries, capped at the
// configured follow count.
func (ts *TraderScanner) Followed() []WatchEntry {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	n := ts.followCount
	if n > len(ts.ranked) {
		n = len(ts.ranked)
	}

	entries := make([]WatchEntry, 0, n)
	for _, s := range ts.ranked[:n] {
		entries = append(entries, WatchEntry{
			Wallet:    s.Wallet,
			Name:      s.Name,
			EdgeScore: s.Edge.Score,
		})
	}
	return entries
}

// CacheSize returns the current number of cached scores.
func (ts *TraderScanner) CacheSize() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.cache)
}

// PruneStale removes score cache entries older than twice the TTL.
func (ts *TraderScanner) PruneStale() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	pruned := 0
	staleThreshold := 2 * ts.scoreCacheTTL

	for wallet, score := range ts.cache {
		if time.Since(score.FetchedAt) > staleThreshold {
			delete(ts.cache, wallet)
			pruned++
		}
	}

	return pruned
}

// ScoreSnapshot represents a serializable snapshot of the score cache.
type ScoreSnapshot struct {
	Version   int                    `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Scores    map[string]TraderScore `json:"scores"`
	Ranked    []TraderScore          `json:"ranked"`
}

// ExportCache exports the score cache and current ranking as a snapshot.
func (ts *TraderScanner) ExportCache() *ScoreSnapshot {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	scores := make(map[string]TraderScore, len(ts.cache))
	for k, v := range ts.cache {
		scores[k] = *v
	}
	ranked := make([]TraderScore, len(ts.ranked))
	copy(ranked, ts.ranked)

	return &ScoreSnapshot{
		Version:   1,
		Timestamp: time.Now(),
		Scores:    scores,
		Ranked:    ranked,
	}
}

// ExportCacheJSON exports the snapshot as JSON bytes.
func (ts *TraderScanner) ExportCacheJSON() ([]byte, error) {
	return json.Marshal(ts.ExportCache())
}

// ImportCache imports a snapshot, merging with existing data.
// Newer entries (by FetchedAt) take precedence.
func (ts *TraderScanner) ImportCache(snapshot *ScoreSnapshot) int {
	if snapshot == nil {
		return 0
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	imported := 0
	for wallet, score := range snapshot.Scores {
		existing, exists := ts.cache[wallet]
		if !exists || score.FetchedAt.After(existing.FetchedAt) {
			scoreCopy := score
			ts.cache[wallet] = &scoreCopy
			imported++
		}
	}

	if ts.ranked == nil && len(snapshot.Ranked) > 0 {
		ts.ranked = make([]TraderScore, len(snapshot.Ranked))
		copy(ts.ranked, snapshot.Ranked)
	}

	ts.logger.Info("imported score cache",
		zap.Int("imported", imported),
		zap.Int("totalCached", len(ts.cache)),
		zap.Time("snapshotTime", snapshot.Timestamp),
	)

	return imported
}

// ImportCacheJSON imports a snapshot from JSON bytes.
func (ts *TraderScanner) ImportCacheJSON(data []byte) (int, error) {
	var snapshot ScoreSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return 0, err
	}

	return ts.ImportCache(&snapshot), nil
}
