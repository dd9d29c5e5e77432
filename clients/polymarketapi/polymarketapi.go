package polymarketapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"polyedge/config"
	"strings"
	"time"

	"go.uber.org/zap"
)

type PolymarketApiClient struct {
	logger             *zap.Logger
	httpClient         *http.Client
	gammaBaseURL       string
	dataBaseURL        string
	leaderboardBaseURL string
}

func NewPolymarketApiClient(logger *zap.Logger, cfg *config.Config) *PolymarketApiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PolymarketApiClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		gammaBaseURL:       cfg.Polymarket.GammaAPIURL,
		dataBaseURL:        cfg.Polymarket.DataAPIURL,
		leaderboardBaseURL: cfg.Polymarket.LeaderboardAPIURL,
	}
}

// ---- Leaderboard API types ----

// LeaderboardEntry is one trader row from the leaderboard API for a given
// time window. Amount is cumulative PnL for the window; Volume is cumulative
// traded volume.
type LeaderboardEntry struct {
	ProxyWallet  string  `json:"proxyWallet"`
	Name         string  `json:"name"`
	Pseudonym    string  `json:"pseudonym"`
	Bio          string  `json:"bio"`
	ProfileImage string  `json:"profileImage"`
	Amount       float64 `json:"amount"`
	Volume       float64 `json:"vol"`
	Rank         string  `json:"rank"`
}

// GetLeaderboard fetches the profit leaderboard for a time window.
// Valid windows are "1d", "7d", "30d" and "all".
func (c *PolymarketApiClient) GetLeaderboard(
	ctx context.Context,
	window string,
	limit int,
) ([]LeaderboardEntry, error) {
	window = strings.TrimSpace(window)
	if window == "" {
		window = "all"
	}
	if limit <= 0 {
		limit = 50
	}

	u, err := url.Parse(c.leaderboardBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid leaderboardBaseURL: %w", err)
	}
	u.Path = "/leaderboard"

	q := u.Query()
	q.Set("window", window)
	q.Set("rankType", "pnl")
	q.Set("limit", fmt.Sprintf("%d", limit))
	u.RawQuery = q.Encode()

	var entries []LeaderboardEntry
	if err := c.doGet(ctx, u.String(), &entries); err != nil {
		return nil, fmt.Errorf("get leaderboard %q: %w", window, err)
	}

	return entries, nil
}

// ---- Gamma API types (minimal; add fields as you need) ----

type GammaMarket struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Question    string `json:"question"`
	ConditionID string `json:"conditionId"`

	// Volume metrics
	Volume24hr float64 `json:"volume24hr"`
	VolumeNum  float64 `json:"volumeNum"`

	// Status
	Active bool `json:"active"`
	Closed bool `json:"closed"`

	// Market image
	Image string `json:"image"`
}

// GetMarketByConditionID fetches a specific market by its condition ID.
// Used to enrich signals and alerts with titles and slugs.
func (c *PolymarketApiClient) GetMarketByConditionID(
	ctx context.Context,
	conditionID string,
) (*GammaMarket, error) {
	conditionID = strings.TrimSpace(conditionID)
	if conditionID == "" {
		return nil, fmt.Errorf("conditionID is empty")
	}

	u, err := url.Parse(c.gammaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gammaBaseURL: %w", err)
	}
	u.Path = "/markets"

	q := u.Query()
	q.Set("condition_id", conditionID)
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	var markets []GammaMarket
	if err := c.doGet(ctx, u.String(), &markets); err != nil {
		return nil, fmt.Errorf("get market by condition: %w", err)
	}

	if len(markets) == 0 {
		return nil, fmt.Errorf("market not found: %s", conditionID)
	}

	return &markets[0], nil
}

// ---- Data API types ----

// Activity represents user activity from the data API.
type Activity struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Timestamp       int64   `json:"timestamp"`
	ConditionID     string  `json:"conditionId"`
	Type            string  `json:"type"` // TRADE, SPLIT, MERGE, REDEEM, REWARD, CONVERSION
	Size            float64 `json:"size"`
	UsdcSize        float64 `json:"usdcSize"`
	Price           float64 `json:"price"`
	Side            string  `json:"side"`
	TransactionHash string  `json:"transactionHash"`

	// Market metadata
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Outcome string `json:"outcome"`
}

// ClosedPosition represents a closed position from the data API.
type ClosedPosition struct {
	ProxyWallet  string  `json:"proxyWallet"`
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	AvgPrice     float64 `json:"avgPrice"`
	TotalBought  float64 `json:"totalBought"`
	RealizedPnl  float64 `json:"realizedPnl"`
	Timestamp    int64   `json:"timestamp"`
	Title        string  `json:"title"`
	Outcome      string  `json:"outcome"`
	OutcomeIndex int     `json:"outcomeIndex"`
}

// Position represents an open position from the data API.
type Position struct {
	ProxyWallet  string  `json:"proxyWallet"`
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
	CashPnl      float64 `json:"cashPnl"`
	PercentPnl   float64 `json:"percentPnl"`
	TotalBought  float64 `json:"totalBought"`
	RealizedPnl  float64 `json:"realizedPnl"`
	CurPrice     float64 `json:"curPrice"`
	Redeemable   bool    `json:"redeemable"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	Icon         string  `json:"icon"`
	EventSlug    string  `json:"eventSlug"`
	Outcome      string  `json:"outcome"`
	OutcomeIndex int     `json:"outcomeIndex"`
	EndDate      string  `json:"endDate"`
}

// GetUserActivity fetches recent activity for a wallet address, newest first.
func (c *PolymarketApiClient) GetUserActivity(
	ctx context.Context,
	wallet string,
	limit int,
) ([]Activity, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet is empty")
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = "/activity"

	q := u.Query()
	q.Set("user", wallet)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	u.RawQuery = q.Encode()

	var activity []Activity
	if err := c.doGet(ctx, u.String(), &activity); err != nil {
		return nil, fmt.Errorf("get user activity: %w", err)
	}

	return activity, nil
}

// GetClosedPositions fetches closed positions for a specific wallet address.
func (c *PolymarketApiClient) GetClosedPositions(
	ctx context.Context,
	wallet string,
	limit int,
	offset int,
) ([]ClosedPosition, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet is empty")
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = "/closed-positions"

	q := u.Query()
	q.Set("user", wallet)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", offset))
	}
	u.RawQuery = q.Encode()

	var positions []ClosedPosition
	if err := c.doGet(ctx, u.String(), &positions); err != nil {
		return nil, fmt.Errorf("get closed positions: %w", err)
	}

	return positions, nil
}

// GetPositions fetches open positions for a specific wallet address.
// Optionally filter by market condition ID.
func (c *PolymarketApiClient) GetPositions(
	ctx context.Context,
	wallet string,
	market string,
	limit int,
) ([]Position, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet is empty")
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = "/positions"

	q := u.Query()
	q.Set("user", wallet)
	if market != "" {
		q.Set("market", market)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	// Set sizeThreshold to 0 to include positions of any size
	q.Set("sizeThreshold", "0")
	u.RawQuery = q.Encode()

	var positions []Position
	if err := c.doGet(ctx, u.String(), &positions); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	return positions, nil
}

func (c *PolymarketApiClient) doGet(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}
