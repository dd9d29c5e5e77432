package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool `json:"is_prod"`

	// Discord
	Discord DiscordConfig `json:"discord"`

	// Telegram
	Telegram TelegramConfig `json:"telegram"`

	// Generic webhook delivery
	Webhook WebhookConfig `json:"webhook"`

	// Leaderboard scanning / trader scoring
	Scanner ScannerConfig `json:"scanner"`

	// Signal aggregation
	Signals SignalsConfig `json:"signals"`

	// Watchlist activity tracking
	Watcher WatcherConfig `json:"watcher"`

	// Flat-file state persistence
	State StateConfig `json:"state"`

	// Polymarket API
	Polymarket PolymarketConfig `json:"polymarket"`

	// Health server
	HealthServer HealthServerConfig `json:"health_server"`
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken      string `json:"-"` // Excluded - env var only
	ProdChannelID string `json:"prod_channel_id"`
	BetaChannelID string `json:"beta_channel_id"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken   string `json:"-"` // Excluded - env var only
	ProdChatID string `json:"prod_chat_id"`
	BetaChatID string `json:"beta_chat_id"`
}

// WebhookConfig holds generic webhook delivery configuration.
type WebhookConfig struct {
	URL     string        `json:"-"` // Excluded - env var only
	Timeout time.Duration `json:"timeout"`
}

// ScannerConfig holds leaderboard scanning and trader scoring configuration.
type ScannerConfig struct {
	// Windows is the ordered list of leaderboard windows to merge. Order is
	// significant: when the same wallet appears in more than one window, the
	// record from the earliest window in this list is kept verbatim.
	Windows []string `json:"windows"`

	MinVolume     float64       `json:"min_volume"`      // Minimum traded volume to be a candidate
	ScanInterval  time.Duration `json:"scan_interval"`   // How often to rescan leaderboards
	ScoreCacheTTL time.Duration `json:"score_cache_ttl"` // How long a wallet's score stays fresh
	TopCandidates int           `json:"top_candidates"`  // How many ranked candidates to surface
	FollowCount   int           `json:"follow_count"`    // How many top candidates feed the signal monitor
}

// SignalsConfig holds signal aggregation configuration.
type SignalsConfig struct {
	MinSignalSize    float64       `json:"min_signal_size"`    // Drop groups below this aggregate size
	HighMinTraders   int           `json:"high_min_traders"`   // Trader count for HIGH confidence
	MediumMinTraders int           `json:"medium_min_traders"` // Trader count for MEDIUM confidence
	MediumMinSize    float64       `json:"medium_min_size"`    // Aggregate size for MEDIUM confidence
	LowMinSize       float64       `json:"low_min_size"`       // Aggregate size for LOW confidence
	DedupWindow      time.Duration `json:"dedup_window"`       // Suppress re-emitting a signal key within this window
	PollInterval     time.Duration `json:"poll_interval"`      // How often to refresh followed positions
}

// WatcherConfig holds watchlist activity tracking configuration.
type WatcherConfig struct {
	MinTradeSize  float64       `json:"min_trade_size"` // Minimum USD size to alert on
	PollInterval  time.Duration `json:"poll_interval"`  // How often to poll each wallet's activity
	ActivityLimit int           `json:"activity_limit"` // Page size for activity fetches
	UseWebSocket  bool          `json:"use_websocket"`  // If true, also consume the live trade stream
}

// StateConfig holds flat-file persistence configuration.
type StateConfig struct {
	Dir             string        `json:"dir"`
	WatchFileName   string        `json:"watch_file_name"`
	SignalsFileName string        `json:"signals_file_name"`
	ScoresFileName  string        `json:"scores_file_name"`
	SaveInterval    time.Duration `json:"save_interval"`
}

// PolymarketConfig holds Polymarket API configuration.
type PolymarketConfig struct {
	GammaAPIURL       string `json:"gamma_api_url"`
	DataAPIURL        string `json:"data_api_url"`
	LeaderboardAPIURL string `json:"leaderboard_api_url"`
}

// HealthServerConfig holds health check server configuration.
type HealthServerConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// Clone creates a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Scanner.Windows != nil {
		clone.Scanner.Windows = make([]string, len(c.Scanner.Windows))
		copy(clone.Scanner.Windows, c.Scanner.Windows)
	}
	return &clone
}

// ToJSON serializes the config to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ConfigFromJSON deserializes JSON into a config, merging with base.
func ConfigFromJSON(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	cfg := base.Clone()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd:   false,
		Discord:  DiscordConfig{},
		Telegram: TelegramConfig{},
		Webhook: WebhookConfig{
			Timeout: 10 * time.Second,
		},
		Scanner: ScannerConfig{
			Windows:       []string{"all", "30d", "7d"},
			MinVolume:     10000.0,
			ScanInterval:  30 * time.Minute,
			ScoreCacheTTL: 15 * time.Minute,
			TopCandidates: 25,
			FollowCount:   10,
		},
		Signals: SignalsConfig{
			MinSignalSize:    1000.0,
			HighMinTraders:   3,
			MediumMinTraders: 2,
			MediumMinSize:    50000.0,
			LowMinSize:       10000.0,
			DedupWindow:      24 * time.Hour,
			PollInterval:     5 * time.Minute,
		},
		Watcher: WatcherConfig{
			MinTradeSize:  10000.0,
			PollInterval:  1 * time.Minute,
			ActivityLimit: 25,
			UseWebSocket:  false,
		},
		State: StateConfig{
			Dir:             ".",
			WatchFileName:   "watch_state.json",
			SignalsFileName: "emitted_signals.json",
			ScoresFileName:  "trader_scores.json",
			SaveInterval:    5 * time.Minute,
		},
		Polymarket: PolymarketConfig{
			GammaAPIURL:       "https://gamma-api.polymarket.com",
			DataAPIURL:        "https://data-api.polymarket.com",
			LeaderboardAPIURL: "https://lb-api.polymarket.com",
		},
		HealthServer: HealthServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		Discord: DiscordConfig{
			BotToken:      envString("DISCORD_BOT_TOKEN", ""),
			ProdChannelID: envString("DISCORD_PROD_CHANNEL_ID", ""),
			BetaChannelID: envString("DISCORD_BETA_CHANNEL_ID", ""),
		},

		Telegram: TelegramConfig{
			BotToken:   envString("TELEGRAM_BOT_KEY", ""),
			ProdChatID: envString("TELEGRAM_PROD_CHAT_ID", ""),
			BetaChatID: envString("TELEGRAM_BETA_CHAT_ID", ""),
		},

		Webhook: WebhookConfig{
			URL:     envString("WEBHOOK_URL", ""),
			Timeout: envDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		},

		Scanner: ScannerConfig{
			Windows:       envStringSliceDefault("SCANNER_WINDOWS", []string{"all", "30d", "7d"}),
			MinVolume:     envFloat("SCANNER_MIN_VOLUME", 10000.0),
			ScanInterval:  envDuration("SCANNER_INTERVAL", 30*time.Minute),
			ScoreCacheTTL: envDuration("SCANNER_SCORE_CACHE_TTL", 15*time.Minute),
			TopCandidates: envInt("SCANNER_TOP_CANDIDATES", 25),
			FollowCount:   envInt("SCANNER_FOLLOW_COUNT", 10),
		},

		Signals: SignalsConfig{
			MinSignalSize:    envFloat("SIGNAL_MIN_SIZE", 1000.0),
			HighMinTraders:   envInt("SIGNAL_HIGH_MIN_TRADERS", 3),
			MediumMinTraders: envInt("SIGNAL_MEDIUM_MIN_TRADERS", 2),
			MediumMinSize:    envFloat("SIGNAL_MEDIUM_MIN_SIZE", 50000.0),
			LowMinSize:       envFloat("SIGNAL_LOW_MIN_SIZE", 10000.0),
			DedupWindow:      envDuration("SIGNAL_DEDUP_WINDOW", 24*time.Hour),
			PollInterval:     envDuration("SIGNAL_POLL_INTERVAL", 5*time.Minute),
		},

		Watcher: WatcherConfig{
			MinTradeSize:  envFloat("WATCHER_MIN_TRADE_SIZE", 10000.0),
			PollInterval:  envDuration("WATCHER_POLL_INTERVAL", 1*time.Minute),
			ActivityLimit: envInt("WATCHER_ACTIVITY_LIMIT", 25),
			UseWebSocket:  envBoolDefault("USE_WEBSOCKET", false),
		},

		State: StateConfig{
			Dir:             envString("STATE_DIR", "."),
			WatchFileName:   envString("WATCH_STATE_FILE_NAME", "watch_state.json"),
			SignalsFileName: envString("SIGNALS_STATE_FILE_NAME", "emitted_signals.json"),
			ScoresFileName:  envString("SCORES_STATE_FILE_NAME", "trader_scores.json"),
			SaveInterval:    envDuration("STATE_SAVE_INTERVAL", 5*time.Minute),
		},

		Polymarket: PolymarketConfig{
			GammaAPIURL:       envString("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
			DataAPIURL:        envString("POLYMARKET_DATA_API_URL", "https://data-api.polymarket.com"),
			LeaderboardAPIURL: envString("POLYMARKET_LEADERBOARD_API_URL", "https://lb-api.polymarket.com"),
		},

		HealthServer: HealthServerConfig{
			Enabled: envBoolDefault("HEALTH_SERVER_ENABLED", true),
			Port:    envInt("HEALTH_SERVER_PORT", 8080),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}

func envStringSliceDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
