package clients

import (
	"testing"

	"polyedge/config"

	"go.uber.org/zap"
)

func TestNewClients(t *testing.T) {
	cfg := &config.Config{
		Discord: config.DiscordConfig{
			BotToken:      "",
			ProdChannelID: "prod",
			BetaChannelID: "beta",
		},
		Watcher: config.WatcherConfig{
			UseWebSocket: true,
		},
		Polymarket: config.PolymarketConfig{
			GammaAPIURL:       "https://gamma.example.com",
			DataAPIURL:        "https://data.example.com",
			LeaderboardAPIURL: "https://lb.example.com",
		},
	}

	logger := zap.NewNop()
	clients := NewClients(logger, cfg)

	if clients.Logger != logger {
		t.Error("unexpected logger")
	}
	if clients.Discord == nil {
		t.Error("expected Discord client to be set")
	}
	if clients.Telegram == nil {
		t.Error("expected Telegram client to be set")
	}
	if clients.Webhook == nil {
		t.Error("expected Webhook client to be set")
	}
	if clients.Notifier == nil {
		t.Error("expected combined notifier to be set")
	}
	if clients.Polymarket == nil {
		t.Error("expected Polymarket client to be set")
	}
	if clients.Stream == nil {
		t.Error("expected Stream client to be set when UseWebSocket is true")
	}
}

func TestNewClients_PollingMode(t *testing.T) {
	cfg := &config.Config{
		Watcher: config.WatcherConfig{
			UseWebSocket: false,
		},
		Polymarket: config.PolymarketConfig{
			GammaAPIURL: "https://gamma.example.com",
			DataAPIURL:  "https://data.example.com",
		},
	}

	clients := NewClients(zap.NewNop(), cfg)

	if clients.Stream != nil {
		t.Error("expected Stream client to be nil when UseWebSocket is false")
	}
}

func TestNewClients_NilLogger(t *testing.T) {
	cfg := &config.Config{
		Polymarket: config.PolymarketConfig{
			GammaAPIURL: "https://gamma.example.com",
			DataAPIURL:  "https://data.example.com",
		},
	}

	clients := NewClients(nil, cfg)

	if clients.Polymarket == nil {
		t.Error("expected Polymarket client to be set")
	}
}
