package app

import (
	"encoding/json"
	"testing"
	"time"

	clts "polyedge/clients"
	"polyedge/clients/discord"
	"polyedge/clients/telegram"
	"polyedge/clients/webhook"
	"polyedge/config"

	"go.uber.org/zap"
)

func testRunner(t *testing.T, sink *mockAlertSink) *Runner {
	t.Helper()

	cfg := config.Defaults()
	r := NewRunner(&clts.Clients{Logger: zap.NewNop(), Notifier: sink}, cfg)
	r.startTime = time.Now()
	r.scanner = NewTraderScanner(zap.NewNop(), newMockAPIClient(), cfg.Scanner)
	r.signalBook = NewSignalBook(zap.NewNop(), cfg.Signals.DedupWindow)
	r.signalMonitor = NewSignalMonitor(
		zap.NewNop(), newMockAPIClient(), r.scanner, sink, r.signalBook,
		SignalConfigFrom(cfg.Signals), cfg.Signals.PollInterval,
	)
	r.activityMonitor = NewActivityMonitor(zap.NewNop(), newMockAPIClient(), r.scanner, sink, cfg.Watcher)
	return r
}

// seedRanking restores a ranked candidate into the scanner's snapshot.
func seedRanking(scanner *TraderScanner, wallet, name string, edgeScore float64) {
	ts := TraderScore{
		Wallet:    wallet,
		Name:      name,
		Edge:      EdgeScore{Score: edgeScore},
		Rank:      1,
		FetchedAt: time.Now(),
	}
	scanner.ImportCache(&ScoreSnapshot{
		Version:   1,
		Timestamp: time.Now(),
		Scores:    map[string]TraderScore{wallet: ts},
		Ranked:    []TraderScore{ts},
	})
}

func TestRunner_BuildCandidateAlert(t *testing.T) {
	r := testRunner(t, &mockAlertSink{})

	score := TraderScore{
		Wallet: "0xabc",
		Name:   "Alice",
		Pnl:    50000,
		Volume: 200000,
		Rank:   3,
		Edge: EdgeScore{
			Score:      82.5,
			Efficiency: 0.25,
			Metrics: PositionMetrics{
				WinRate:      0.7,
				ProfitFactor: 2.4,
				TotalTrades:  40,
			},
		},
	}

	alert := r.buildCandidateAlert(score)
	if alert.TraderName != "Alice" {
		t.Errorf("unexpected trader name: %s", alert.TraderName)
	}
	if alert.WalletURL != "https://polymarket.com/profile/0xabc" {
		t.Errorf("unexpected wallet URL: %s", alert.WalletURL)
	}
	if alert.EdgeScore != 82.5 {
		t.Errorf("unexpected edge score: %f", alert.EdgeScore)
	}
	if alert.WinRate != 0.7 || alert.ProfitFactor != 2.4 || alert.TotalTrades != 40 {
		t.Errorf("unexpected metrics: %+v", alert)
	}
	if alert.Rank != 3 {
		t.Errorf("unexpected rank: %d", alert.Rank)
	}
}

func TestRunner_BuildCandidateAlert_NoName(t *testing.T) {
	r := testRunner(t, &mockAlertSink{})

	alert := r.buildCandidateAlert(TraderScore{Wallet: "0x1234567890abcdef1234"})
	if alert.TraderName != shortID("0x1234567890abcdef1234") {
		t.Errorf("expected short address fallback, got %s", alert.TraderName)
	}
}

func TestRunner_HandleStreamMessage_FollowedWalletAlerts(t *testing.T) {
	sink := &mockAlertSink{}
	r := testRunner(t, sink)
	seedRanking(r.scanner, "0xwhale", "Whale", 90)

	raw, _ := json.Marshal(map[string]string{
		"event_type":    "trade",
		"asset_id":      "123456",
		"price":         "0.55",
		"size":          "40000",
		"side":          "BUY",
		"maker_address": "0xWHALE",
	})

	r.handleStreamMessage(raw)

	if sink.whaleCount() != 1 {
		t.Fatalf("expected 1 whale alert, got %d", sink.whaleCount())
	}
	alert := sink.whales[0]
	if alert.TraderName != "Whale" {
		t.Errorf("unexpected trader name: %s", alert.TraderName)
	}
	if alert.Notional != 0.55*40000 {
		t.Errorf("unexpected notional: %f", alert.Notional)
	}
	if alert.EdgeScore != 90 {
		t.Errorf("unexpected edge score: %f", alert.EdgeScore)
	}
}

func TestRunner_HandleStreamMessage_BelowThresholdSkipped(t *testing.T) {
	sink := &mockAlertSink{}
	r := testRunner(t, sink)
	seedRanking(r.scanner, "0xwhale", "Whale", 90)

	raw, _ := json.Marshal(map[string]string{
		"event_type":    "trade",
		"price":         "0.55",
		"size":          "10", // far below min trade size
		"side":          "BUY",
		"maker_address": "0xwhale",
	})

	r.handleStreamMessage(raw)

	if sink.whaleCount() != 0 {
		t.Errorf("expected no alert for small trade, got %d", sink.whaleCount())
	}
}

func TestRunner_HandleStreamMessage_UnknownWalletIgnored(t *testing.T) {
	sink := &mockAlertSink{}
	r := testRunner(t, sink)
	seedRanking(r.scanner, "0xwhale", "Whale", 90)

	raw, _ := json.Marshal(map[string]string{
		"event_type":    "trade",
		"price":         "0.55",
		"size":          "40000",
		"side":          "BUY",
		"maker_address": "0xsomeoneelse",
	})

	r.handleStreamMessage(raw)

	if sink.whaleCount() != 0 {
		t.Errorf("expected no alert for unfollowed wallet, got %d", sink.whaleCount())
	}
}

func TestRunner_HandleStreamMessage_NonTradeIgnored(t *testing.T) {
	sink := &mockAlertSink{}
	r := testRunner(t, sink)
	seedRanking(r.scanner, "0xwhale", "Whale", 90)

	raw, _ := json.Marshal(map[string]string{
		"event_type":    "book",
		"maker_address": "0xwhale",
	})

	r.handleStreamMessage(raw)

	if sink.whaleCount() != 0 {
		t.Errorf("expected no alert for non-trade event, got %d", sink.whaleCount())
	}
}

func TestRunner_GetStats(t *testing.T) {
	r := testRunner(t, &mockAlertSink{})
	seedRanking(r.scanner, "0xwhale", "Whale", 90)
	r.markScan(2)

	stats := r.GetStats()

	if stats.Build.GoVersion == "" {
		t.Error("expected go version in build info")
	}
	if stats.Scanner.RankedCandidates != 1 {
		t.Errorf("unexpected ranked count: %d", stats.Scanner.RankedCandidates)
	}
	if stats.Scanner.CandidateAlerts != 2 {
		t.Errorf("unexpected candidate alert count: %d", stats.Scanner.CandidateAlerts)
	}
	if stats.Scanner.LastScanAt == "" {
		t.Error("expected last scan time to be set")
	}
	if stats.WebSocket.Enabled {
		t.Error("expected websocket disabled without stream client")
	}
	if stats.Runtime.Goroutines <= 0 {
		t.Error("expected goroutine count")
	}
}

func TestRunner_GetStats_UnconfiguredNotifiersReportDisabled(t *testing.T) {
	r := testRunner(t, &mockAlertSink{})

	// Clients built from an empty config are inert shells and must not be
	// reported as enabled channels.
	empty := &config.Config{}
	r.clients.Discord = discord.NewDiscordClient(zap.NewNop(), empty)
	r.clients.Telegram = telegram.NewTelegramClient(zap.NewNop(), empty)
	r.clients.Webhook = webhook.NewWebhookClient(zap.NewNop(), empty)

	stats := r.GetStats()

	if stats.Notifications.DiscordEnabled {
		t.Error("expected discord to report disabled without a token")
	}
	if stats.Notifications.TelegramEnabled {
		t.Error("expected telegram to report disabled without a token")
	}
	if stats.Notifications.WebhookEnabled {
		t.Error("expected webhook to report disabled without a URL")
	}

	r.clients.Webhook = webhook.NewWebhookClient(zap.NewNop(), &config.Config{
		Webhook: config.WebhookConfig{URL: "http://example.com/hook"},
	})
	if !r.GetStats().Notifications.WebhookEnabled {
		t.Error("expected webhook to report enabled with a URL")
	}
}
