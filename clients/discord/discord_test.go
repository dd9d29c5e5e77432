package discord

import (
	"strings"
	"testing"
	"time"

	"polyedge/clients/notifier"
	"polyedge/config"

	"go.uber.org/zap"
)

func TestNewDiscordClient_NoToken(t *testing.T) {
	cfg := &config.Config{
		IsProd: false,
		Discord: config.DiscordConfig{
			BotToken:      "",
			ProdChannelID: "prod-channel",
			BetaChannelID: "beta-channel",
		},
	}

	client := NewDiscordClient(zap.NewNop(), cfg)

	if client.session != nil {
		t.Error("expected nil session")
	}
	if client.channelID != "beta-channel" {
		t.Errorf("expected beta channel, got: %s", client.channelID)
	}
}

func TestDiscordClient_Enabled(t *testing.T) {
	noToken := NewDiscordClient(zap.NewNop(), &config.Config{
		Discord: config.DiscordConfig{BetaChannelID: "beta-channel"},
	})
	if noToken.Enabled() {
		t.Error("expected client without session to report disabled")
	}

	configured := NewDiscordClient(zap.NewNop(), &config.Config{
		Discord: config.DiscordConfig{BotToken: "test-token", BetaChannelID: "beta-channel"},
	})
	if !configured.Enabled() {
		t.Error("expected client with session and channel to report enabled")
	}
}

func TestNewDiscordClient_ProdChannel(t *testing.T) {
	cfg := &config.Config{
		IsProd: true,
		Discord: config.DiscordConfig{
			BotToken:      "",
			ProdChannelID: "prod-channel",
			BetaChannelID: "beta-channel",
		},
	}

	client := NewDiscordClient(nil, cfg)

	if client.channelID != "prod-channel" {
		t.Errorf("expected prod channel, got: %s", client.channelID)
	}
}

func TestSendAlerts_NoSession(t *testing.T) {
	client := &DiscordClient{
		logger: zap.NewNop(),
	}

	// Should not panic
	client.SendCandidateAlert(notifier.CandidateAlert{TraderName: "test"})
	client.SendSignalAlert(notifier.SignalAlert{MarketTitle: "test"})
	client.SendWhaleAlert(notifier.WhaleAlert{TraderName: "test"})
	client.SendMessage("test")
}

func TestBuildCandidateEmbed(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}

	alert := notifier.CandidateAlert{
		TraderName:    "TestTrader",
		TraderAddress: "0x1234567890abcdef1234567890abcdef12345678",
		WalletURL:     "https://polymarket.com/profile/0x123",
		EdgeScore:     61.7,
		WinRate:       0.5,
		ProfitFactor:  2.17,
		TotalTrades:   4,
		Pnl:           50000,
		Volume:        100000,
		Rank:          3,
		Timestamp:     time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}

	embed := client.buildCandidateEmbed(alert)

	if embed.Title != "⭐ New Copy-Trade Candidate" {
		t.Errorf("unexpected title: %s", embed.Title)
	}
	if embed.URL != alert.WalletURL {
		t.Error("expected wallet URL on embed")
	}

	found := false
	for _, f := range embed.Fields {
		if f.Name == "Edge Score" && f.Value == "61.7" {
			found = true
		}
	}
	if !found {
		t.Error("expected Edge Score field with value 61.7")
	}
}

func TestBuildSignalEmbed_Long(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}

	alert := notifier.SignalAlert{
		MarketTitle: "Test Market",
		MarketURL:   "https://polymarket.com/event/test",
		Outcome:     "Yes",
		Side:        "LONG",
		TotalSize:   60000,
		AvgPrice:    0.45,
		TraderCount: 3,
		Confidence:  "HIGH",
		Traders:     []string{"0x1234567890abcdef1234567890abcdef12345678"},
	}

	embed := client.buildSignalEmbed(alert)

	if embed.Color != 0x2ECC71 {
		t.Errorf("expected green color for LONG, got: %x", embed.Color)
	}
	if embed.Title != "🔥 High Confidence Signal" {
		t.Errorf("unexpected title: %s", embed.Title)
	}
	if !strings.Contains(embed.Description, "Test Market") {
		t.Error("expected market title in description")
	}

	foundWallets := false
	for _, f := range embed.Fields {
		if f.Name == "Wallets" {
			foundWallets = true
		}
	}
	if !foundWallets {
		t.Error("expected Wallets field")
	}
}

func TestBuildSignalEmbed_Short(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}

	alert := notifier.SignalAlert{
		MarketTitle: "Test Market",
		Side:        "SHORT",
		Confidence:  "MEDIUM",
	}

	embed := client.buildSignalEmbed(alert)

	if embed.Color != 0xE74C3C {
		t.Errorf("expected red color for SHORT, got: %x", embed.Color)
	}
	if embed.Title != "📊 Medium Confidence Signal" {
		t.Errorf("unexpected title: %s", embed.Title)
	}
}

func TestBuildWhaleEmbed(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}

	alert := notifier.WhaleAlert{
		TraderName:  "Whale",
		Side:        "SELL",
		Shares:      50000,
		Price:       0.45,
		Notional:    22500,
		MarketTitle: "Test Market",
		Outcome:     "No",
		EdgeScore:   72.3,
	}

	embed := client.buildWhaleEmbed(alert)

	if embed.Color != 0xE74C3C {
		t.Errorf("expected red color for SELL, got: %x", embed.Color)
	}
	if embed.Title != "🐋 Whale Trade" {
		t.Errorf("unexpected title: %s", embed.Title)
	}

	foundEdge := false
	for _, f := range embed.Fields {
		if f.Name == "Edge Score" && f.Value == "72.3" {
			foundEdge = true
		}
	}
	if !foundEdge {
		t.Error("expected Edge Score field")
	}
}

func TestBuildWhaleEmbed_NoEdgeScore(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}

	embed := client.buildWhaleEmbed(notifier.WhaleAlert{Side: "BUY"})

	for _, f := range embed.Fields {
		if f.Name == "Edge Score" {
			t.Error("should omit Edge Score field when zero")
		}
	}
}

func TestTraderDisplay(t *testing.T) {
	addr := "0x1234567890abcdef1234567890abcdef12345678"

	got := traderDisplay("Alice", addr, "https://example.com")
	if !strings.HasPrefix(got, "[Alice (0x1234") {
		t.Errorf("unexpected display: %s", got)
	}

	got = traderDisplay("", addr, "")
	if !strings.HasPrefix(got, "0x1234") {
		t.Errorf("expected short address fallback, got: %s", got)
	}
}

func TestWinRateDisplay(t *testing.T) {
	if got := winRateDisplay(0.5, 0); got != "N/A" {
		t.Errorf("expected N/A, got: %s", got)
	}
	if got := winRateDisplay(0.5, 4); got != "50.0% (4 trades)" {
		t.Errorf("unexpected display: %s", got)
	}
}

func TestClose_NoSession(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}

	if err := client.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
