package discord

import (
	"fmt"
	"strings"
	"time"

	"polyedge/clients/notifier"
	"polyedge/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordClient sends alerts to Discord.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
	isProd    bool
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.BetaChannelID
	if cfg.IsProd {
		channelID = cfg.Discord.ProdChannelID
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	logger.Info("discord bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
		isProd:    cfg.IsProd,
	}
}

// Enabled reports whether the client holds a live session and can deliver.
func (dc *DiscordClient) Enabled() bool {
	return dc.session != nil && dc.channelID != ""
}

// SendMessage sends a plain text message.
func (dc *DiscordClient) SendMessage(message string) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping message")
		return
	}

	_, err := dc.session.ChannelMessageSend(dc.channelID, message)
	if err != nil {
		dc.logger.Error("failed to send discord message", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord message")
}

// SendCandidateAlert sends a rich embedded candidate alert.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendCandidateAlert(alert notifier.CandidateAlert) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping alert")
		return
	}

	embed := dc.buildCandidateEmbed(alert)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord candidate alert",
		zap.String("trader", alert.TraderName),
		zap.Float64("edgeScore", alert.EdgeScore),
	)
}

// SendSignalAlert sends a rich embedded consensus signal alert.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendSignalAlert(alert notifier.SignalAlert) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping alert")
		return
	}

	embed := dc.buildSignalEmbed(alert)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord signal alert",
		zap.String("market", alert.MarketTitle),
		zap.String("confidence", alert.Confidence),
	)
}

// SendWhaleAlert sends a rich embedded whale trade alert.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendWhaleAlert(alert notifier.WhaleAlert) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping alert")
		return
	}

	embed := dc.buildWhaleEmbed(alert)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord whale alert",
		zap.String("trader", alert.TraderName),
		zap.String("market", alert.MarketTitle),
	)
}

func (dc *DiscordClient) buildCandidateEmbed(alert notifier.CandidateAlert) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Trader",
			Value:  traderDisplay(alert.TraderName, alert.TraderAddress, alert.WalletURL),
			Inline: true,
		},
		{
			Name:   "Edge Score",
			Value:  fmt.Sprintf("%.1f", alert.EdgeScore),
			Inline: true,
		},
		{
			Name:   "Rank",
			Value:  fmt.Sprintf("#%d", alert.Rank),
			Inline: true,
		},
		{
			Name:   "PnL",
			Value:  fmt.Sprintf("$%.2f", alert.Pnl),
			Inline: true,
		},
		{
			Name:   "Volume",
			Value:  fmt.Sprintf("$%.2f", alert.Volume),
			Inline: true,
		},
		{
			Name:   "Win Rate (resolved)",
			Value:  winRateDisplay(alert.WinRate, alert.TotalTrades),
			Inline: true,
		},
		{
			Name:   "Profit Factor",
			Value:  fmt.Sprintf("%.2f", alert.ProfitFactor),
			Inline: true,
		},
		{
			Name:   "Efficiency",
			Value:  fmt.Sprintf("%.4f", alert.Efficiency),
			Inline: true,
		},
	}

	return &discordgo.MessageEmbed{
		Title:     "⭐ New Copy-Trade Candidate",
		URL:       alert.WalletURL,
		Color:     0xF1C40F, // Gold
		Fields:    fields,
		Footer:    embedFooter(alert.Timestamp),
		Timestamp: embedTimestamp(alert.Timestamp),
	}
}

func (dc *DiscordClient) buildSignalEmbed(alert notifier.SignalAlert) *discordgo.MessageEmbed {
	color := 0x2ECC71 // Green for LONG
	sideEmoji := "🟢"
	if strings.ToUpper(alert.Side) == "SHORT" {
		color = 0xE74C3C // Red for SHORT
		sideEmoji = "🔴"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Side",
			Value:  fmt.Sprintf("%s %s", sideEmoji, alert.Side),
			Inline: true,
		},
		{
			Name:   "Confidence",
			Value:  alert.Confidence,
			Inline: true,
		},
		{
			Name:   "Traders",
			Value:  fmt.Sprintf("%d", alert.TraderCount),
			Inline: true,
		},
		{
			Name:   "Total Size",
			Value:  fmt.Sprintf("$%.2f", alert.TotalSize),
			Inline: true,
		},
		{
			Name:   "Avg Price",
			Value:  fmt.Sprintf("$%.3f", alert.AvgPrice),
			Inline: true,
		},
	}

	if len(alert.Traders) > 0 {
		shorts := make([]string, 0, len(alert.Traders))
		for _, addr := range alert.Traders {
			shorts = append(shorts, shortAddress(addr))
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Wallets",
			Value:  strings.Join(shorts, ", "),
			Inline: false,
		})
	}

	description := fmt.Sprintf("**%s**\nOutcome: %s", alert.MarketTitle, alert.Outcome)

	return &discordgo.MessageEmbed{
		Title:       signalEmbedTitle(alert.Confidence),
		URL:         alert.MarketURL,
		Description: description,
		Color:       color,
		Fields:      fields,
		Footer:      embedFooter(alert.Timestamp),
		Timestamp:   embedTimestamp(alert.Timestamp),
	}
}

func (dc *DiscordClient) buildWhaleEmbed(alert notifier.WhaleAlert) *discordgo.MessageEmbed {
	color := 0x2ECC71 // Green for BUY
	sideEmoji := "🟢"
	if strings.ToUpper(alert.Side) == "SELL" {
		color = 0xE74C3C // Red for SELL
		sideEmoji = "🔴"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Trader",
			Value:  traderDisplay(alert.TraderName, alert.TraderAddress, alert.WalletURL),
			Inline: true,
		},
		{
			Name:   "Side",
			Value:  fmt.Sprintf("%s %s", sideEmoji, alert.Side),
			Inline: true,
		},
		{
			Name:   "Trade",
			Value:  fmt.Sprintf("%.2f shares @ $%.3f", alert.Shares, alert.Price),
			Inline: true,
		},
		{
			Name:   "Notional",
			Value:  fmt.Sprintf("$%.2f", alert.Notional),
			Inline: true,
		},
	}

	if alert.EdgeScore > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Edge Score",
			Value:  fmt.Sprintf("%.1f", alert.EdgeScore),
			Inline: true,
		})
	}

	description := fmt.Sprintf("**%s**\nOutcome: %s", alert.MarketTitle, alert.Outcome)

	return &discordgo.MessageEmbed{
		Title:       "🐋 Whale Trade",
		URL:         alert.MarketURL,
		Description: description,
		Color:       color,
		Fields:      fields,
		Footer:      embedFooter(alert.Timestamp),
		Timestamp:   embedTimestamp(alert.Timestamp),
	}
}

func signalEmbedTitle(confidence string) string {
	switch strings.ToUpper(confidence) {
	case "HIGH":
		return "🔥 High Confidence Signal"
	case "MEDIUM":
		return "📊 Medium Confidence Signal"
	case "LOW":
		return "👀 Low Confidence Signal"
	}
	return "📡 Trade Signal"
}

func traderDisplay(name, address, walletURL string) string {
	display := name
	if address != "" {
		shortAddr := shortAddress(address)
		if display == "" {
			display = shortAddr
		} else if display != shortAddr {
			display = fmt.Sprintf("%s (%s)", name, shortAddr)
		}
	}
	if walletURL != "" {
		return fmt.Sprintf("[%s](%s)", display, walletURL)
	}
	return display
}

func winRateDisplay(winRate float64, totalTrades int) string {
	if totalTrades == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%% (%d trades)", winRate*100, totalTrades)
}

func embedFooter(ts time.Time) *discordgo.MessageEmbedFooter {
	pst, _ := time.LoadLocation("America/Los_Angeles")
	if ts.IsZero() {
		ts = time.Now()
	}
	return &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("polyedge * %s", ts.In(pst).Format("1/2/2006, 3:04:05PM (MST)")),
	}
}

func embedTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.Format(time.RFC3339)
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
