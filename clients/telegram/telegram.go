package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"polyedge/clients/notifier"
	"polyedge/config"

	"go.uber.org/zap"
)

const telegramAPIURL = "https://api.telegram.org/bot%s/%s"

// TelegramClient sends alerts to Telegram.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger   *zap.Logger
	botToken string
	chatID   string
	isProd   bool
	client   *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatID := cfg.Telegram.BetaChatID
	if cfg.IsProd {
		chatID = cfg.Telegram.ProdChatID
	}

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Warn("TELEGRAM_BOT_KEY not set, Telegram alerts disabled")
		return &TelegramClient{
			logger: logger,
			chatID: chatID,
			isProd: cfg.IsProd,
		}
	}

	logger.Info("telegram bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("chatID", chatID),
	)

	return &TelegramClient{
		logger:   logger,
		botToken: token,
		chatID:   chatID,
		isProd:   cfg.IsProd,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether the client has a bot token and chat to deliver to.
func (tc *TelegramClient) Enabled() bool {
	return tc.botToken != "" && tc.chatID != ""
}

// SendCandidateAlert sends a new copy-trade candidate notification.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendCandidateAlert(alert notifier.CandidateAlert) {
	if tc.botToken == "" || tc.chatID == "" {
		tc.logger.Warn("telegram not configured, skipping alert")
		return
	}

	message := tc.buildCandidateMessage(alert)

	if err := tc.sendMessage(message); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram candidate alert",
		zap.String("trader", alert.TraderName),
		zap.Float64("edgeScore", alert.EdgeScore),
	)
}

// SendSignalAlert sends a consensus signal notification.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendSignalAlert(alert notifier.SignalAlert) {
	if tc.botToken == "" || tc.chatID == "" {
		tc.logger.Warn("telegram not configured, skipping alert")
		return
	}

	message := tc.buildSignalMessage(alert)

	if err := tc.sendMessage(message); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram signal alert",
		zap.String("market", alert.MarketTitle),
		zap.String("confidence", alert.Confidence),
	)
}

// SendWhaleAlert sends a large-trade notification.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendWhaleAlert(alert notifier.WhaleAlert) {
	if tc.botToken == "" || tc.chatID == "" {
		tc.logger.Warn("telegram not configured, skipping alert")
		return
	}

	message := tc.buildWhaleMessage(alert)

	if err := tc.sendMessage(message); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram whale alert",
		zap.String("trader", alert.TraderName),
		zap.String("market", alert.MarketTitle),
	)
}

func (tc *TelegramClient) buildCandidateMessage(alert notifier.CandidateAlert) string {
	var sb strings.Builder

	sb.WriteString("*⭐ New Copy-Trade Candidate*\n\n")

	sb.WriteString(fmt.Sprintf("*Trader:* %s\n", tc.traderLine(alert.TraderName, alert.TraderAddress, alert.WalletURL)))
	if alert.Rank > 0 {
		sb.WriteString(fmt.Sprintf("*Rank:* #%d\n", alert.Rank))
	}
	sb.WriteString(fmt.Sprintf("*Edge Score:* %.1f\n\n", alert.EdgeScore))

	sb.WriteString(fmt.Sprintf("*PnL:* $%.2f\n", alert.Pnl))
	sb.WriteString(fmt.Sprintf("*Volume:* $%.2f\n", alert.Volume))
	sb.WriteString(fmt.Sprintf("*Efficiency:* %.4f\n", alert.Efficiency))
	sb.WriteString(fmt.Sprintf("*Win Rate:* %.1f%% over %d trades\n", alert.WinRate*100, alert.TotalTrades))
	sb.WriteString(fmt.Sprintf("*Profit Factor:* %.2f\n", alert.ProfitFactor))

	if !alert.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("\n_%s_", alert.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")))
	}

	return sb.String()
}

func (tc *TelegramClient) buildSignalMessage(alert notifier.SignalAlert) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*%s*\n\n", escapeMarkdown(signalTitle(alert.Confidence))))

	if alert.MarketURL != "" {
		sb.WriteString(fmt.Sprintf("*Market:* [%s](%s)\n", escapeMarkdown(alert.MarketTitle), alert.MarketURL))
	} else {
		sb.WriteString(fmt.Sprintf("*Market:* %s\n", escapeMarkdown(alert.MarketTitle)))
	}
	sb.WriteString(fmt.Sprintf("*Outcome:* %s\n\n", escapeMarkdown(alert.Outcome)))

	sideEmoji := "🟢"
	if strings.ToUpper(alert.Side) == "SHORT" {
		sideEmoji = "🔴"
	}
	sb.WriteString(fmt.Sprintf("*Side:* %s %s\n", sideEmoji, alert.Side))
	sb.WriteString(fmt.Sprintf("*Total Size:* $%.2f\n", alert.TotalSize))
	sb.WriteString(fmt.Sprintf("*Avg Price:* $%.3f\n", alert.AvgPrice))
	sb.WriteString(fmt.Sprintf("*Traders:* %d\n", alert.TraderCount))

	if len(alert.Traders) > 0 {
		shorts := make([]string, 0, len(alert.Traders))
		for _, addr := range alert.Traders {
			shorts = append(shorts, shortAddress(addr))
		}
		sb.WriteString(fmt.Sprintf("_%s_\n", escapeMarkdown(strings.Join(shorts, ", "))))
	}

	if !alert.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("\n_%s_", alert.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")))
	}

	return sb.String()
}

func (tc *TelegramClient) buildWhaleMessage(alert notifier.WhaleAlert) string {
	var sb strings.Builder

	sb.WriteString("*🐋 Whale Trade*\n\n")

	if alert.MarketURL != "" {
		sb.WriteString(fmt.Sprintf("*Market:* [%s](%s)\n", escapeMarkdown(alert.MarketTitle), alert.MarketURL))
	} else {
		sb.WriteString(fmt.Sprintf("*Market:* %s\n", escapeMarkdown(alert.MarketTitle)))
	}
	sb.WriteString(fmt.Sprintf("*Outcome:* %s\n\n", escapeMarkdown(alert.Outcome)))

	sb.WriteString(fmt.Sprintf("*Trader:* %s\n", tc.traderLine(alert.TraderName, alert.TraderAddress, alert.WalletURL)))
	if alert.EdgeScore > 0 {
		sb.WriteString(fmt.Sprintf("*Edge Score:* %.1f\n", alert.EdgeScore))
	}

	sideEmoji := "🟢"
	if strings.ToUpper(alert.Side) == "SELL" {
		sideEmoji = "🔴"
	}
	sb.WriteString(fmt.Sprintf("*Side:* %s %s\n", sideEmoji, alert.Side))
	sb.WriteString(fmt.Sprintf("*Trade:* %.2f shares @ $%.3f\n", alert.Shares, alert.Price))
	sb.WriteString(fmt.Sprintf("*Notional:* $%.2f\n", alert.Notional))

	if !alert.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("\n_%s_", alert.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")))
	}

	return sb.String()
}

func (tc *TelegramClient) traderLine(name, address, walletURL string) string {
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
		return fmt.Sprintf("[%s](%s)", escapeMarkdown(display), walletURL)
	}
	return escapeMarkdown(display)
}

func signalTitle(confidence string) string {
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

func (tc *TelegramClient) sendMessage(text string) error {
	url := fmt.Sprintf(telegramAPIURL, tc.botToken, "sendMessage")

	payload := map[string]interface{}{
		"chat_id":    tc.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
