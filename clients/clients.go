package clients

import (
	"polyedge/clients/discord"
	"polyedge/clients/notifier"
	"polyedge/clients/polymarketapi"
	"polyedge/clients/polymarketstream"
	"polyedge/clients/telegram"
	"polyedge/clients/webhook"
	"polyedge/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	Discord    *discord.DiscordClient
	Telegram   *telegram.TelegramClient
	Webhook    *webhook.WebhookClient
	Notifier   notifier.Notifier // Combined notifier for all channels
	Polymarket *polymarketapi.PolymarketApiClient
	Stream     *polymarketstream.StreamClient
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	discordClient := discord.NewDiscordClient(logger, cfg)
	telegramClient := telegram.NewTelegramClient(logger, cfg)
	webhookClient := webhook.NewWebhookClient(logger, cfg)

	// Create combined notifier for all channels
	multiNotifier := notifier.NewMultiNotifier(discordClient, telegramClient, webhookClient)

	c := &Clients{
		Logger:     logger,
		Discord:    discordClient,
		Telegram:   telegramClient,
		Webhook:    webhookClient,
		Notifier:   multiNotifier,
		Polymarket: polymarketapi.NewPolymarketApiClient(logger, cfg),
	}

	// Only create WebSocket client if configured to use it
	if cfg.Watcher.UseWebSocket {
		c.Stream = polymarketstream.NewStreamClient(logger)
	}

	return c
}
