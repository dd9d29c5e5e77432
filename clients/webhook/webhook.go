package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"polyedge/clients/notifier"
	"polyedge/config"

	"go.uber.org/zap"
)

// WebhookClient POSTs alerts as JSON to a configured endpoint.
// Implements notifier.Notifier interface.
type WebhookClient struct {
	logger *zap.Logger
	url    string
	client *http.Client
}

// payload is the wire envelope: a type tag plus the alert body.
type payload struct {
	Type   string      `json:"type"`
	Alert  interface{} `json:"alert"`
	SentAt time.Time   `json:"sentAt"`
}

func NewWebhookClient(logger *zap.Logger, cfg *config.Config) *WebhookClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	url := cfg.Webhook.URL
	if url == "" {
		logger.Warn("WEBHOOK_URL not set, webhook alerts disabled")
		return &WebhookClient{logger: logger}
	}

	logger.Info("webhook client initialized", zap.String("url", url))

	return &WebhookClient{
		logger: logger,
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured.
func (wc *WebhookClient) Enabled() bool {
	return wc.url != ""
}

// SendCandidateAlert posts a candidate alert to the webhook.
// Implements notifier.Notifier interface.
func (wc *WebhookClient) SendCandidateAlert(alert notifier.CandidateAlert) {
	wc.post("candidate", alert)
}

// SendSignalAlert posts a signal alert to the webhook.
// Implements notifier.Notifier interface.
func (wc *WebhookClient) SendSignalAlert(alert notifier.SignalAlert) {
	wc.post("signal", alert)
}

// SendWhaleAlert posts a whale alert to the webhook.
// Implements notifier.Notifier interface.
func (wc *WebhookClient) SendWhaleAlert(alert notifier.WhaleAlert) {
	wc.post("whale", alert)
}

func (wc *WebhookClient) post(alertType string, alert interface{}) {
	if wc.url == "" {
		wc.logger.Warn("webhook not configured, skipping alert")
		return
	}

	if err := wc.send(alertType, alert); err != nil {
		wc.logger.Error("failed to send webhook alert",
			zap.String("type", alertType),
			zap.Error(err),
		)
		return
	}

	wc.logger.Info("sent webhook alert", zap.String("type", alertType))
}

func (wc *WebhookClient) send(alertType string, alert interface{}) error {
	body, err := json.Marshal(payload{
		Type:   alertType,
		Alert:  alert,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := wc.client.Post(wc.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (wc *WebhookClient) Close() error {
	return nil
}
