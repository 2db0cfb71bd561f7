// File: notification/discord/client.go
package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"Tradecurve/perf"
	"Tradecurve/utilities"

	"github.com/spf13/viper"
)

// Client sends notifications to a Discord webhook.
type Client struct {
	webhookURL string
	HTTPClient *http.Client
	logger     *utilities.Logger
}

// DiscordMessage represents the structure for a Discord webhook message.
// See: https://discord.com/developers/docs/resources/webhook#execute-webhook
type DiscordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents an embed object in a Discord message.
type DiscordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"` // ISO8601 timestamp
	Color       int    `json:"color,omitempty"`     // Decimal color code
}

func NewClient(webhookURL string) *Client {
	logLevel := utilities.Info
	if viper.GetBool("debug") {
		logLevel = utilities.Debug
	}

	logger := utilities.NewLogger(logLevel)

	if webhookURL == "" {
		logger.LogWarn("Discord Client: Webhook URL is empty. Notifications will not be sent.")
	} else {
		logger.LogInfo("Discord Client initialized with webhook URL.")
	}

	return &Client{
		webhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SendMessage sends a simple text message to the configured Discord webhook.
func (c *Client) SendMessage(message string) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord SendMessage: Webhook URL is not set, skipping.")
		return nil
	}

	if strings.TrimSpace(message) == "" {
		c.logger.LogDebug("Discord SendMessage: Message is empty, skipping.")
		return nil
	}

	payload := DiscordMessage{
		Content: message,
	}
	return c.sendPayload(payload)
}

// SendEmbedMessage sends a message with one or more embeds.
func (c *Client) SendEmbedMessage(embeds ...DiscordEmbed) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord SendEmbedMessage: Webhook URL is not set, skipping.")
		return nil
	}
	if len(embeds) == 0 {
		c.logger.LogDebug("Discord SendEmbedMessage: No embeds provided, skipping.")
		return nil
	}
	payload := DiscordMessage{
		Embeds: embeds,
	}
	return c.sendPayload(payload)
}

// sendPayload is an internal helper to send the marshalled JSON payload.
func (c *Client) sendPayload(payload DiscordMessage) error {
	if c.webhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		c.logger.LogError("Discord sendPayload: Failed to marshal JSON: %v", err)
		return fmt.Errorf("failed to marshal discord message: %w", err)
	}

	c.logger.LogDebug("Discord sendPayload: Sending to webhook. Payload size: %d bytes", len(payloadBytes))

	req, err := http.NewRequest("POST", c.webhookURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		c.logger.LogError("Discord sendPayload: Failed to create HTTP request: %v", err)
		return fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TradecurveBot/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.LogError("Discord sendPayload: Failed to send HTTP request: %v", err)
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.LogDebug("Discord sendPayload: Message sent successfully (Status: %s)", resp.Status)
		return nil
	}

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		c.logger.LogError("Discord sendPayload: Received non-OK status: %s. Failed to read body: %v", resp.Status, readErr)
		return fmt.Errorf("discord API error: %s, failed to read response body", resp.Status)
	}
	c.logger.LogError("Discord sendPayload: Received non-OK status: %s. Body: %s", resp.Status, string(bodyBytes))
	return fmt.Errorf("discord API error: %s, response: %s", resp.Status, string(bodyBytes))
}

// NotifyDrawdownAlert sends a formatted notification when an entity's max
// drawdown crosses the configured threshold.
func (c *Client) NotifyDrawdownAlert(entityName, timeframe string, metrics perf.TradingMetrics) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord NotifyDrawdownAlert: Webhook URL is not set, skipping.")
		return nil
	}

	title := fmt.Sprintf("⚠️ Drawdown Alert: %s", entityName)
	color := 15158332 // Red

	description := fmt.Sprintf(
		"**Max Drawdown**: `%.2f%%`\n"+
			"**Total ROI**: `%.2f%%`\n"+
			"**Win Rate**: `%.2f%%`\n"+
			"**Total Trades**: `%d`\n"+
			"**Timeframe**: `%s`",
		metrics.MaxDrawdown,
		metrics.TotalROI,
		metrics.WinRate,
		metrics.TotalTrades,
		timeframe,
	)

	embed := DiscordEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	return c.SendEmbedMessage(embed)
}
