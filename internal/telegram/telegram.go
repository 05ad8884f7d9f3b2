// Package telegram delivers threat alerts through the Telegram bot
// API. Dispatch never returns an error: a failed delivery is reported
// as false and the frame's analysis result stands on its own.
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/seclens/framegate/internal"
)

// Client sends messages and photos to a single Telegram chat.
type Client struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
	logger  *internal.Logger
}

// New creates a Telegram client for the given bot token and chat.
func New(token, chatID string, timeout time.Duration, logger *internal.Logger) *Client {
	return &Client{
		token:   token,
		chatID:  chatID,
		apiBase: "https://api.telegram.org",
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
}

// Dispatch sends a threat alert, attaching the frame image when
// available. It tries photo-with-caption first and falls back to a
// text-only message if the photo upload fails.
func (c *Client) Dispatch(analysis *internal.ThreatAnalysis, image []byte) bool {
	message := formatAlertMessage(analysis)

	if len(image) > 0 {
		if c.sendPhoto(image, analysis.ImageFile, message) {
			return true
		}
		c.logger.Warn("Photo alert failed, falling back to text")
	}
	return c.sendMessage(message)
}

// TestConnection verifies the bot token against the getMe endpoint.
func (c *Client) TestConnection() error {
	resp, err := c.client.Get(c.methodURL("getMe"))
	if err != nil {
		return fmt.Errorf("telegram connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram getMe failed: %s", string(body))
	}
	return nil
}

func (c *Client) sendMessage(text string) bool {
	payload := map[string]interface{}{
		"chat_id": c.chatID,
		"text":    text,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("Failed to marshal alert payload: %v", err)
		return false
	}

	resp, err := c.client.Post(c.methodURL("sendMessage"), "application/json", bytes.NewReader(data))
	if err != nil {
		c.logger.Error("Failed to send alert: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Telegram API error: %s", string(body))
		return false
	}
	return true
}

func (c *Client) sendPhoto(image []byte, filename, caption string) bool {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	if err := w.WriteField("chat_id", c.chatID); err != nil {
		c.logger.Error("Failed to write chat_id: %v", err)
		return false
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			c.logger.Error("Failed to write caption: %v", err)
			return false
		}
	}

	if filename == "" {
		filename = "frame.jpg"
	}
	fw, err := w.CreateFormFile("photo", filename)
	if err != nil {
		c.logger.Error("Failed to create form file: %v", err)
		return false
	}
	if _, err := fw.Write(image); err != nil {
		c.logger.Error("Failed to write photo bytes: %v", err)
		return false
	}
	w.Close()

	req, err := http.NewRequest(http.MethodPost, c.methodURL("sendPhoto"), &b)
	if err != nil {
		c.logger.Error("Failed to create request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Failed to send photo: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Telegram API error: %s", string(body))
		return false
	}
	return true
}

var levelEmoji = map[internal.ThreatLevel]string{
	internal.LevelCritical: "🚨",
	internal.LevelHigh:     "⚠️",
	internal.LevelMedium:   "⚡",
	internal.LevelLow:      "🔔",
	internal.LevelNone:     "✅",
}

// formatAlertMessage builds the alert body: priority header, time,
// detected situation, up to five indicator keywords, and an attention
// footer for HIGH and CRITICAL.
func formatAlertMessage(analysis *internal.ThreatAnalysis) string {
	emoji, ok := levelEmoji[analysis.Level]
	if !ok {
		emoji = "📢"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s SAFETY ALERT - %s PRIORITY %s\n\n", emoji, analysis.Level, emoji)
	fmt.Fprintf(&sb, "⏰ Time: %s\n\n", analysis.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "🔍 DETECTED SITUATION:\n%s\n\n", analysis.Classification)

	if len(analysis.Reasons) > 0 {
		sb.WriteString("⚠️ THREAT INDICATORS:\n")
		for i, reason := range analysis.Reasons {
			if i >= 5 {
				break
			}
			// Keep just the matched keyword, not the category label.
			if idx := strings.LastIndex(reason, ":"); idx >= 0 {
				reason = strings.TrimSpace(reason[idx+1:])
			}
			fmt.Fprintf(&sb, "• %s\n", reason)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("📱 This is an automated safety monitoring alert.\n")

	if analysis.Level == internal.LevelHigh || analysis.Level == internal.LevelCritical {
		fmt.Fprintf(&sb, "%s IMMEDIATE ATTENTION REQUIRED %s", emoji, emoji)
	}

	return sb.String()
}
