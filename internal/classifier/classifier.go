// Package classifier wraps the NVIDIA Florence-2 vision API. All
// response-shape handling (plain JSON vs. archive-wrapped payloads)
// lives here; callers only ever see a plain description string or a
// typed error.
package classifier

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Typed failure taxonomy for classification calls. Callers check with
// errors.Is.
var (
	ErrAuth             = errors.New("authentication failed")
	ErrPayloadTooLarge  = errors.New("image payload too large")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrServer           = errors.New("classification server error")
	ErrTimeout          = errors.New("classification request timed out")
	ErrConnection       = errors.New("failed to connect to classification API")
	ErrUnexpectedFormat = errors.New("unexpected response format")
)

// maxPayloadBytes is the hard upload limit checked before sending.
const maxPayloadBytes = 5 * 1024 * 1024

// Client calls the Florence-2 endpoint with a base64 data-URI payload.
type Client struct {
	apiURL string
	apiKey string
	task   string
	http   *http.Client
}

// New creates a classifier client. The task hint (for example
// "<DETAILED_CAPTION>") selects which description the model produces.
func New(apiURL, apiKey, task string, timeout time.Duration) *Client {
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		task:   task,
		http:   &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends an image and returns the model's scene description,
// with the task prefix stripped.
func (c *Client) Classify(ctx context.Context, image []byte, name string) (string, error) {
	if len(image) > maxPayloadBytes {
		return "", fmt.Errorf("%w: %dKB (max 5MB)", ErrPayloadTooLarge, len(image)/1024)
	}

	encoded := base64.StdEncoding.EncodeToString(image)
	content := fmt.Sprintf(`%s<img src="data:%s;base64,%s" />`, c.task, contentTypeFor(name), encoded)

	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{{Role: "user", Content: content}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrConnection, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp.StatusCode, payload)
	}

	classification, err := c.extractClassification(resp.Header.Get("Content-Type"), payload)
	if err != nil {
		return "", err
	}

	classification = strings.TrimSpace(strings.TrimPrefix(classification, c.task))
	return classification, nil
}

// statusError maps HTTP failure codes onto the typed taxonomy.
func (c *Client) statusError(status int, body []byte) error {
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuth, status, msg)
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: status %d", ErrPayloadTooLarge, status)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, status)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrServer, status, msg)
	}
}

// extractClassification handles both response shapes the API is known
// to return: a plain JSON chat completion, or a ZIP archive wrapping
// the same JSON in a *.response member.
func (c *Client) extractClassification(contentType string, payload []byte) (string, error) {
	contentType = strings.ToLower(contentType)

	if strings.Contains(contentType, "application/json") {
		return parseChatContent(payload)
	}

	if strings.Contains(contentType, "application/zip") || strings.Contains(contentType, "application/octet-stream") {
		return extractFromZip(payload)
	}

	return "", fmt.Errorf("%w: content type %q", ErrUnexpectedFormat, contentType)
}

func parseChatContent(payload []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrUnexpectedFormat)
	}
	return parsed.Choices[0].Message.Content, nil
}

func extractFromZip(payload []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("%w: not a valid archive: %v", ErrUnexpectedFormat, err)
	}

	for _, file := range reader.File {
		if !strings.HasSuffix(file.Name, ".response") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: opening %s: %v", ErrUnexpectedFormat, file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %v", ErrUnexpectedFormat, file.Name, err)
		}
		return parseChatContent(content)
	}

	return "", fmt.Errorf("%w: no .response file in archive", ErrUnexpectedFormat)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/jpeg"
	}
}

// ResultDocument is the JSON record saved per classified frame.
type ResultDocument struct {
	Timestamp      time.Time `json:"timestamp"`
	ImageFile      string    `json:"image_file"`
	Classification string    `json:"classification"`
}

// SaveResult writes a classification result document into outputDir,
// named after the frame. Returns the written path.
func SaveResult(imageName, classification, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	stem := strings.TrimSuffix(imageName, filepath.Ext(imageName))
	resultPath := filepath.Join(outputDir, stem+"_classification.json")

	doc := ResultDocument{
		Timestamp:      time.Now(),
		ImageFile:      imageName,
		Classification: classification,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(resultPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write result: %w", err)
	}
	return resultPath, nil
}
