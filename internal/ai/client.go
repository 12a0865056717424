package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/lambethcyclists/mailroom/internal/apierr"
	"github.com/lambethcyclists/mailroom/internal/gmail"
	"github.com/lambethcyclists/mailroom/internal/logging"
)

const (
	baseURL    = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	maxTries   = 5
)

// Client calls the Anthropic Messages API for email analysis.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API URL (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates an Anthropic API client.
func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logging.WithService(slog.Default(), "ai"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

type block struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func textBlock(s string) block {
	return block{Type: "text", Text: s}
}

func imageBlock(mediaType string, data []byte) block {
	return block{Type: "image", Source: &imageSource{
		Type:      "base64",
		MediaType: mediaType,
		Data:      base64.StdEncoding.EncodeToString(data),
	}}
}

// complete sends one message exchange and returns the text of the
// first content block. Rate limits and server errors are retried.
func (c *Client) complete(ctx context.Context, maxTokens int, temperature float64, blocks []block) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("anthropic api key not set")
	}

	body, err := json.Marshal(request{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    []message{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	operation := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", apiVersion)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusOK {
			apiErr := apierr.New("anthropic", resp.StatusCode, truncate(string(data), 200))
			if apierr.IsTransient(apiErr) {
				return "", apiErr
			}
			return "", backoff.Permanent(apiErr)
		}

		var apiResp response
		if err := json.Unmarshal(data, &apiResp); err != nil {
			return "", backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		if len(apiResp.Content) == 0 {
			return "", backoff.Permanent(fmt.Errorf("empty response content"))
		}
		return apiResp.Content[0].Text, nil
	}

	text, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTries))
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	return text, nil
}

// AnalyzeImages runs vision analysis on image attachments. Each image
// is analyzed independently; a failure becomes a note in the combined
// output rather than failing the whole email.
func (c *Client) AnalyzeImages(ctx context.Context, images []gmail.Attachment) string {
	if len(images) == 0 {
		return ""
	}

	sections := make([]string, 0, len(images))
	for i, img := range images {
		analysis, err := c.complete(ctx, 1024, 0, []block{
			imageBlock(mediaType(img.MimeType), img.Data),
			textBlock(visionPrompt),
		})
		if err != nil {
			c.logger.Warn("image analysis failed",
				slog.String("filename", img.Filename),
				logging.Err(err))
			analysis = fmt.Sprintf("Error analyzing image: %v", err)
		}
		sections = append(sections, fmt.Sprintf("**Image %d: %s**\n\n%s", i+1, img.Filename, analysis))
	}
	return strings.Join(sections, "\n\n---\n\n")
}

// mediaType maps a MIME type to one the vision API accepts.
func mediaType(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/png":
		return "image/png"
	case "image/gif":
		return "image/gif"
	case "image/webp":
		return "image/webp"
	}
	return "image/jpeg"
}

// parseJSON extracts a JSON payload from a model response, stripping
// markdown code fences when present.
func parseJSON(text string, out any) error {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("parse model JSON: %w (raw: %s)", err, truncate(text, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
