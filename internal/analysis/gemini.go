package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultTimeout       = 60 * time.Second
)

// GeminiClient calls the generateContent endpoint. It performs exactly one
// HTTP request per Generate; pacing and resubmission belong to the caller.
type GeminiClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Generate sends prompt and returns the concatenated text of the first
// candidate. The response is requested as JSON.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrInvalidCredential)
	}

	body, err := json.Marshal(geminiRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("analysis: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateContentURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("analysis: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", classifyStatus(resp.StatusCode, parseGeminiError(resp),
			parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}
	return decodeGeminiContent(resp.Body)
}

func (c *GeminiClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c *GeminiClient) model() string {
	if m := strings.TrimSpace(c.Model); m != "" {
		return m
	}
	return defaultGeminiModel
}

func (c *GeminiClient) generateContentURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = defaultGeminiBaseURL
	}
	if strings.HasSuffix(strings.ToLower(base), "/models") {
		return base + "/" + c.model() + ":generateContent"
	}
	return base + "/models/" + c.model() + ":generateContent"
}

func geminiRequest(prompt string) map[string]any {
	return map[string]any{
		"contents": []any{
			map[string]any{
				"role":  "user",
				"parts": []any{map[string]any{"text": prompt}},
			},
		},
		"generationConfig": map[string]any{
			"temperature":      0.2,
			"maxOutputTokens":  1024,
			"responseMimeType": "application/json",
		},
	}
}

func decodeGeminiContent(r io.Reader) (string, error) {
	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrEmptyResponse, err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}
	var b strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty text", ErrEmptyResponse)
	}
	return text, nil
}

func parseGeminiError(resp *http.Response) string {
	var eresp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&eresp); err == nil && strings.TrimSpace(eresp.Error.Message) != "" {
		return eresp.Error.Message
	}
	return resp.Status
}
