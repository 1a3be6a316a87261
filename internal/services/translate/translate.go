// Package translate calls a lightweight web translation endpoint one line
// at a time, with a bounded concurrent fan-out over whole subtitle files.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"subburn/internal/config"
	"subburn/internal/services"
)

// Client issues per-line translation requests.
type Client struct {
	endpoint    string
	timeout     time.Duration
	concurrency int
	httpClient  *http.Client
}

// NewClient builds a translation client from configuration.
func NewClient(cfg config.Translate) *Client {
	return &Client{
		endpoint:    cfg.Endpoint,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		concurrency: cfg.Concurrency,
		httpClient:  &http.Client{},
	}
}

// WithHTTPClient substitutes the HTTP client (for testing).
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

// TranslateLine translates a single line of text into the target language.
// The source language is auto-detected by the endpoint.
func (c *Client) TranslateLine(ctx context.Context, text, targetLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "request", "endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrTransient, "translate", "request",
			fmt.Sprintf("endpoint returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "response", "read body", err)
	}

	translated, err := parseResponse(body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "response", "unexpected payload shape", err)
	}
	return translated, nil
}

// TranslateLines translates every line concurrently, bounded by the
// configured concurrency. The result map is keyed by line index and only
// contains lines that translated successfully; callers keep the original
// text for the rest. Per-line failures never fail the batch.
func (c *Client) TranslateLines(ctx context.Context, lines []string, targetLang string, onError func(index int, err error)) map[int]string {
	results := make([]string, len(lines))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)
	for i, line := range lines {
		group.Go(func() error {
			translated, err := c.TranslateLine(groupCtx, line, targetLang)
			if err != nil {
				if onError != nil {
					onError(i, err)
				}
				return nil
			}
			results[i] = translated
			return nil
		})
	}
	_ = group.Wait()

	translations := make(map[int]string, len(lines))
	for i, text := range results {
		if strings.TrimSpace(text) != "" {
			translations[i] = text
		}
	}
	return translations
}

// parseResponse extracts the translated text from the endpoint's nested
// array payload: the first element is a list of chunks whose first field is
// the translated fragment.
func parseResponse(body []byte) (string, error) {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty payload")
	}
	chunks, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("first element is not a chunk list")
	}

	var sb strings.Builder
	for _, raw := range chunks {
		chunk, ok := raw.([]any)
		if !ok || len(chunk) == 0 {
			continue
		}
		if fragment, ok := chunk[0].(string); ok {
			sb.WriteString(fragment)
		}
	}
	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", fmt.Errorf("no translated fragments in payload")
	}
	return result, nil
}
