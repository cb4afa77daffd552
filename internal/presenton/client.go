// Package presenton is a client for the Presenton presentation-
// generation service.
//
// Generation is a two-phase protocol: a generate call submits the
// content brief and returns a presentation id, then an export call
// renders the deck and reports where the file landed, either as a path
// internal to the Presenton deployment or as a remote URL. The client
// fetches the bytes from whichever location is reported, preferring the
// internal path.
package presenton

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// slidesPerDeck is the slide count requested per generation.
	slidesPerDeck = 8

	// internalPathPrefix marks export paths served from the Presenton
	// deployment's own volume rather than a public URL.
	internalPathPrefix = "/app_data/"
)

var (
	// ErrMissingPresentationID indicates the generate response carried no id.
	ErrMissingPresentationID = errors.New("presenton: generate response missing presentation_id")

	// ErrNoExportLocation indicates the export response carried neither a
	// path nor a file URL.
	ErrNoExportLocation = errors.New("presenton: export response missing path and file_url")
)

// Client calls the Presenton API.
type Client struct {
	endpoint   string // generate endpoint; the export endpoint is derived from it
	apiKey     string
	baseURL    string // serves files exported to internal paths
	language   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Presenton client. endpoint is the generate URL, baseURL
// the deployment base that serves internally exported files.
func New(endpoint, apiKey, baseURL, language string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("presenton: endpoint is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("presenton: API key is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("presenton: base URL is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("presenton: logger is required")
	}

	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Generate renders a presentation from a content brief and returns the
// pptx bytes.
func (c *Client) Generate(ctx context.Context, content, templateType string) ([]byte, error) {
	presentationID, err := c.generate(ctx, content, templateType)
	if err != nil {
		return nil, err
	}

	path, fileURL, err := c.export(ctx, presentationID)
	if err != nil {
		return nil, err
	}

	return c.fetch(ctx, path, fileURL)
}

// generate submits the content brief and returns the presentation id.
func (c *Client) generate(ctx context.Context, content, templateType string) (string, error) {
	payload := map[string]any{
		"content":   content,
		"n_slides":  slidesPerDeck,
		"language":  c.language,
		"template":  templateType,
		"export_as": nil,
	}

	var resp struct {
		PresentationID string `json:"presentation_id"`
	}
	if err := c.postJSON(ctx, c.endpoint, payload, &resp); err != nil {
		return "", fmt.Errorf("generate call: %w", err)
	}
	if resp.PresentationID == "" {
		return "", ErrMissingPresentationID
	}

	c.logger.Info("presentation generated",
		"presentation_id", resp.PresentationID, "template", templateType)
	return resp.PresentationID, nil
}

// export renders the generated presentation to a file and returns its
// location.
func (c *Client) export(ctx context.Context, presentationID string) (path, fileURL string, err error) {
	exportEndpoint := strings.Replace(c.endpoint, "/generate", "/export", 1)
	payload := map[string]any{
		"id":        presentationID,
		"export_as": nil,
	}

	var resp struct {
		Path    string `json:"path"`
		FileURL string `json:"file_url"`
		Error   string `json:"error"`
	}
	if err := c.postJSON(ctx, exportEndpoint, payload, &resp); err != nil {
		return "", "", fmt.Errorf("export call: %w", err)
	}
	if resp.Path == "" && resp.FileURL == "" {
		if resp.Error != "" {
			return "", "", fmt.Errorf("%w: %s", ErrNoExportLocation, resp.Error)
		}
		return "", "", ErrNoExportLocation
	}
	return resp.Path, resp.FileURL, nil
}

// fetch downloads the exported file, preferring the deployment-internal
// path over a remote URL when both are reported.
func (c *Client) fetch(ctx context.Context, path, fileURL string) ([]byte, error) {
	var url string
	switch {
	case strings.HasPrefix(path, internalPathPrefix):
		url = c.baseURL + path
	case fileURL != "":
		url = fileURL
	default:
		return nil, fmt.Errorf("presenton: cannot fetch exported file from path %q", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching exported file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("presenton: file fetch failed (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading exported file: %w", err)
	}

	c.logger.Info("presentation file downloaded", "bytes", len(data), "url", url)
	return data, nil
}

// postJSON performs an authenticated JSON POST against the Presenton API.
func (c *Client) postJSON(ctx context.Context, url string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("presenton API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
