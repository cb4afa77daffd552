// Package hwp is a client for the HWP document-conversion service.
//
// The service answers a generate call in one of two shapes: a JSON
// envelope naming a file id to fetch from its download endpoint, or the
// converted document itself as a raw binary body. The client detects
// the shape by attempting a JSON parse and falling back to raw bytes.
package hwp

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

// ErrMissingFileID indicates the service answered with a JSON envelope
// that carried no file id to fetch.
var ErrMissingFileID = errors.New("hwp: generate response missing file_id")

// Client calls the HWP conversion service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an HWP client for the given generate endpoint.
func New(endpoint string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("hwp: endpoint is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("hwp: logger is required")
	}

	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Generate converts text into an HWP document and returns its bytes.
// fileName is the full target filename including the extension.
func (c *Client) Generate(ctx context.Context, text, fileName, templateType string) ([]byte, error) {
	payload := map[string]string{
		"text":          text,
		"file_name":     fileName,
		"template_type": templateType,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hwp API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	// The service returns either a JSON envelope with a file id or the
	// document bytes directly; a failed parse means the latter.
	var envelope struct {
		FileID string `json:"file_id"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		c.logger.Debug("hwp service returned binary document directly", "bytes", len(respBody))
		return respBody, nil
	}
	if envelope.FileID == "" {
		return nil, ErrMissingFileID
	}

	return c.download(ctx, envelope.FileID)
}

// download fetches a converted document by the id named in a JSON
// envelope response.
func (c *Client) download(ctx context.Context, fileID string) ([]byte, error) {
	base := strings.TrimRight(strings.Replace(c.endpoint, "/generate", "", 1), "/")
	url := fmt.Sprintf("%s/download/%s", base, fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hwp download error (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	c.logger.Info("hwp document downloaded", "file_id", fileID, "bytes", len(data))
	return data, nil
}
