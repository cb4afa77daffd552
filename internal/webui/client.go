// Package webui is a client for the Open-WebUI file-storage API.
//
// The client covers byte transfer only: authenticated upload of a
// document buffer and download of a previously uploaded file. Knowledge
// collection management lives in internal/knowledge and shares nothing
// with this package beyond the bearer-token convention.
package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// ErrMissingFileID indicates the upload response carried no file id.
// A successful HTTP status with a missing id is still an error: without
// the id the file cannot be attached to knowledge or downloaded later.
var ErrMissingFileID = errors.New("webui: upload response missing file id")

// Client performs uploads and downloads against the file-storage service.
// It is stateless between calls and safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a file-transfer client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("webui: base URL is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("webui: logger is required")
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Upload sends data as a multipart file named "{baseName}.{kind}" with a
// MIME type resolved from the kind table, and returns the resulting
// FileReference. An authorization token is forwarded opaquely when
// present; an empty token means an anonymous request.
//
// Non-success responses are returned as *Failure carrying the status
// code and raw body.
func (c *Client) Upload(ctx context.Context, token string, data []byte, baseName, kind string) (*FileReference, error) {
	filename := baseName + "." + kind

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType(kind))

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating multipart field: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	url := c.baseURL + "/api/v1/files/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	setAuth(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Failure{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return nil, fmt.Errorf("parsing upload response: %w", err)
	}
	if uploaded.ID == "" {
		return nil, ErrMissingFileID
	}

	c.logger.Info("file uploaded", "filename", filename, "file_id", uploaded.ID)

	return &FileReference{
		ID:           uploaded.ID,
		DownloadLink: fmt.Sprintf("[Download %s](/api/v1/files/%s/content)", filename, uploaded.ID),
	}, nil
}

// Download fetches the raw content of a previously uploaded file.
// Non-200 responses are returned as *Failure.
func (c *Client) Download(ctx context.Context, token, fileID string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1/files/%s/content", c.baseURL, fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	setAuth(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Failure{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download response: %w", err)
	}

	return data, nil
}

// setAuth forwards the caller's authorization header value unchanged.
// The caller's credential is opaque to this client; absence is tolerated
// and the request proceeds anonymously.
func setAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", token)
	}
}
