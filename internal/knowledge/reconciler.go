// Package knowledge reconciles uploaded files into per-user knowledge
// collections on the Open-WebUI service.
//
// The backing store is a remote HTTP API with no transactional
// guarantees: "list", "create" and "attach" are three independent calls.
// The reconciler ensures a file lands in the correct per-user named
// collection, creating the collection lazily and tolerating partial
// failure. It never deletes collections and never deduplicates attach
// calls for the same file.
package knowledge

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
	// DefaultCollection is the collection files are indexed into unless a
	// caller names another one.
	DefaultCollection = "My Generated Files"

	// collectionDescription is set on collections this service creates.
	collectionDescription = "Collection of files generated by genfiles"
)

var (
	// ErrMissingKnowledgeID indicates a create call succeeded at the HTTP
	// level but the response carried no collection id. The collection may
	// or may not exist remotely; the file stays un-indexed either way.
	ErrMissingKnowledgeID = errors.New("knowledge: create response missing id")

	// ErrCollectionNotFound indicates no collection matched after a
	// create conflict was re-checked against a fresh list.
	ErrCollectionNotFound = errors.New("knowledge: collection not found after create conflict")
)

// collection is a knowledge collection as returned by the list endpoint.
// A collection is uniquely identified by the (Name, UserID) pair: two
// users may each own a collection with the same display name.
type collection struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

// collectionKey identifies a collection by owner and exact name.
type collectionKey struct {
	name   string
	userID string
}

// Reconciler implements the lookup/create/attach flow against the
// remote knowledge API. It holds no state between calls and shares only
// the bearer-token convention with the file-transfer client.
type Reconciler struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewReconciler creates a reconciler for the given service base URL.
func NewReconciler(baseURL string, timeout time.Duration, logger *slog.Logger) (*Reconciler, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("knowledge: base URL is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("knowledge: logger is required")
	}

	return &Reconciler{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// EnsureAttached makes fileID discoverable inside the collection named
// name owned by userID, creating the collection if it does not exist.
// A nil return means the file was attached; both the reuse branch and
// the create branch report the attach outcome.
//
// Matching is exact and case-sensitive on both name and owner, so a
// same-named collection owned by another user is never reused.
//
// The list, create and attach calls are not atomic. Two concurrent
// calls for the same (name, user) pair can both miss the list and race
// on create; when the service rejects the loser, the reconciler
// re-lists once and attaches to the winner's collection.
func (r *Reconciler) EnsureAttached(ctx context.Context, token, fileID, userID, name string) error {
	collections, err := r.list(ctx, token)
	if err != nil {
		// Guessing here could attach the file to the wrong user's
		// collection, so a failed list fails the whole operation.
		return fmt.Errorf("listing collections: %w", err)
	}

	byOwner := make(map[collectionKey]string, len(collections))
	for _, c := range collections {
		byOwner[collectionKey{name: c.Name, userID: c.UserID}] = c.ID
	}

	if id, ok := byOwner[collectionKey{name: name, userID: userID}]; ok {
		r.logger.Info("reusing existing knowledge collection",
			"collection", name, "user_id", userID, "knowledge_id", id)
		return r.attach(ctx, token, id, fileID)
	}

	id, err := r.create(ctx, token, name)
	if err != nil {
		if errors.Is(err, ErrMissingKnowledgeID) {
			return err
		}
		// The create may have lost a race with a concurrent call that
		// made the same (name, user) collection. Re-list once and attach
		// to the now-existing collection before giving up.
		r.logger.Warn("create failed, re-checking for concurrent creation",
			"collection", name, "user_id", userID, "error", err)
		return r.attachAfterConflict(ctx, token, fileID, userID, name, err)
	}

	r.logger.Info("knowledge collection created",
		"collection", name, "user_id", userID, "knowledge_id", id)
	return r.attach(ctx, token, id, fileID)
}

// attachAfterConflict handles a lost list/create race: if a fresh list
// now shows the (name, user) collection, attach to it; otherwise report
// the original create error.
func (r *Reconciler) attachAfterConflict(ctx context.Context, token, fileID, userID, name string, createErr error) error {
	collections, err := r.list(ctx, token)
	if err != nil {
		return fmt.Errorf("creating collection: %w", createErr)
	}

	for _, c := range collections {
		if c.Name == name && c.UserID == userID {
			r.logger.Info("collection created concurrently, attaching to it",
				"collection", name, "user_id", userID, "knowledge_id", c.ID)
			return r.attach(ctx, token, c.ID, fileID)
		}
	}

	return fmt.Errorf("%w: %v", ErrCollectionNotFound, createErr)
}

// list fetches the full collection list visible to the caller.
func (r *Reconciler) list(ctx context.Context, token string) ([]collection, error) {
	var collections []collection
	if err := r.doJSON(ctx, http.MethodGet, r.baseURL+"/api/v1/knowledge/list", token, nil, &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

// create makes a new collection and returns its id.
func (r *Reconciler) create(ctx context.Context, token, name string) (string, error) {
	body := map[string]string{
		"name":        name,
		"description": collectionDescription,
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := r.doJSON(ctx, http.MethodPost, r.baseURL+"/api/v1/knowledge/create", token, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", ErrMissingKnowledgeID
	}
	return created.ID, nil
}

// attach adds a file to a collection. The service does not distinguish
// "already attached" from genuine errors, so neither does this method:
// any non-200 response is a failure.
func (r *Reconciler) attach(ctx context.Context, token, knowledgeID, fileID string) error {
	url := fmt.Sprintf("%s/api/v1/knowledge/%s/file/add", r.baseURL, knowledgeID)
	body := map[string]string{"file_id": fileID}

	if err := r.doJSON(ctx, http.MethodPost, url, token, body, nil); err != nil {
		r.logger.Error("attaching file to knowledge collection failed",
			"knowledge_id", knowledgeID, "file_id", fileID, "error", err)
		return fmt.Errorf("attaching file: %w", err)
	}

	r.logger.Info("file attached to knowledge collection",
		"knowledge_id", knowledgeID, "file_id", fileID)
	return nil
}

// doJSON performs a JSON request against the knowledge API. A non-200
// status is an error carrying the status and response body.
func (r *Reconciler) doJSON(ctx context.Context, method, url, token string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("knowledge API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}

	return nil
}
