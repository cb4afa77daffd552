package mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/genfiles/genfiles/internal/docx"
	"github.com/genfiles/genfiles/internal/hwp"
	"github.com/genfiles/genfiles/internal/knowledge"
	"github.com/genfiles/genfiles/internal/log"
	"github.com/genfiles/genfiles/internal/presenton"
	"github.com/genfiles/genfiles/internal/review"
	"github.com/genfiles/genfiles/internal/webui"
)

// fakePlatform is an in-memory stand-in for the file-storage service:
// file upload/download plus the knowledge endpoints.
type fakePlatform struct {
	mu           sync.Mutex
	files        map[string][]byte
	uploads      []string // filenames in upload order
	collections  []map[string]string
	attachments  map[string][]string
	uploadStatus int // non-zero forces upload responses to fail
	listStatus   int // non-zero forces knowledge list responses to fail
	nextID       int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		files:       make(map[string][]byte),
		attachments: make(map[string][]string),
	}
}

func (f *fakePlatform) putFile(data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("file-%d", f.nextID)
	f.files[id] = data
	return id
}

func (f *fakePlatform) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/files/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.uploadStatus != 0 {
			http.Error(w, "storage unavailable", f.uploadStatus)
			return
		}
		file, fh, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		f.nextID++
		id := fmt.Sprintf("file-%d", f.nextID)
		f.files[id] = data
		f.uploads = append(f.uploads, fh.Filename)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	mux.HandleFunc("GET /api/v1/files/{id}/content", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		data, ok := f.files[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	})
	mux.HandleFunc("GET /api/v1/knowledge/list", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.listStatus != 0 {
			http.Error(w, "unavailable", f.listStatus)
			return
		}
		if f.collections == nil {
			_, _ = w.Write([]byte("[]"))
			return
		}
		_ = json.NewEncoder(w).Encode(f.collections)
	})
	mux.HandleFunc("POST /api/v1/knowledge/create", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("kn-%d", f.nextID)
		f.collections = append(f.collections, map[string]string{
			"id": id, "name": req["name"], "user_id": "u1",
		})
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	mux.HandleFunc("POST /api/v1/knowledge/{id}/file/add", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.attachments[r.PathValue("id")] = append(f.attachments[r.PathValue("id")], req["file_id"])
		f.mu.Unlock()
	})
	return mux
}

// fakeRenderers serves presenton- and hwp-shaped endpoints from one
// httptest server.
func fakeRenderers(t *testing.T) (endpointBase string) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ppt/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"presentation_id": "p-1"})
	})
	mux.HandleFunc("POST /ppt/export", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"path": "/app_data/p-1.pptx"})
	})
	mux.HandleFunc("GET /app_data/p-1.pptx", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pptx-bytes"))
	})
	mux.HandleFunc("POST /hwp/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"file_id": "h-1"})
	})
	mux.HandleFunc("GET /hwp/download/h-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hwp-bytes"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

// newTestConfig builds a full server config backed by f and fake
// rendering services.
func newTestConfig(t *testing.T, f *fakePlatform) Config {
	t.Helper()
	platform := httptest.NewServer(f.handler())
	t.Cleanup(platform.Close)
	renderers := fakeRenderers(t)

	logger := log.NewNop()
	transfer, err := webui.NewClient(platform.URL, 5*time.Second, logger)
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}
	reconciler, err := knowledge.NewReconciler(platform.URL, 5*time.Second, logger)
	if err != nil {
		t.Fatalf("NewReconciler() unexpected error: %v", err)
	}
	presentonClient, err := presenton.New(renderers+"/ppt/generate", "test-key", renderers, "ko", 5*time.Second, logger)
	if err != nil {
		t.Fatalf("presenton.New() unexpected error: %v", err)
	}
	hwpClient, err := hwp.New(renderers+"/hwp/generate", 5*time.Second, logger)
	if err != nil {
		t.Fatalf("hwp.New() unexpected error: %v", err)
	}
	annotator, err := review.NewAnnotator(transfer, reconciler, true, logger)
	if err != nil {
		t.Fatalf("NewAnnotator() unexpected error: %v", err)
	}

	return Config{
		Name:            "genfiles",
		Version:         "test",
		Transfer:        transfer,
		Reconciler:      reconciler,
		Presenton:       presentonClient,
		HWP:             hwpClient,
		Annotator:       annotator,
		EnableKnowledge: true,
		Logger:          logger,
	}
}

func TestNewServer(t *testing.T) {
	server, err := NewServer(newTestConfig(t, newFakePlatform()))
	if err != nil {
		t.Fatalf("NewServer() unexpected error: %v", err)
	}
	if server.Handler() == nil {
		t.Fatal("Handler() = nil, want http.Handler")
	}
}

func TestNewServerValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing name", func(c *Config) { c.Name = "" }, "name is required"},
		{"missing version", func(c *Config) { c.Version = "" }, "version is required"},
		{"missing transfer", func(c *Config) { c.Transfer = nil }, "transfer client is required"},
		{"missing reconciler", func(c *Config) { c.Reconciler = nil }, "reconciler is required"},
		{"missing presenton", func(c *Config) { c.Presenton = nil }, "presenton client is required"},
		{"missing hwp", func(c *Config) { c.HWP = nil }, "hwp client is required"},
		{"missing annotator", func(c *Config) { c.Annotator = nil }, "annotator is required"},
		{"missing logger", func(c *Config) { c.Logger = nil }, "logger is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t, newFakePlatform())
			tt.mutate(&cfg)
			_, err := NewServer(cfg)
			if err == nil {
				t.Fatal("NewServer() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewServer() error = %q, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

// A nil reconciler is fine when knowledge indexing is disabled.
func TestNewServerKnowledgeDisabled(t *testing.T) {
	cfg := newTestConfig(t, newFakePlatform())
	cfg.EnableKnowledge = false
	cfg.Reconciler = nil
	cfg.Annotator = mustAnnotator(t, cfg.Transfer)

	if _, err := NewServer(cfg); err != nil {
		t.Fatalf("NewServer() unexpected error: %v", err)
	}
}

func mustAnnotator(t *testing.T, transfer *webui.Client) *review.Annotator {
	t.Helper()
	a, err := review.NewAnnotator(transfer, nil, false, log.NewNop())
	if err != nil {
		t.Fatalf("NewAnnotator() unexpected error: %v", err)
	}
	return a
}

func buildTestDoc(t *testing.T) []byte {
	t.Helper()
	data, err := docx.Build([]docx.ParagraphSpec{
		{Style: "Title", Text: "Quarterly Report"},
		{Text: "Revenue grew."},
	})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	return data
}
