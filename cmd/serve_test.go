package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/genfiles/genfiles/internal/config"
	"github.com/genfiles/genfiles/internal/log"
)

func testConfig() *config.Config {
	return &config.Config{
		WebUIURL:          "http://storage.internal",
		Host:              "127.0.0.1",
		Port:              8000,
		PresentonEndpoint: "http://presenton.internal/api/v1/ppt/presentation/generate",
		PresentonAPIKey:   "key",
		PresentonBaseURL:  "http://presenton.internal",
		PresentonLanguage: "ko",
		HWPEndpoint:       "http://hwp.internal/generate",
		EnableKnowledge:   true,
		GenerateTimeout:   time.Minute,
		TransferTimeout:   time.Minute,
	}
}

func TestNewHandler(t *testing.T) {
	handler, err := newHandler(testConfig(), log.NewNop())
	if err != nil {
		t.Fatalf("newHandler() unexpected error: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("GET /health body = %q, want %q", rec.Body.String(), "ok")
	}
}

func TestNewHandlerInvalidDependencies(t *testing.T) {
	cfg := testConfig()
	cfg.WebUIURL = ""
	if _, err := newHandler(cfg, log.NewNop()); err == nil {
		t.Fatal("newHandler() succeeded with empty storage URL, want error")
	}
}
