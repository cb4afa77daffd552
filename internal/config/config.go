// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (OWUI_URL, PORT, PRESENTON_ENDPOINT, ...)
//  2. Config file (./config.yaml)
//  3. Default values
//
// The loaded Config struct is constructed once at process entry and passed
// into each component; business logic never reads the environment directly.
//
// Security: the Presenton API key is masked in MarshalJSON. Validation is
// fail-fast with sentinel errors usable via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingWebUIURL indicates the file-storage service base URL is not set.
	ErrMissingWebUIURL = errors.New("missing Open-WebUI base URL")

	// ErrMissingPresentonEndpoint indicates the presentation service endpoint is not set.
	ErrMissingPresentonEndpoint = errors.New("missing Presenton endpoint")

	// ErrMissingPresentonAPIKey indicates the presentation service API key is not set.
	ErrMissingPresentonAPIKey = errors.New("missing Presenton API key")

	// ErrMissingPresentonBaseURL indicates the presentation service base URL is not set.
	ErrMissingPresentonBaseURL = errors.New("missing Presenton base URL")

	// ErrMissingHWPEndpoint indicates the HWP conversion service endpoint is not set.
	ErrMissingHWPEndpoint = errors.New("missing HWP endpoint")

	// ErrInvalidPort indicates the listen port is out of range.
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidTimeout indicates a timeout value is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// Defaults applied when neither the environment nor the config file
// provides a value.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000

	// DefaultGenerateTimeout bounds calls to external rendering services,
	// which can take minutes for large documents.
	DefaultGenerateTimeout = 10 * time.Minute

	// DefaultTransferTimeout bounds upload/download calls against the
	// file-storage service.
	DefaultTransferTimeout = 5 * time.Minute

	// DefaultLanguage is the slide language requested from Presenton.
	DefaultLanguage = "ko"
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON. When adding new
// sensitive fields (API keys, tokens), update MarshalJSON.
type Config struct {
	// WebUIURL is the base URL of the Open-WebUI file-storage service.
	WebUIURL string `mapstructure:"webui_url" json:"webui_url"`

	// Server binding
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`

	// Presenton presentation-generation service
	PresentonEndpoint string `mapstructure:"presenton_endpoint" json:"presenton_endpoint"`
	PresentonAPIKey   string `mapstructure:"presenton_api_key" json:"presenton_api_key"` // SENSITIVE: masked in MarshalJSON
	PresentonBaseURL  string `mapstructure:"presenton_base_url" json:"presenton_base_url"`
	PresentonLanguage string `mapstructure:"presenton_language" json:"presenton_language"`

	// HWPEndpoint is the structured-document conversion service endpoint.
	HWPEndpoint string `mapstructure:"hwp_endpoint" json:"hwp_endpoint"`

	// EnableKnowledge controls whether uploaded files are indexed into
	// per-user knowledge collections after upload.
	EnableKnowledge bool `mapstructure:"enable_knowledge" json:"enable_knowledge"`

	// Timeouts per call class
	GenerateTimeout time.Duration `mapstructure:"generate_timeout" json:"generate_timeout"`
	TransferTimeout time.Duration `mapstructure:"transfer_timeout" json:"transfer_timeout"`
}

// Load reads configuration from the environment and an optional
// ./config.yaml, applies defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults suffice.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using environment and defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("enable_knowledge", true)
	v.SetDefault("generate_timeout", DefaultGenerateTimeout)
	v.SetDefault("transfer_timeout", DefaultTransferTimeout)
	v.SetDefault("presenton_language", DefaultLanguage)
}

// bindEnvVariables maps environment variables to config keys. The names
// match the deployment environment of the companion services.
func bindEnvVariables(v *viper.Viper) {
	// viper.BindEnv only errors on empty input; keys here are constants.
	_ = v.BindEnv("webui_url", "OWUI_URL")
	_ = v.BindEnv("host", "HOST")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("presenton_endpoint", "PRESENTON_ENDPOINT")
	_ = v.BindEnv("presenton_api_key", "PRESENTON_API_KEY")
	_ = v.BindEnv("presenton_base_url", "PRESENTON_BASE_URL")
	_ = v.BindEnv("presenton_language", "PRESENTON_LANGUAGE")
	_ = v.BindEnv("hwp_endpoint", "HWP_ENDPOINT")
	_ = v.BindEnv("enable_knowledge", "ENABLE_CREATE_KNOWLEDGE")
	_ = v.BindEnv("generate_timeout", "GENERATE_TIMEOUT")
	_ = v.BindEnv("transfer_timeout", "TRANSFER_TIMEOUT")
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(*c)
	if masked.PresentonAPIKey != "" {
		masked.PresentonAPIKey = "***"
	}
	return json.Marshal(masked)
}
