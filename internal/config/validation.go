package config

import "fmt"

// Validate checks that every required field is set and every numeric
// field is in range. Called by Load; safe to call again after manual
// construction in tests.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.WebUIURL == "" {
		return ErrMissingWebUIURL
	}
	if c.PresentonEndpoint == "" {
		return ErrMissingPresentonEndpoint
	}
	if c.PresentonAPIKey == "" {
		return ErrMissingPresentonAPIKey
	}
	if c.PresentonBaseURL == "" {
		return ErrMissingPresentonBaseURL
	}
	if c.HWPEndpoint == "" {
		return ErrMissingHWPEndpoint
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: must be 1-65535, got %d", ErrInvalidPort, c.Port)
	}

	if c.GenerateTimeout <= 0 {
		return fmt.Errorf("%w: generate_timeout must be positive, got %v", ErrInvalidTimeout, c.GenerateTimeout)
	}
	if c.TransferTimeout <= 0 {
		return fmt.Errorf("%w: transfer_timeout must be positive, got %v", ErrInvalidTimeout, c.TransferTimeout)
	}

	return nil
}
