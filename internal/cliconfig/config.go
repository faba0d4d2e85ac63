package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bft-labs/ipcheck/internal/domain"
)

// DefaultServiceURL is the default base URL of the validation service.
const DefaultServiceURL = "http://localhost:5000"

var validate = validator.New()

// Config holds CLI configuration for ipcheck.
type Config struct {
	ServiceURL  string        `validate:"required,url"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	Algorithm string `validate:"required,oneof=md5 sha1 sha256 sha512 blake3"`
	ChunkSize int    `validate:"gte=0"`

	Output  string `validate:"oneof=text json"`
	NoColor bool

	Watch         bool
	DebounceDelay time.Duration `validate:"gte=0"`

	SaveReport string
	LogLevel   string `validate:"oneof=trace debug info warn error disabled"`
	DigestOnly bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ServiceURL:    DefaultServiceURL,
		HTTPTimeout:   5 * time.Minute, // uploads of large packages
		Algorithm:     string(domain.DefaultAlgorithm),
		ChunkSize:     64 << 10, // 64KiB
		Output:        "text",
		DebounceDelay: 250 * time.Millisecond,
		LogLevel:      "info",
		NoColor:       os.Getenv("NO_COLOR") != "",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}
	// Ensure no trailing slash
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")

	if c.Algorithm != "" {
		alg, err := domain.ParseAlgorithm(c.Algorithm)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
		c.Algorithm = string(alg)
	}
	c.Output = strings.ToLower(c.Output)
	c.LogLevel = strings.ToLower(c.LogLevel)

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
