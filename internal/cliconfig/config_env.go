package cliconfig

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files (default ".env")
// into the process environment. Missing files are ignored; variables
// already set are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := files[:0:0]
	for _, f := range files {
		if FileExists(f) {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnvConfig applies configuration from environment variables (IPCHECK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", os.Getenv("IPCHECK_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("algorithm", os.Getenv("IPCHECK_ALGORITHM"), &cfg.Algorithm)
	s.setString("output", os.Getenv("IPCHECK_OUTPUT"), &cfg.Output)
	s.setString("save-report", os.Getenv("IPCHECK_SAVE_REPORT"), &cfg.SaveReport)
	s.setString("log-level", os.Getenv("IPCHECK_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("timeout", os.Getenv("IPCHECK_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("debounce", os.Getenv("IPCHECK_DEBOUNCE_DELAY"), &cfg.DebounceDelay); err != nil {
		return err
	}

	if err := s.setIntFromString("chunk-size", os.Getenv("IPCHECK_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
		return err
	}

	s.setBoolFromString("no-color", os.Getenv("IPCHECK_NO_COLOR"), &cfg.NoColor)
	s.setBoolFromString("watch", os.Getenv("IPCHECK_WATCH"), &cfg.Watch)

	return nil
}
