package config

import (
	"fmt"
	"time"
)

// Source kinds supported by the evaluation server.
const (
	SourceKindHTTP = "http"
	SourceKindFile = "file"
)

// SourceConfig configures where rulesets are fetched from: a download
// endpoint polled on an interval, or a local file watched for changes.
type SourceConfig struct {
	Kind string `envconfig:"KIND" default:"http" validate:"oneof=http file"`

	// HTTP source
	URL            string        `envconfig:"URL"`
	APIKey         string        `envconfig:"API_KEY"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"10s" validate:"min=1s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`

	// File source
	Path string `envconfig:"PATH"`
}

// Validate checks the source configuration for the selected kind.
func (c *SourceConfig) Validate() error {
	switch c.Kind {
	case SourceKindHTTP:
		if c.URL == "" {
			return fmt.Errorf("source URL is required for the http source")
		}
		if _, err := parseAndValidateURL(c.URL, []string{"http", "https"}); err != nil {
			return fmt.Errorf("invalid source URL: %w", err)
		}
		if err := validateNoWhitespace(c.APIKey, "source API key"); err != nil {
			return err
		}
	case SourceKindFile:
		if c.Path == "" {
			return fmt.Errorf("source path is required for the file source")
		}
	}
	return nil
}
