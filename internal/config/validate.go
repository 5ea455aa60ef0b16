package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true, "": true,
}

var validMissingImages = map[string]bool{
	"abort": true, "drop": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, "output: required")
	}
	if !validMissingImages[strings.ToLower(c.MissingImages)] {
		errs = append(errs, fmt.Sprintf("missing_images: must be one of abort, drop; got %q", c.MissingImages))
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, fmt.Sprintf("log.format: must be one of text, json; got %q", c.Log.Format))
	}
	if c.Proxy != "" {
		if _, err := ParseProxy(c.Proxy); err != nil {
			errs = append(errs, fmt.Sprintf("proxy: %v", err))
		}
	}

	return errs
}
