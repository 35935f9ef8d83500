package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	TransportSSE       = "sse"
	TransportWebsocket = "websocket"
)

// MinRefreshInterval is the shortest directory polling interval accepted.
const MinRefreshInterval = 500 * time.Millisecond

// ValidationError is a single validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func ValidTransports() []string { return []string{TransportSSE, TransportWebsocket} }

func ValidLogLevels() []string { return []string{"debug", "info", "warn", "error"} }

// Validate returns every invalid value found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Value:   c.API.BaseURL,
			Message: "must be an absolute http or https URL",
		})
	}
	if c.API.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "api.request_timeout",
			Value:   c.API.RequestTimeout,
			Message: "must be positive",
		})
	}
	if c.Directory.RefreshInterval < MinRefreshInterval {
		errs = append(errs, ValidationError{
			Field:   "directory.refresh_interval",
			Value:   c.Directory.RefreshInterval,
			Message: fmt.Sprintf("must be at least %v", MinRefreshInterval),
		})
	}
	if !slices.Contains(ValidTransports(), c.Stream.Transport) {
		errs = append(errs, ValidationError{
			Field:   "stream.transport",
			Value:   c.Stream.Transport,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidTransports(), ", ")),
		})
	}
	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errs
}
