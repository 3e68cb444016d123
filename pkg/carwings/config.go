package carwings

import (
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/leafremote/leafremote/pkg/common"
	"github.com/leafremote/leafremote/pkg/types"
)

// Config holds the flag driven session settings.
type Config struct {
	baseURL  string
	language string
	timeZone string
	timeout  time.Duration
}

// Configured registers the carwings flags.
func Configured() *Config {
	baseURL := lflag.String("carwings-base-url", DefaultBaseURL, "Carwings API base URL")
	language := lflag.String("carwings-language", defaultLanguage, "Language sent with every request")
	timeZone := lflag.String("carwings-timezone", "", "Time zone sent with vehicle requests (default: the account's)")
	timeout := lflag.Duration("carwings-timeout", time.Minute, "Timeout for a single carwings request")

	c := &Config{}
	lflag.Do(func() {
		c.baseURL = *baseURL
		c.language = *language
		c.timeZone = *timeZone
		c.timeout = *timeout
	})
	return c
}

// NewSession builds an unauthenticated session from the flags.
func (c *Config) NewSession(username, password string, region types.Region) *Session {
	return NewSession(username, password, region,
		WithHTTPClient(common.HTTPClient(c.timeout)),
		WithBaseURL(c.baseURL),
		WithLanguage(c.language),
		WithTimeZone(c.timeZone),
	)
}
