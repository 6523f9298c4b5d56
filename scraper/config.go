package scraper

import "time"

// Config controls how pages and feeds are fetched.
type Config struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	// MaxAttempts includes the first request. Only 5xx responses and
	// timeouts are retried.
	MaxAttempts  int `yaml:"max_attempts"`
	MaxRedirects int `yaml:"max_redirects"`
}

// DefaultUserAgent identifies pressfeed to publishers.
const DefaultUserAgent = "pressfeed/1.0 (article ingestion)"

// DefaultConfig returns the fetch defaults: a 10 second timeout, a 10 MiB
// body cap, two attempts and at most five redirects.
func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: 10 << 20,
		MaxAttempts:  2,
		MaxRedirects: 5,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = d.MaxRedirects
	}
	return c
}
