package boxai

import (
	"errors"
	"time"
)

// Config holds connection settings for the Box AI extraction endpoint.
type Config struct {
	// BaseURL is the API root, e.g. https://api.box.com/2.0.
	BaseURL string
	// Token is the bearer token sent on every request.
	Token string
	// Model selects the AI agent model, e.g. azure__openai__gpt_4o_mini.
	Model string
	// Timeout bounds a single extraction round-trip.
	Timeout time.Duration
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("boxai: base URL is required")
	}
	if c.Token == "" {
		return errors.New("boxai: token is required")
	}
	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 120 * time.Second
	}
	return c.Timeout
}
