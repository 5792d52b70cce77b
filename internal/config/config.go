package config

import (
	"errors"
	"fmt"
)

type Config struct {
	Bind      string
	Port      int
	PublicURL string
	Verbose   bool

	// CategoryPool optionally replaces the built-in category list with
	// the contents of a newline-separated file.
	CategoryPool string
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.Bind == "" {
		return errors.New("bind address must not be empty")
	}
	return nil
}

// Addr is the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}
