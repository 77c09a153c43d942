package stream

import (
	"errors"
	"strings"
)

// DefaultTopic is the sovereignty log topic.
const DefaultTopic = "AEGIS_SOVEREIGNTY_LOG"

// Config configures the Kafka publisher and consumer.
type Config struct {
	// Brokers are seed brokers. Empty disables publishing.
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	Group    string   `yaml:"group"`
	ClientID string   `yaml:"client_id"`
	// MinWeight drops events whose final weight is below it.
	MinWeight uint64 `yaml:"min_weight"`
}

// DefaultConfig returns the built-in stream settings.
func DefaultConfig() Config {
	return Config{
		Topic:     DefaultTopic,
		Group:     "accord-archivers",
		ClientID:  "accord",
		MinWeight: 1000,
	}
}

// Enabled reports whether any broker is configured.
func (c Config) Enabled() bool {
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// Validate checks required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return errors.New("stream: topic must not be empty")
	}
	if strings.TrimSpace(c.Group) == "" {
		return errors.New("stream: group must not be empty")
	}
	return nil
}
