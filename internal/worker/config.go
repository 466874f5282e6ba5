// Package worker consumes refresh commands from Pub/Sub and drives the
// refresh controller with them.
package worker

import "time"

// Job types accepted on the command subscription.
const (
	JobManualRefresh = "manual_refresh"
	JobLocate        = "locate"
	JobHealthCheck   = "health_check"
)

// Command is the JSON body of a command message.
type Command struct {
	JobType string `json:"job_type"`
}

// Config holds worker settings.
type Config struct {
	ProjectID        string
	SubscriptionName string

	// MaxOutstanding bounds unacknowledged messages held by the client.
	// Default: 10
	MaxOutstanding int

	// MaxExtension bounds ack deadline extension for one message.
	// Default: 10 minutes
	MaxExtension time.Duration

	// JobTimeout bounds a single command.
	// Default: 30 seconds
	JobTimeout time.Duration
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		MaxOutstanding: 10,
		MaxExtension:   10 * time.Minute,
		JobTimeout:     30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxOutstanding <= 0 {
		c.MaxOutstanding = d.MaxOutstanding
	}
	if c.MaxExtension <= 0 {
		c.MaxExtension = d.MaxExtension
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	return c
}
