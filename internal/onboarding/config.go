package onboarding

import (
	"time"

	"operationcode_backend/internal/config"
)

const (
	DefaultWelcomeSubject = "Welcome to Operation Code!"
	DefaultMailFrom       = "staff@operationcode.org"
)

// Config is everything the dispatcher needs from the environment. It is built once at
// startup and passed in explicitly.
type Config struct {
	MailFrom         string
	WelcomeSubject   string
	PybotURL         string
	PybotAuthToken   string
	MailchimpAPIKey  string
	MailchimpListID  string
	MailchimpBaseURL string
	HTTPTimeout      time.Duration
}

// ConfigFrom copies the onboarding settings out of the application config.
func ConfigFrom(cfg *config.Config) Config {
	c := Config{
		MailFrom:         cfg.MailFrom,
		WelcomeSubject:   DefaultWelcomeSubject,
		PybotURL:         cfg.PybotURL,
		PybotAuthToken:   cfg.PybotAuthToken,
		MailchimpAPIKey:  cfg.MailchimpAPIKey,
		MailchimpListID:  cfg.MailchimpListID,
		MailchimpBaseURL: cfg.MailchimpBaseURL,
		HTTPTimeout:      cfg.ExternalHTTPTimeout,
	}
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MailFrom == "" {
		c.MailFrom = DefaultMailFrom
	}
	if c.WelcomeSubject == "" {
		c.WelcomeSubject = DefaultWelcomeSubject
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}
