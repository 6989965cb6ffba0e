// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"waitlist-intake/pkg/waitlist"
)

// Config holds all configuration for the service.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	ListProvider ListProviderConfig `yaml:"list_provider"`
	Storage      StorageConfig      `yaml:"storage"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Email        EmailConfig        `yaml:"email"`
}

// ServerConfig holds listener settings. An empty InternalPort disables the
// internal router.
type ServerConfig struct {
	Port         string `yaml:"port"`
	InternalPort string `yaml:"internal_port"`
}

// ListProviderConfig selects the mailing list service.
type ListProviderConfig struct {
	Name            string `yaml:"name"` // kit or mailchimp
	KitAPIKey       string `yaml:"kit_api_key"`
	KitBaseURL      string `yaml:"kit_base_url"`
	MailchimpAPIKey string `yaml:"mailchimp_api_key"`
	MailchimpListID string `yaml:"mailchimp_list_id"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Timeout returns the outbound request timeout.
func (c ListProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorageConfig selects the waitlist store. DatabaseURL wins over Bucket,
// which wins over LocalPath. LocalPath is for development and is only used
// when set explicitly.
type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Bucket      string `yaml:"bucket"`
	LocalPath   string `yaml:"local_path"`
	Salt        string `yaml:"salt"`
}

// RateLimitConfig holds the fixed window parameters. RedisURL selects the
// shared counter store.
type RateLimitConfig struct {
	RedisURL    string        `yaml:"redis_url"`
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// EmailConfig selects the delivery provider.
type EmailConfig struct {
	Provider              string `yaml:"provider"` // resend, brevo, ses, gmail or mock
	ResendAPIKey          string `yaml:"resend_api_key"`
	BrevoAPIKey           string `yaml:"brevo_api_key"`
	SESRegion             string `yaml:"ses_region"`
	SESAccessKey          string `yaml:"ses_access_key"`
	SESSecretKey          string `yaml:"ses_secret_key"`
	GoogleCredentialsJSON string `yaml:"google_credentials_json"`
	From                  string `yaml:"from"`
	FromName              string `yaml:"from_name"`
	TimeoutSeconds        int    `yaml:"timeout_seconds"`
}

// Timeout returns the outbound request timeout.
func (c EmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads the YAML file at path, if any, then applies environment
// overrides and defaults. A .env file in the working directory is loaded
// first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.InternalPort, "INTERNAL_PORT")

	setString(&c.ListProvider.Name, "LIST_PROVIDER")
	setString(&c.ListProvider.KitAPIKey, "KIT_API_KEY")
	setString(&c.ListProvider.KitBaseURL, "KIT_BASE_URL")
	setString(&c.ListProvider.MailchimpAPIKey, "MAILCHIMP_API_KEY")
	setString(&c.ListProvider.MailchimpListID, "MAILCHIMP_LIST_ID")

	setString(&c.Storage.DatabaseURL, "WAITLIST_DATABASE_URL")
	setString(&c.Storage.Bucket, "STORAGE_BUCKET")
	setString(&c.Storage.LocalPath, "LOCAL_STORAGE")
	setString(&c.Storage.Salt, "WAITLIST_SALT")

	setString(&c.RateLimit.RedisURL, "REDIS_URL")
	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("parse RATE_LIMIT_MAX %q: must be a positive integer", v)
		}
		c.RateLimit.MaxRequests = n
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		d, err := parseWindow(v)
		if err != nil {
			return fmt.Errorf("parse RATE_LIMIT_WINDOW: %w", err)
		}
		c.RateLimit.Window = d
	}

	setString(&c.Email.Provider, "EMAIL_PROVIDER")
	setString(&c.Email.ResendAPIKey, "RESEND_API_KEY")
	setString(&c.Email.BrevoAPIKey, "BREVO_API_KEY")
	setString(&c.Email.SESRegion, "AWS_SES_REGION")
	setString(&c.Email.SESAccessKey, "AWS_SES_ACCESS_KEY")
	setString(&c.Email.SESSecretKey, "AWS_SES_SECRET_KEY")
	setString(&c.Email.GoogleCredentialsJSON, "GOOGLE_CREDENTIALS_JSON")
	setString(&c.Email.From, "EMAIL_FROM")
	setString(&c.Email.FromName, "EMAIL_FROM_NAME")
	return nil
}

// parseWindow accepts a Go duration ("90s") or a bare number of seconds.
func parseWindow(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("%q must be positive", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%q must be positive", v)
	}
	return d, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.ListProvider.Name == "" {
		c.ListProvider.Name = "kit"
	}
	if c.ListProvider.TimeoutSeconds == 0 {
		c.ListProvider.TimeoutSeconds = 10
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = 5
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 60 * time.Second
	}
	if c.Email.Provider == "" {
		c.Email.Provider = "resend"
	}
	if c.Email.From == "" {
		c.Email.From = "onboarding@resend.dev"
	}
	if c.Email.TimeoutSeconds == 0 {
		c.Email.TimeoutSeconds = 15
	}
	c.ListProvider.Name = strings.ToLower(c.ListProvider.Name)
	c.Email.Provider = strings.ToLower(c.Email.Provider)
}

// Missing reports the credentials the selected waitlist store lacks, or nil.
// A bucket store needs a salt: unsalted entry keys can be reversed by
// hashing likely addresses.
func (c StorageConfig) Missing() *waitlist.ConfigError {
	switch {
	case c.DatabaseURL != "":
		return nil
	case c.Bucket != "":
		if c.Salt == "" {
			return &waitlist.ConfigError{Component: "storage", Missing: []string{"WAITLIST_SALT"}}
		}
		return nil
	case c.LocalPath != "":
		return nil
	default:
		return &waitlist.ConfigError{Component: "storage", Missing: []string{"WAITLIST_DATABASE_URL or STORAGE_BUCKET"}}
	}
}

// Validate reports every selected backend whose credentials are missing.
// The service still starts; the affected endpoint fails closed per request.
func (c *Config) Validate() error {
	var errs []error

	if missing := c.Storage.Missing(); missing != nil {
		errs = append(errs, missing)
	}

	switch c.ListProvider.Name {
	case "kit":
		if c.ListProvider.KitAPIKey == "" {
			errs = append(errs, &waitlist.ConfigError{Component: "kit", Missing: []string{"KIT_API_KEY"}})
		}
	case "mailchimp":
		var missing []string
		if c.ListProvider.MailchimpAPIKey == "" {
			missing = append(missing, "MAILCHIMP_API_KEY")
		}
		if c.ListProvider.MailchimpListID == "" {
			missing = append(missing, "MAILCHIMP_LIST_ID")
		}
		if len(missing) > 0 {
			errs = append(errs, &waitlist.ConfigError{Component: "mailchimp", Missing: missing})
		}
	default:
		errs = append(errs, fmt.Errorf("unknown list provider %q", c.ListProvider.Name))
	}

	switch c.Email.Provider {
	case "resend":
		if c.Email.ResendAPIKey == "" {
			errs = append(errs, &waitlist.ConfigError{Component: "resend", Missing: []string{"RESEND_API_KEY"}})
		}
	case "brevo":
		if c.Email.BrevoAPIKey == "" {
			errs = append(errs, &waitlist.ConfigError{Component: "brevo", Missing: []string{"BREVO_API_KEY"}})
		}
	case "gmail":
		if c.Email.GoogleCredentialsJSON == "" {
			errs = append(errs, &waitlist.ConfigError{Component: "gmail", Missing: []string{"GOOGLE_CREDENTIALS_JSON"}})
		}
	case "ses", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown email provider %q", c.Email.Provider))
	}

	return errors.Join(errs...)
}
