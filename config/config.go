// Package config loads dashreq settings from a YAML file, the environment and
// a .env file, and resolves the backend base URL.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nojima/dashreq/logging"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvAPIURL      = "DASHREQ_API_URL"
	EnvTimeout     = "DASHREQ_TIMEOUT"
	EnvProxyURL    = "DASHREQ_PROXY_URL"
	EnvSessionFile = "DASHREQ_SESSION_FILE"
	EnvLogLevel    = "DASHREQ_LOG_LEVEL"
	EnvLogFile     = "DASHREQ_LOG_FILE"

	// EnvPassword is read by --login only and never stored in Config.
	EnvPassword = "DASHREQ_PASSWORD"
)

type Config struct {
	// BaseURL is the backend origin, e.g. https://api.example.com.
	BaseURL string `yaml:"base-url"`

	Timeout         time.Duration `yaml:"timeout"`
	FollowRedirects bool          `yaml:"follow-redirects"`
	SkipVerify      bool          `yaml:"skip-verify"`
	ForceHTTP1      bool          `yaml:"force-http1"`
	// ProxyURL accepts http, https and socks5 URLs.
	ProxyURL string `yaml:"proxy-url"`

	// SessionFile stores the signed-in session.
	SessionFile string `yaml:"session-file"`
	LoginPath   string `yaml:"login-path"`
	RefreshPath string `yaml:"refresh-path"`
	GraphQLPath string `yaml:"graphql-path"`
	SQLPath     string `yaml:"sql-path"`
	// RefreshLead is how long before expiry the session is refreshed
	// proactively.
	RefreshLead time.Duration `yaml:"refresh-lead"`

	LogLevel string `yaml:"log-level"`
	LogFile  string `yaml:"log-file"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		SessionFile: DefaultSessionFile(),
		LoginPath:   "/auth/login",
		RefreshPath: "/auth/refresh",
		GraphQLPath: "/graphql",
		SQLPath:     "/sql",
		RefreshLead: time.Minute,
		LogLevel:    "warn",
	}
}

// DefaultSessionFile returns the session path under the user config
// directory, or a dotfile in the working directory when there is none.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".dashreq-session.json"
	}
	return filepath.Join(dir, "dashreq", "session.json")
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory and the environment,
// in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config file '%s'", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config file '%s'", path)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WithError(err).Warnf("failed to load .env file")
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		if !ok {
			return "", false
		}
		value = strings.TrimSpace(value)
		return value, value != ""
	}

	if v, ok := get(EnvAPIURL); ok {
		c.BaseURL = v
	}
	if v, ok := get(EnvTimeout); ok {
		d, err := ParseDurationOrSeconds(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvTimeout)
		}
		c.Timeout = d
	}
	if v, ok := get(EnvProxyURL); ok {
		c.ProxyURL = v
	}
	if v, ok := get(EnvSessionFile); ok {
		c.SessionFile = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := get(EnvLogFile); ok {
		c.LogFile = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return errors.Wrapf(err, "invalid base-url '%s'", c.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.Errorf("base-url must be an http or https URL: %s", c.BaseURL)
		}
		if u.Host == "" {
			return errors.Errorf("base-url has no host: %s", c.BaseURL)
		}
	}
	if c.ProxyURL != "" {
		u, err := url.Parse(c.ProxyURL)
		if err != nil {
			return errors.Wrapf(err, "invalid proxy-url '%s'", c.ProxyURL)
		}
		switch u.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return errors.Errorf("unsupported proxy scheme: %s", u.Scheme)
		}
	}
	if c.Timeout < 0 {
		return errors.Errorf("timeout must not be negative: %v", c.Timeout)
	}
	if c.RefreshLead < 0 {
		return errors.Errorf("refresh-lead must not be negative: %v", c.RefreshLead)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

var reNumber = regexp.MustCompile(`^[0-9.]+$`)

// ParseDurationOrSeconds accepts a Go duration string or a plain number of
// seconds.
func ParseDurationOrSeconds(s string) (time.Duration, error) {
	if reNumber.MatchString(s) {
		seconds, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Errorf("must be a number or duration string: %v", s)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("must be a number or duration string: %v", s)
	}
	return d, nil
}
