package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Serdar715/xssdetective/internal/surface"
)

// Configuration errors
var (
	// ErrInvalidConfig indicates a configuration value is out of range
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidHostURL indicates the host page URL cannot be used
	ErrInvalidHostURL = errors.New("invalid host URL")
)

// DefaultMaxFailures is how many engine failures in a row trip the breaker.
const DefaultMaxFailures = 10

// Supported report formats
const (
	FormatJSON     = "json"
	FormatHTML     = "html"
	FormatMarkdown = "md"
)

// ScanConfig holds everything one xssdetective session needs.
// Every field can come from a YAML file; explicit flags take precedence.
type ScanConfig struct {
	HostURL string `yaml:"host_url"`

	// Submission surface
	Engine      string            `yaml:"engine"`
	Visible     bool              `yaml:"visible"`
	BrowserPath string            `yaml:"browser_path"`
	Timeout     time.Duration     `yaml:"timeout"`
	MaxInFlight int               `yaml:"max_inflight"`
	MaxFailures int               `yaml:"max_failures"`
	ProxyURL    string            `yaml:"proxy"`
	Cookies     string            `yaml:"cookies"`
	AuthHeader  string            `yaml:"auth"`
	UserAgent   string            `yaml:"user_agent"`
	Headers     map[string]string `yaml:"headers"`

	// Selection
	Fields    []string `yaml:"fields"`
	AllInputs bool     `yaml:"all_inputs"`
	Tests     []int    `yaml:"tests"`
	AllTests  bool     `yaml:"all_tests"`

	// Catalog
	Catalogs  []string `yaml:"catalogs"`
	NoBuiltin bool     `yaml:"no_builtin"`

	// Output
	OutputFile   string `yaml:"output"`
	OutputFormat string `yaml:"format"`
	ShowPanel    bool   `yaml:"show_panel"`
	Verbose      bool   `yaml:"verbose"`
	Silent       bool   `yaml:"silent"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *ScanConfig {
	return &ScanConfig{
		Engine:       surface.EngineHTTP,
		Timeout:      surface.DefaultTimeout,
		MaxInFlight:  0,
		MaxFailures:  DefaultMaxFailures,
		UserAgent:    surface.DefaultUserAgent,
		Headers:      make(map[string]string),
		OutputFormat: FormatJSON,
		ShowPanel:    true,
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*ScanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*ScanConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	return cfg, nil
}

// Validate checks the values a run depends on. The host URL is checked only
// when set, since listing commands may run before it is known.
func (c *ScanConfig) Validate() error {
	switch c.Engine {
	case surface.EngineHTTP, surface.EngineRod:
	default:
		return fmt.Errorf("%w: engine must be %q or %q, got %q",
			ErrInvalidConfig, surface.EngineHTTP, surface.EngineRod, c.Engine)
	}

	switch c.OutputFormat {
	case FormatJSON, FormatHTML, FormatMarkdown:
	case "markdown":
		c.OutputFormat = FormatMarkdown
	default:
		return fmt.Errorf("%w: format must be json, html or md, got %q", ErrInvalidConfig, c.OutputFormat)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxInFlight < 0 {
		return fmt.Errorf("%w: max-inflight cannot be negative", ErrInvalidConfig)
	}
	if c.MaxFailures < 0 {
		return fmt.Errorf("%w: max-failures cannot be negative", ErrInvalidConfig)
	}
	if c.Verbose && c.Silent {
		return fmt.Errorf("%w: verbose and silent are mutually exclusive", ErrInvalidConfig)
	}

	if c.ProxyURL != "" {
		if !strings.HasPrefix(c.ProxyURL, "http://") &&
			!strings.HasPrefix(c.ProxyURL, "https://") &&
			!strings.HasPrefix(c.ProxyURL, "socks5://") {
			return fmt.Errorf("%w: proxy URL must start with http://, https://, or socks5://", ErrInvalidConfig)
		}
	}

	for _, idx := range c.Tests {
		if idx < 0 {
			return fmt.Errorf("%w: test index %d is negative", ErrInvalidConfig, idx)
		}
	}

	if c.HostURL != "" {
		if err := ValidateHostURL(c.HostURL); err != nil {
			return err
		}
	}
	return nil
}

// ValidateHostURL accepts absolute http(s) URLs only.
func ValidateHostURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHostURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: URL must start with http:// or https://", ErrInvalidHostURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidHostURL)
	}
	return nil
}

// SurfaceOptions maps the config onto engine options.
func (c *ScanConfig) SurfaceOptions() surface.Options {
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	return surface.Options{
		Timeout:     c.Timeout,
		ProxyURL:    c.ProxyURL,
		Cookies:     c.Cookies,
		Headers:     headers,
		AuthHeader:  c.AuthHeader,
		UserAgent:   c.UserAgent,
		Visible:     c.Visible,
		BrowserPath: c.BrowserPath,
	}
}
