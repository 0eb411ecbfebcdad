package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitewalker"

	// DefaultRequestInterval is the minimum gap between two outbound requests.
	// Every document and resource fetch waits on the same limiter.
	DefaultRequestInterval = 1500 * time.Millisecond

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (compatible; sitewalker/1.0; +https://github.com/nao1215/sitewalker)"

	// DefaultMaxBodySize limits how many bytes are read from one response.
	DefaultMaxBodySize = 32 * 1024 * 1024 // 32MB

	// DefaultSteps is the number of steps the run command performs.
	DefaultSteps = 1
)

// Config holds process-wide options for sitewalker.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// DBDir is the directory holding the SQLite database file.
	// Defaults to the XDG data directory (~/.local/share/sitewalker on Linux).
	DBDir string

	// DownloadDir is the root under which the image processor stores files.
	// Files land in <DownloadDir>/<site title>/<group title>/<name>.
	DownloadDir string

	// RequestInterval is the fixed minimum interval between HTTP requests.
	// Zero disables throttling, which is only sensible against local servers.
	RequestInterval time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		DBDir:           XDGDataDir(),
		DownloadDir:     filepath.Join(XDGDataDir(), "downloads"),
		RequestInterval: DefaultRequestInterval,
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for sitewalker.
// On Linux: ~/.local/share/sitewalker
// On macOS: ~/Library/Application Support/sitewalker
// On Windows: %LOCALAPPDATA%\sitewalker
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.DBDir == "" {
		return ErrNoDBDir
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestInterval < 0 {
		return ErrInvalidInterval
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
