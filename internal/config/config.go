package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"slices"

	"github.com/peterbourgon/ff/v4"
	"go.uber.org/zap/zapcore"
)

// EnvVarPrefix is prepended to flag names to form environment variables,
// e.g. -system-prompt is read from GRAMMAR_SYSTEM_PROMPT.
const EnvVarPrefix = "GRAMMAR"

// ErrHelp is returned by Load when -h or -help was requested.
var ErrHelp = ff.ErrHelp

// Config holds all application configuration
type Config struct {
	// Ollama settings
	OllamaURL    string
	ModelName    string
	SystemPrompt string

	// Web settings
	Serve      bool
	ListenAddr string

	// Terminal settings
	ShowThinking bool

	LogLevel string
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		OllamaURL:  "http://localhost:11434",
		ListenAddr: "127.0.0.1:5173",
		LogLevel:   "info",
	}
}

// BindFlags registers the configuration fields on fs
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ModelName, "model", c.ModelName, "Ollama model name; submissions are ignored while empty")
	fs.StringVar(&c.SystemPrompt, "system-prompt", c.SystemPrompt, "System instruction sent with every request")
	fs.StringVar(&c.OllamaURL, "api-host", c.OllamaURL, "Ollama host that requests and the /api proxy are forwarded to")
	fs.BoolVar(&c.Serve, "serve", c.Serve, "Serve the web form instead of the terminal prompt")
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "Address of the web server")
	fs.BoolVar(&c.ShowThinking, "show-thinking", c.ShowThinking, "Echo the model thinking section in the terminal")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log verbosity debug | info | warn | error")
}

// Load resolves the configuration from args and GRAMMAR_* environment
// variables. Flags take precedence over the environment.
func Load(name string, args []string) (*Config, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	cfg := NewConfig()
	cfg.BindFlags(fs)

	if err := ff.Parse(fs, slices.Clone(args), ff.WithEnvVarPrefix(EnvVarPrefix)); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			return nil, fs, ErrHelp
		}
		return nil, fs, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fs, err
	}

	return cfg, fs, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OllamaURL == "" {
		return fmt.Errorf("api host cannot be empty")
	}
	u, err := url.Parse(c.OllamaURL)
	if err != nil {
		return fmt.Errorf("invalid api host %q: %w", c.OllamaURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api host %q must be an http(s) URL", c.OllamaURL)
	}
	if c.Serve && c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// Target returns the parsed Ollama host
func (c *Config) Target() *url.URL {
	u, _ := url.Parse(c.OllamaURL)
	return u
}
