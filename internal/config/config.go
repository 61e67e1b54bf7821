// Package config provides configuration types, defaults, and loading
// for openmime.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/eliteGoblin/openmime/internal/domain"
)

// RegexHandlerConfig defines one inline handler that claims paths/URLs
// by regex match instead of mime lookup.
type RegexHandlerConfig struct {
	Exec     string   `mapstructure:"exec"`     // command template, e.g. "freetube %u"
	Terminal bool     `mapstructure:"terminal"` // run inside a terminal emulator
	Regexes  []string `mapstructure:"regexes"`  // RE2 patterns, first handler with a match wins
}

// Config holds all local configuration options for openmime.
type Config struct {
	// EnableSelector turns on interactive disambiguation when a mime
	// resolves to more than one handler.
	EnableSelector bool `mapstructure:"enable_selector"`

	// Selector is the external command used to pick among tied
	// candidates. It reads newline-joined names on stdin and prints the
	// chosen name.
	Selector string `mapstructure:"selector"`

	// TermExecArgs is appended to the resolved terminal emulator's exec
	// string (most emulators need "-e" before the command to run).
	TermExecArgs string `mapstructure:"term_exec_args"`

	// Handlers are the configured regex handlers, in precedence order.
	Handlers []RegexHandlerConfig `mapstructure:"handlers"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		EnableSelector: false,
		Selector:       "rofi -dmenu -i -p 'Open With: '",
		TermExecArgs:   "-e",
	}
}

// DefaultConfigPath returns the config file location under the XDG
// config home.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "openmime", "config.yaml")
}

// Load reads the config file (or cfgFile when non-empty), creating a
// commented default file on first run. Missing keys fall back to
// defaults.
func Load(cfgFile string) (Config, error) {
	defaults := Defaults()
	v := viper.New()
	v.SetDefault("enable_selector", defaults.EnableSelector)
	v.SetDefault("selector", defaults.Selector)
	v.SetDefault("term_exec_args", defaults.TermExecArgs)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "openmime"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return defaults, fmt.Errorf("reading config: %w", err)
		}
		// First run - write the commented template and continue with
		// defaults.
		if writeErr := WriteDefaultConfig(DefaultConfigPath()); writeErr == nil {
			v.SetConfigFile(DefaultConfigPath())
			_ = v.ReadInConfig()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return defaults, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func Validate(cfg Config) error {
	if cfg.Selector == "" {
		return fmt.Errorf("selector must not be empty")
	}
	for i, h := range cfg.Handlers {
		if h.Exec == "" {
			return fmt.Errorf("handlers[%d]: exec is required", i)
		}
		if len(h.Regexes) == 0 {
			return fmt.Errorf("handlers[%d] (%s): at least one regex is required", i, h.Exec)
		}
	}
	return nil
}

// RegexSet compiles the configured regex handlers, preserving their
// precedence order.
func (c Config) RegexSet() (domain.RegexSet, error) {
	set := make(domain.RegexSet, 0, len(c.Handlers))
	for _, h := range c.Handlers {
		handler, err := domain.NewRegexHandler(h.Exec, h.Terminal, h.Regexes)
		if err != nil {
			return nil, err
		}
		set = append(set, handler)
	}
	return set, nil
}

// DefaultConfigTemplate returns the default config as a YAML string
// with comments.
func DefaultConfigTemplate() string {
	return `# openmime configuration

# Interactive selection when a mime type has several handlers.
# The selector command reads candidate names on stdin (one per line)
# and prints the chosen name on stdout; empty output cancels.
enable_selector: false
selector: "rofi -dmenu -i -p 'Open With: '"

# Extra arguments appended to the terminal emulator command when a
# Terminal=true application has to be wrapped (most emulators expect
# -e before the command to run).
term_exec_args: "-e"

# Regex handlers claim paths/URLs before any mime lookup happens.
# First handler with a matching regex wins.
# handlers:
#   - exec: "freetube %u"
#     regexes:
#       - '(https://)?(www\.)?youtu(be\.com|\.be)/*'
#   - exec: "nvim %f"
#     terminal: true
#     regexes:
#       - '.*\.conf$'
`
}

// WriteDefaultConfig creates a config file at the given path with
// default settings and comments. Creates the parent directory if it
// doesn't exist.
func WriteDefaultConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
