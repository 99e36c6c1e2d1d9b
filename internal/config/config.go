package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for the bridge.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Discord  DiscordConfig  `json:"discord"`
	Telegram TelegramConfig `json:"telegram"`
	Relay    RelayConfig    `json:"relay"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

type DiscordConfig struct {
	Token      string `json:"token"`
	ChannelID  string `json:"channelId"`
	WebhookURL string `json:"webhookUrl"`
}

type TelegramConfig struct {
	Token               string `json:"token"`
	ChatID              int64  `json:"chatId"`
	PollTimeoutSeconds  int    `json:"pollTimeoutSeconds"`
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
	BackoffSeconds      int    `json:"backoffSeconds"`
}

type RelayConfig struct {
	// CorrelatePolicy picks which sent unit a multi-part message maps to:
	// "last" keeps only the final unit, "all" keeps every unit.
	CorrelatePolicy string `json:"correlatePolicy"`
	HistoryEnabled  bool   `json:"historyEnabled"`
	HistoryDBPath   string `json:"historyDbPath,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// DefaultConfigDir returns the default config directory (~/.chatbridge).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatbridge"
	}
	return filepath.Join(home, ".chatbridge")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Relay.HistoryDBPath = ExpandPath(cfg.Relay.HistoryDBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	switch cfg.Relay.CorrelatePolicy {
	case "last", "all":
		// valid
	default:
		errs = append(errs, "relay.correlatePolicy must be one of: last, all")
	}
	if cfg.Relay.HistoryEnabled && cfg.Relay.HistoryDBPath == "" {
		errs = append(errs, "relay.historyDbPath is required when relay.historyEnabled is true")
	}

	if cfg.Telegram.PollTimeoutSeconds < 0 || cfg.Telegram.PollTimeoutSeconds > 50 {
		errs = append(errs, "telegram.pollTimeoutSeconds must be between 0 and 50")
	}
	if cfg.Telegram.PollIntervalSeconds < 0 {
		errs = append(errs, "telegram.pollIntervalSeconds must be >= 0")
	}
	if cfg.Telegram.BackoffSeconds < 1 {
		errs = append(errs, "telegram.backoffSeconds must be >= 1")
	}

	if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
		errs = append(errs, "metrics.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateRuntime additionally requires the credentials a live run needs.
// Load skips these so offline commands can still read partial configs.
func ValidateRuntime(cfg *Config) error {
	var errs []string

	if cfg.Discord.Token == "" {
		errs = append(errs, "discord.token is required")
	}
	if cfg.Discord.ChannelID == "" {
		errs = append(errs, "discord.channelId is required")
	}
	if cfg.Discord.WebhookURL == "" {
		errs = append(errs, "discord.webhookUrl is required")
	}
	if cfg.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required")
	}
	if cfg.Telegram.ChatID == 0 {
		errs = append(errs, "telegram.chatId is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
