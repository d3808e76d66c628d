package chatline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config controls how the client connects.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://localhost:3030/ws".
	URL string `mapstructure:"url" yaml:"url"`

	// RESTBaseURL is the base for the request/response endpoints
	// (online users, room backlog), e.g. "http://localhost:3030".
	RESTBaseURL string `mapstructure:"rest_base_url" yaml:"rest_base_url"`

	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// ConfirmTimeout bounds how long a submitted identity may stay
	// unconfirmed before the session reverts to anonymous. Zero keeps
	// the client waiting indefinitely, which is what the protocol
	// itself does: the server never sends an explicit rejection.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" yaml:"confirm_timeout"`
}

// DefaultConfig returns sensible defaults. Set a timeout to 0 to
// disable it.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      0,
		WriteTimeout:     10 * time.Second,
		ConfirmTimeout:   0,
	}
}

const (
	envConfigDefaultPath = "CHATLINE_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "chatline.yaml"
)

// LoadConfig builds configuration from defaults, an optional yaml file,
// and CHATLINE_* env vars, returning the resolved file path.
// Precedence: defaults < config file < env vars.
func LoadConfig(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("url", cfg.URL)
	v.SetDefault("rest_base_url", cfg.RESTBaseURL)
	v.SetDefault("handshake_timeout", cfg.HandshakeTimeout)
	v.SetDefault("read_timeout", cfg.ReadTimeout)
	v.SetDefault("write_timeout", cfg.WriteTimeout)
	v.SetDefault("confirm_timeout", cfg.ConfirmTimeout)

	v.SetEnvPrefix("CHATLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
