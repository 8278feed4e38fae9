package tictactoe

import (
	"os"

	"github.com/iguagile/iguagile-tictactoe/data"
	"github.com/iguagile/iguagile-tictactoe/game"
	"github.com/iguagile/iguagile-tictactoe/pdu"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// Config is the server configuration.
type Config struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Websocket      bool   `yaml:"websocket"`
	AdminAddr      string `yaml:"admin_addr"`
	RedisAddr      string `yaml:"redis_addr"`
	MaxClients     int    `yaml:"max_clients"`
	MaxGames       int    `yaml:"max_games"`
	MaxMessageSize int    `yaml:"max_message_size"`
	SendQueue      int    `yaml:"send_queue"`
	LogLevel       string `yaml:"log_level"`
}

// ErrInvalidConfig reports a configuration value out of range.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		MaxClients:     100,
		MaxGames:       100,
		MaxMessageSize: 2048,
		SendQueue:      64,
		LogLevel:       "info",
	}
}

// LoadConfig reads a yaml file over the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrap(err, "read config")
	}

	if err := yaml.UnmarshalStrict(b, &config); err != nil {
		return config, errors.Wrap(err, "parse config")
	}

	return config, config.Validate()
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return errors.Wrapf(ErrInvalidConfig, "port %d", c.Port)
	case c.MaxClients < 1:
		return errors.Wrapf(ErrInvalidConfig, "max_clients %d", c.MaxClients)
	case c.MaxGames < 1 || c.MaxGames > game.MaxGames:
		return errors.Wrapf(ErrInvalidConfig, "max_games %d must be 1-%d", c.MaxGames, game.MaxGames)
	case c.MaxMessageSize < 2+data.MaxNameLength || c.MaxMessageSize > pdu.MaxPayloadSize:
		return errors.Wrapf(ErrInvalidConfig, "max_message_size %d", c.MaxMessageSize)
	case c.SendQueue < 1:
		return errors.Wrapf(ErrInvalidConfig, "send_queue %d", c.SendQueue)
	case c.Websocket && c.AdminAddr == "":
		return errors.Wrap(ErrInvalidConfig, "websocket needs admin_addr")
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log_level %q", c.LogLevel)
	}
	return nil
}

// NewLogger builds the production logger at the configured level.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "log_level %q", c.LogLevel)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
