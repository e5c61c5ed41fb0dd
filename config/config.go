package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/wfunc/rpsserver/rules"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
}

type GameConfig struct {
	DefaultRules      string        `mapstructure:"default_rules"`
	BotFillDelay      time.Duration `mapstructure:"bot_fill_delay"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("game.default_rules", "classic")
	v.SetDefault("game.bot_fill_delay", "0s")
	v.SetDefault("game.heartbeat_interval", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads config.yaml from path. A missing file or .env is fine;
// RPS_* environment variables override file values.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if _, ok := rules.Lookup(c.Game.DefaultRules); !ok {
		return fmt.Errorf("%w: unknown rules %q, expected one of %v", ErrInvalidConfig, c.Game.DefaultRules, rules.PresetNames())
	}
	if c.Game.BotFillDelay < 0 {
		return fmt.Errorf("%w: negative bot_fill_delay", ErrInvalidConfig)
	}
	if c.Game.HeartbeatInterval < 0 {
		return fmt.Errorf("%w: negative heartbeat_interval", ErrInvalidConfig)
	}
	return nil
}

// DefaultRules resolves the configured preset.
func (c *Config) DefaultRules() *rules.RuleSet {
	rs, ok := rules.Lookup(c.Game.DefaultRules)
	if !ok {
		return rules.Default
	}
	return rs
}
