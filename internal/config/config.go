package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DiscordConfig holds Discord bot credentials
type DiscordConfig struct {
	Token string `yaml:"token"`
	AppID string `yaml:"app_id"`
}

// Config holds all application configuration
type Config struct {
	Discord           DiscordConfig
	DBPath            string
	StaticDir         string
	SettingsDir       string
	Port              string
	HordeURL          string
	HordePollInterval time.Duration
	HordePollTimeout  time.Duration
	RequestTimeout    time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("settings_dir", "settings")
	v.SetDefault("db_path", "data/app.db")
	v.SetDefault("static_dir", "static")
	v.SetDefault("port", "8080")
	v.SetDefault("horde_url", "https://aihorde.net/api")
	v.SetDefault("horde_poll_interval", 5*time.Second)
	v.SetDefault("horde_poll_timeout", 5*time.Minute)
	v.SetDefault("request_timeout", 2*time.Minute)
}

// Load reads configuration from the environment and, when configFile is not
// empty, from that file. Environment variables win over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
	}

	cfg := &Config{
		DBPath:            v.GetString("db_path"),
		StaticDir:         v.GetString("static_dir"),
		SettingsDir:       v.GetString("settings_dir"),
		Port:              v.GetString("port"),
		HordeURL:          v.GetString("horde_url"),
		HordePollInterval: v.GetDuration("horde_poll_interval"),
		HordePollTimeout:  v.GetDuration("horde_poll_timeout"),
		RequestTimeout:    v.GetDuration("request_timeout"),
	}

	discordCfg, err := loadDiscordConfig(filepath.Join(cfg.SettingsDir, "secrets", "discord.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Discord = *discordCfg

	return cfg, nil
}

// loadDiscordConfig loads Discord credentials from a YAML file. A missing
// file yields empty credentials.
func loadDiscordConfig(path string) (*DiscordConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &DiscordConfig{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var cfg DiscordConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	return &cfg, nil
}
