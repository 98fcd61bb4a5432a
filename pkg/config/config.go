// Package config provides a reusable loader for nexium node configuration
// files and environment variable overrides. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jean-voila/nexium/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the on-disk config.json schema plus the additive Network
// section SPEC_FULL.md introduces for peer-mesh bootstrap.
type Config struct {
	Database      string `mapstructure:"database" json:"database"`
	Key           string `mapstructure:"key" json:"key"`
	Port          int    `mapstructure:"port" json:"port"`
	UserID        string `mapstructure:"user_id" json:"user_id"`
	GitlabToken   string `mapstructure:"gitlab_token" json:"gitlab_token"`
	GitlabAPIURL  string `mapstructure:"gitlab_api_url" json:"gitlab_api_url"`

	Network struct {
		Address        string   `mapstructure:"address" json:"address"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
	} `mapstructure:"network" json:"network"`
}

// AppConfig holds the configuration loaded via Load.
var AppConfig Config

// Load reads config.json from path, then overlays NEXIUM_-prefixed
// environment variables (and a local .env file, via godotenv, for
// development convenience). The resulting configuration is stored in
// AppConfig and returned.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, fmt.Sprintf("load config %s", path))
	}
	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}

	AppConfig.Database = utils.EnvOrDefault("NEXIUM_DATABASE", AppConfig.Database)
	AppConfig.Key = utils.EnvOrDefault("NEXIUM_KEY", AppConfig.Key)
	AppConfig.Port = utils.EnvOrDefaultInt("NEXIUM_PORT", AppConfig.Port)
	AppConfig.UserID = utils.EnvOrDefault("NEXIUM_USER_ID", AppConfig.UserID)
	AppConfig.GitlabToken = utils.EnvOrDefault("NEXIUM_GITLAB_TOKEN", AppConfig.GitlabToken)
	AppConfig.GitlabAPIURL = utils.EnvOrDefault("NEXIUM_GITLAB_API_URL", AppConfig.GitlabAPIURL)
	AppConfig.Network.Address = utils.EnvOrDefault("NEXIUM_NETWORK_ADDRESS", AppConfig.Network.Address)

	if AppConfig.Port == 0 {
		AppConfig.Port = defaultPort
	}
	return &AppConfig, nil
}

// defaultPort mirrors core.DefaultPort without importing core, keeping this
// package free of a dependency on the domain model it merely configures.
const defaultPort = 4242
