package config

// Package config provides a reusable loader for the relay's configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/rocklabs-io/omnic-relay/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a relay process. It
// mirrors the structure of the YAML files under config/.
type Config struct {
	Admin struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"admin" json:"admin"`

	Aggregator struct {
		FetchPeriodMS  int64 `mapstructure:"fetch_period_ms" json:"fetch_period_ms"`
		ConfirmBlocks  uint64 `mapstructure:"confirm_blocks" json:"confirm_blocks"`
		QueryRPCNumber int    `mapstructure:"query_rpc_number" json:"query_rpc_number"`
	} `mapstructure:"aggregator" json:"aggregator"`

	Signer struct {
		KeyName        string `mapstructure:"key_name" json:"key_name"`
		MaxRespBytes   int    `mapstructure:"max_resp_bytes" json:"max_resp_bytes"`
		CyclesPerByte  int    `mapstructure:"cycles_per_byte" json:"cycles_per_byte"`
		OptimisticSecs int64  `mapstructure:"optimistic_delay_secs" json:"optimistic_delay_secs"`
	} `mapstructure:"signer" json:"signer"`

	Storage struct {
		RootRetention int `mapstructure:"root_retention" json:"root_retention"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up matching process environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the RELAY_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("RELAY_ENV", ""))
}
