package config

// Package config provides a reusable loader for symbograft configuration
// files and environment variables. It is versioned so that applications
// can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"symbograft/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a symbograft run. It mirrors
// the structure of the YAML files under config/.
type Config struct {
	Analysis struct {
		// CandidateThreshold caps how many finder candidates go to the
		// interactive prompt before refinement kicks in.
		CandidateThreshold int `mapstructure:"candidate_threshold" json:"candidate_threshold"`
	} `mapstructure:"analysis" json:"analysis"`

	Paths struct {
		// BindsFile is the default output for the bind database.
		BindsFile string `mapstructure:"binds_file" json:"binds_file"`
	} `mapstructure:"paths" json:"paths"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned. A missing config file is not an error; the defaults below
// apply.
func Load(env string) (*Config, error) {
	viper.SetDefault("analysis.candidate_threshold", 10)
	viper.SetDefault("paths.binds_file", "symbols.symdb")
	viper.SetDefault("logging.level", "info")

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
			}
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SYMBO_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SYMBO_ENV", ""))
}
