// Package config provides Viper-based hierarchical configuration management.
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	AI struct {
		Model          string  `mapstructure:"model" yaml:"model"`
		Temperature    float32 `mapstructure:"temperature" yaml:"temperature"`
		MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
		TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		APIKey         string  `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`

	Extraction struct {
		BatchThreshold int     `mapstructure:"batch_threshold" yaml:"batch_threshold"`
		ChunkSize      int     `mapstructure:"chunk_size" yaml:"chunk_size"`
		BatchDelay     float64 `mapstructure:"batch_delay" yaml:"batch_delay"`
	} `mapstructure:"extraction" yaml:"extraction"`

	Income struct {
		MinAmount float64 `mapstructure:"min_amount" yaml:"min_amount"`
	} `mapstructure:"income" yaml:"income"`

	Categorization struct {
		BatchSize  int     `mapstructure:"batch_size" yaml:"batch_size"`
		BatchDelay float64 `mapstructure:"batch_delay" yaml:"batch_delay"`
	} `mapstructure:"categorization" yaml:"categorization"`

	Validation struct {
		MaxSpendingRatio float64 `mapstructure:"max_spending_ratio" yaml:"max_spending_ratio"`
		SingleTxnRatio   float64 `mapstructure:"single_txn_ratio" yaml:"single_txn_ratio"`
		CategoryRatio    float64 `mapstructure:"category_ratio" yaml:"category_ratio"`
	} `mapstructure:"validation" yaml:"validation"`

	Output struct {
		Directory string `mapstructure:"directory" yaml:"directory"`
	} `mapstructure:"output" yaml:"output"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading:
// defaults, then an optional config file, then HESAPP_-prefixed environment
// variables. GEMINI_API_KEY is bound unprefixed.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.hesapp")
	v.AddConfigPath(".hesapp")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HESAPP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// A broken config file should not stop the run; defaults and env
			// vars still apply.
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind GEMINI_API_KEY environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.temperature", 0.1)
	v.SetDefault("ai.max_tokens", 8000)
	v.SetDefault("ai.timeout_seconds", 60)

	v.SetDefault("extraction.batch_threshold", 50)
	v.SetDefault("extraction.chunk_size", 30)
	v.SetDefault("extraction.batch_delay", 2.5)

	v.SetDefault("income.min_amount", 5000.0)

	v.SetDefault("categorization.batch_size", 50)
	v.SetDefault("categorization.batch_delay", 2.5)

	v.SetDefault("validation.max_spending_ratio", 1.0)
	v.SetDefault("validation.single_txn_ratio", 0.5)
	v.SetDefault("validation.category_ratio", 0.3)

	v.SetDefault("output.directory", "output")
}

// validateConfig validates the configuration values.
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.AI.Temperature < 0 || config.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2, got: %f", config.AI.Temperature)
	}

	if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
		return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
	}

	if config.Extraction.ChunkSize < 1 {
		return fmt.Errorf("extraction.chunk_size must be positive, got: %d", config.Extraction.ChunkSize)
	}

	if config.Categorization.BatchSize < 1 {
		return fmt.Errorf("categorization.batch_size must be positive, got: %d", config.Categorization.BatchSize)
	}

	if config.Income.MinAmount < 0 {
		return fmt.Errorf("income.min_amount must not be negative, got: %f", config.Income.MinAmount)
	}

	for name, ratio := range map[string]float64{
		"validation.max_spending_ratio": config.Validation.MaxSpendingRatio,
		"validation.single_txn_ratio":   config.Validation.SingleTxnRatio,
		"validation.category_ratio":     config.Validation.CategoryRatio,
	} {
		if ratio <= 0 {
			return fmt.Errorf("%s must be positive, got: %f", name, ratio)
		}
	}

	return nil
}

// ConfigureLoggingFromConfig builds a logrus logger from the Log section.
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
