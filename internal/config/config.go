package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL     string `yaml:"url"`
		Migrate bool   `yaml:"migrate"`
	} `yaml:"database"`
	Model struct {
		Dir string `yaml:"dir"`
	} `yaml:"model"`
	Trainer struct {
		LR               float64 `yaml:"lr"`
		Epoch            int     `yaml:"epoch"`
		IncrementalEpoch int     `yaml:"incremental_epoch"`
		WordNGrams       int     `yaml:"word_ngrams"`
		Dim              int     `yaml:"dim"`
	} `yaml:"trainer"`
	Watcher struct {
		IntervalSeconds      int64 `yaml:"interval_seconds"`
		NewExamplesThreshold int   `yaml:"new_examples_threshold"`
	} `yaml:"watcher"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

// applyDefaults fills the compatibility defaults: trainer values must
// match the profiles the prediction consumers were tuned against.
func (c *Config) applyDefaults() {
	if c.Model.Dir == "" {
		c.Model.Dir = "models"
	}
	if c.Trainer.LR == 0 {
		c.Trainer.LR = 0.5
	}
	if c.Trainer.Epoch == 0 {
		c.Trainer.Epoch = 100
	}
	if c.Trainer.IncrementalEpoch == 0 {
		c.Trainer.IncrementalEpoch = 5
	}
	if c.Trainer.WordNGrams == 0 {
		c.Trainer.WordNGrams = 2
	}
	if c.Trainer.Dim == 0 {
		c.Trainer.Dim = 100
	}
	if c.Watcher.IntervalSeconds == 0 {
		c.Watcher.IntervalSeconds = 30
	}
	if c.Watcher.NewExamplesThreshold == 0 {
		c.Watcher.NewExamplesThreshold = 5
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
}
