package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration. Every field has an env or
// built-in fallback so the server also runs with no config file at all.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Nats struct {
		URL    string `yaml:"url"`
		Bucket string `yaml:"bucket"`
	} `yaml:"nats"`

	Content struct {
		CatalogPath string `yaml:"catalog_path"`
	} `yaml:"content"`

	Archive struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"archive"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Env vars win over the file.
	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Nats.URL = getEnv("NATS_URL", config.Nats.URL)
	config.Nats.Bucket = getEnv("NATS_BUCKET", config.Nats.Bucket)
	config.Content.CatalogPath = getEnv("CATALOG_PATH", config.Content.CatalogPath)
	config.Archive.Enabled = getEnvAsBool("ARCHIVE_ENABLED", config.Archive.Enabled)

	return config, nil
}

func defaultConfig() *Config {
	config := &Config{}
	config.Server.Port = "8080"
	config.Nats.URL = "nats://localhost:4222"
	config.Nats.Bucket = "HACKATHON_SESSIONS"
	config.Archive.Enabled = false
	return config
}
