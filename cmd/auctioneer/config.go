package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/draftroom/auctioneer/internal/auth"
)

// Config is the coordinator's YAML configuration.
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Auction struct {
		StartingBudget string `yaml:"starting_budget"`
	} `yaml:"auction"`
	Catalog struct {
		Source string `yaml:"source"` // "yaml" or "postgres"
		Path   string `yaml:"path"`   // catalog file for the yaml source
	} `yaml:"catalog"`
	Users []auth.User `yaml:"users"`
	NATS  struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

// DatabaseConfig holds the Postgres connection settings for the catalog
// source, filled from the environment.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Auction.StartingBudget == "" {
		config.Auction.StartingBudget = "100"
	}
	if config.Catalog.Source == "" {
		config.Catalog.Source = "yaml"
	}
	if len(config.Users) == 0 {
		return nil, fmt.Errorf("config must define at least one user")
	}

	return &config, nil
}
