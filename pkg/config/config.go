package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Queue     QueueConfig     `yaml:"queue"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logger    LoggerConfig    `yaml:"logger"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Mode        string `yaml:"mode"`          // debug, release
	AdminAPIKey string `yaml:"admin_api_key"` // bootstrap admin key, accepted before any users exist
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// QueueConfig fetch-cycle queue configuration
type QueueConfig struct {
	Concurrency  int `yaml:"concurrency"`   // worker concurrency; cycles for one date are serialized by the run lock regardless
	MaxRetry     int `yaml:"max_retry"`     // maximum retry count for a failed cycle task
	CycleTimeout int `yaml:"cycle_timeout"` // cycle timeout (seconds)
}

// ScraperConfig dashboard scraper configuration
type ScraperConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SchedulerConfig daily fetch scheduler configuration
type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CronSpec string `yaml:"cron_spec"` // defaults to "0 2 * * *"
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	if cfg.Scheduler.CronSpec == "" {
		cfg.Scheduler.CronSpec = "0 2 * * *"
	}
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = 1
	}
	if cfg.Queue.CycleTimeout <= 0 {
		cfg.Queue.CycleTimeout = 1800
	}

	GlobalConfig = &cfg
	return nil
}
