package config

import (
	"os"
	"strconv"
	"time"
)

func loadDevelopmentConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.AdminToken = "development"
	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data.sqlite"
	cfg.ServerHost = "127.0.0.1"
}

func loadTestConfig(cfg *Config) {
	cfg.AdminToken = "test"
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.ServerHost = "127.0.0.1"
	cfg.WorkerProcesses = 1
}

func loadProductionConfig(_ *Config) {}

// NewForTest returns a configuration suitable for unit tests without reading
// the environment or the filesystem.
func NewForTest() *Config {
	cfg := defaults()
	loadTestConfig(cfg)
	cfg.HTTPClientTimeout = 5 * time.Second
	cfg.HTTPMaxRetries = 0
	cfg.HTTPRateLimit = 1000
	return cfg
}
