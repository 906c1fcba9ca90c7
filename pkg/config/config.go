package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	AdminToken                string        `koanf:"admin_token"`
	AudibleBaseURL            string        `koanf:"audible_base_url"`
	CircuitBreakerFailures    uint32        `koanf:"circuit_breaker_failures"`
	CircuitBreakerTimeout     time.Duration `koanf:"circuit_breaker_timeout"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	GoodreadsBaseURL          string        `koanf:"goodreads_base_url"`
	GoogleBooksBaseURL        string        `koanf:"google_books_base_url"`
	HTTPClientTimeout         time.Duration `koanf:"http_client_timeout"`
	HTTPMaxRetries            int           `koanf:"http_max_retries"`
	HTTPRateLimit             float64       `koanf:"http_rate_limit"`
	HTTPUserAgent             string        `koanf:"http_user_agent"`
	Hostname                  string        `koanf:"hostname"`
	OpenLibraryBaseURL        string        `koanf:"open_library_base_url"`
	OpenLibraryCoversURL      string        `koanf:"open_library_covers_url"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
	// Sources lists the catalog sources in the order their results are
	// concatenated and their enrichment passes run.
	Sources         []string `koanf:"sources"`
	WorkerProcesses int      `koanf:"worker_processes"`
	WorkerQueueSize int      `koanf:"worker_queue_size"`
}

const (
	environmentENV = "ENVIRONMENT"
	configFileENV  = "CONFIG_FILE"
)

// DefaultSources is the registration order of the built-in catalog sources.
var DefaultSources = []string{"google", "openlibrary", "audible", "goodreads"}

func defaults() *Config {
	return &Config{
		AudibleBaseURL:            "https://www.audible.com",
		CircuitBreakerFailures:    5,
		CircuitBreakerTimeout:     time.Minute,
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		GoodreadsBaseURL:          "https://www.goodreads.com",
		GoogleBooksBaseURL:        "https://www.googleapis.com",
		HTTPClientTimeout:         30 * time.Second,
		HTTPMaxRetries:            1,
		HTTPRateLimit:             2,
		HTTPUserAgent:             "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		OpenLibraryBaseURL:        "https://openlibrary.org",
		OpenLibraryCoversURL:      "https://covers.openlibrary.org",
		ServerHost:                "0.0.0.0",
		ServerPort:                5080,
		Sources:                   append([]string(nil), DefaultSources...),
		WorkerProcesses:           2,
		WorkerQueueSize:           64,
	}
}

// New layers the defaults, the environment profile, an optional YAML file and
// finally environment variables, in increasing order of precedence.
func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	base := defaults()
	base.Hostname = hostname

	switch os.Getenv(environmentENV) {
	case "development":
		loadDevelopmentConfig(base)
	case "test":
		loadTestConfig(base)
	case "production", "":
		loadProductionConfig(base)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(base, "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	path := os.Getenv(configFileENV)
	if path == "" {
		path = "config.yaml"
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	// Comma separated lists only arrive as plain strings from the environment.
	if raw, ok := k.Get("sources").(string); ok {
		if err := k.Set("sources", splitList(raw)); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.DatabaseFilePath == "" {
		return errors.New("missing required config: set DATABASE_FILE_PATH or database_file_path")
	}
	if cfg.WorkerProcesses < 1 {
		return errors.New("worker_processes must be at least 1")
	}
	if cfg.WorkerQueueSize < 1 {
		return errors.New("worker_queue_size must be at least 1")
	}
	if cfg.HTTPMaxRetries < 0 {
		return errors.New("http_max_retries can't be negative")
	}
	if cfg.HTTPRateLimit <= 0 {
		return errors.New("http_rate_limit must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
