package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Reddit   RedditConfig   `yaml:"reddit"`
	Database DatabaseConfig `yaml:"database"`
	Media    MediaConfig    `yaml:"media"`
	Sync     SyncConfig     `yaml:"sync"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	LogLevel string         `yaml:"log_level"`
}

type RedditConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	UserAgent    string        `yaml:"user_agent"`
	RefreshToken string        `yaml:"refresh_token"`
	BaseURL      string        `yaml:"base_url"`
	TokenURL     string        `yaml:"token_url"`
	Timeout      time.Duration `yaml:"timeout"`
	Retry        RetryConfig   `yaml:"retry"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MediaConfig struct {
	Dir                    string        `yaml:"dir"`
	MaxSizeBytes           int64         `yaml:"max_size_bytes"`
	MaxConcurrentDownloads int           `yaml:"max_concurrent_downloads"`
	Timeout                time.Duration `yaml:"timeout"`
	Retry                  RetryConfig   `yaml:"retry"`
}

type SyncConfig struct {
	Interval     time.Duration `yaml:"interval"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	PostLimit    int           `yaml:"post_limit"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// RabbitMQConfig enables the ingest-event publisher when URL is set.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// Load reads the YAML config at path, expanding ${VAR} references from the
// environment (a .env file is loaded first if present). A missing config
// file is not an error; environment variables and defaults apply alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv maps the environment variables the original deployment used
// onto their config fields. Env values win over the YAML file.
func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	setString(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	setString(&c.Reddit.UserAgent, "REDDIT_USER_AGENT")
	setString(&c.Reddit.RefreshToken, "REDDIT_REFRESH_TOKEN")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Media.Dir, "MEDIA_DIR")

	if v := os.Getenv("MAX_MEDIA_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Media.MaxSizeBytes = n
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_DOWNLOADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Media.MaxConcurrentDownloads = n
		}
	}
}

func (c *Config) setDefaults() {
	if c.Reddit.BaseURL == "" {
		c.Reddit.BaseURL = "https://oauth.reddit.com"
	}
	if c.Reddit.TokenURL == "" {
		c.Reddit.TokenURL = "https://www.reddit.com/api/v1/access_token"
	}
	if c.Reddit.Timeout == 0 {
		c.Reddit.Timeout = 30 * time.Second
	}
	c.Reddit.Retry.setDefaults()

	if c.Database.Path == "" {
		c.Database.Path = "db.sqlite"
	}

	if c.Media.Dir == "" {
		c.Media.Dir = "media"
	}
	if c.Media.MaxSizeBytes == 0 {
		c.Media.MaxSizeBytes = 50 * 1024 * 1024
	}
	if c.Media.MaxConcurrentDownloads == 0 {
		c.Media.MaxConcurrentDownloads = 5
	}
	if c.Media.Timeout == 0 {
		c.Media.Timeout = 2 * time.Minute
	}
	c.Media.Retry.setDefaults()

	if c.Sync.Interval == 0 {
		c.Sync.Interval = 10 * time.Minute
	}
	if c.Sync.PostLimit == 0 {
		c.Sync.PostLimit = 100
	}

	if c.RabbitMQ.URL != "" {
		if c.RabbitMQ.Exchange == "" {
			c.RabbitMQ.Exchange = "redditsync"
		}
		if c.RabbitMQ.RoutingKey == "" {
			c.RabbitMQ.RoutingKey = "items"
		}
		if c.RabbitMQ.QueueName == "" {
			c.RabbitMQ.QueueName = "redditsync_items"
		}
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (r *RetryConfig) setDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = 1 * time.Second
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Reddit.ClientID == "" {
		return fmt.Errorf("missing required config: reddit client_id (REDDIT_CLIENT_ID)")
	}
	if c.Reddit.ClientSecret == "" {
		return fmt.Errorf("missing required config: reddit client_secret (REDDIT_CLIENT_SECRET)")
	}
	if c.Reddit.UserAgent == "" {
		return fmt.Errorf("missing required config: reddit user_agent (REDDIT_USER_AGENT)")
	}
	return nil
}
