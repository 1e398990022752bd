package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendREST     = "rest"
	BackendTemporal = "temporal"

	DefaultScope = "workflow.decisions"
)

// Config holds all configuration for the approval bot
type Config struct {
	Slack    SlackConfig
	Engine   EngineConfig
	Server   ServerConfig
	Temporal TemporalConfig
	Redis    RedisConfig
}

// SlackConfig holds the chat platform credentials. AppToken selects Socket
// Mode; without it interactions arrive over HTTP and SigningSecret is needed.
type SlackConfig struct {
	BotToken      string
	SigningSecret string
	AppToken      string
}

func (s SlackConfig) SocketMode() bool { return s.AppToken != "" }

// EngineConfig holds the workflow engine and token endpoint settings
type EngineConfig struct {
	Backend      string
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
}

type ServerConfig struct {
	Port int
}

type TemporalConfig struct {
	HostPort  string
	Namespace string
	TaskQueue string
}

func (t TemporalConfig) Enabled() bool { return t.HostPort != "" }

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	InflightTTL time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "3000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cfg := &Config{
		Slack: SlackConfig{
			BotToken:      os.Getenv("SLACK_BOT_TOKEN"),
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
			AppToken:      os.Getenv("SLACK_APP_TOKEN"),
		},
		Engine: EngineConfig{
			Backend:      strings.ToLower(getEnvOrDefault("ENGINE_BACKEND", BackendREST)),
			BaseURL:      os.Getenv("WORKFLOW_BASE_URL"),
			TokenURL:     os.Getenv("TOKEN_URL"),
			ClientID:     os.Getenv("CLIENT_ID"),
			ClientSecret: os.Getenv("CLIENT_SECRET"), // No default for security
			Scope:        getEnvOrDefault("SCOPE", DefaultScope),
			Timeout:      time.Duration(getIntOrDefault("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Server: ServerConfig{
			Port: port,
		},
		Temporal: TemporalConfig{
			HostPort:  os.Getenv("TEMPORAL_HOSTPORT"),
			Namespace: getEnvOrDefault("TEMPORAL_NAMESPACE", "default"),
			TaskQueue: getEnvOrDefault("TEMPORAL_TASK_QUEUE", "APPROVAL_TASK_QUEUE"),
		},
		Redis: RedisConfig{
			Addr:        os.Getenv("REDIS_ADDR"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          getIntOrDefault("REDIS_DB", 0),
			InflightTTL: time.Duration(getIntOrDefault("INFLIGHT_TTL_SECONDS", 120)) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Slack.BotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	if !c.Slack.SocketMode() && c.Slack.SigningSecret == "" {
		return fmt.Errorf("SLACK_SIGNING_SECRET is required when SLACK_APP_TOKEN is not set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.Engine.Timeout < 10*time.Second {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be at least 10")
	}

	switch c.Engine.Backend {
	case BackendREST:
		var missing []string
		for _, kv := range [][2]string{
			{"WORKFLOW_BASE_URL", c.Engine.BaseURL},
			{"TOKEN_URL", c.Engine.TokenURL},
			{"CLIENT_ID", c.Engine.ClientID},
			{"CLIENT_SECRET", c.Engine.ClientSecret},
		} {
			if kv[1] == "" {
				missing = append(missing, kv[0])
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%s required for the rest engine backend", strings.Join(missing, ", "))
		}
	case BackendTemporal:
		if !c.Temporal.Enabled() {
			return fmt.Errorf("TEMPORAL_HOSTPORT is required for the temporal engine backend")
		}
	default:
		return fmt.Errorf("unknown ENGINE_BACKEND %q", c.Engine.Backend)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
