package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Server    ServerConfig    `koanf:"server"`
	Registry  RegistryConfig  `koanf:"registry"`
	Router    RouterConfig    `koanf:"router"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	TaskStore  string `koanf:"task_store"` // memory, sqlite
	SQLitePath string `koanf:"sqlite_path"`
}

type RegistryConfig struct {
	BootstrapEndpoints []string `koanf:"bootstrap_endpoints"`
	Manifest           string   `koanf:"manifest"`
}

type RouterConfig struct {
	DefaultAgent string        `koanf:"default_agent"`
	Forward      ForwardConfig `koanf:"forward"`
}

type ForwardConfig struct {
	PollInterval       time.Duration `koanf:"poll_interval"`
	MaxAttempts        int           `koanf:"max_attempts"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	BreakerMaxFailures int           `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// Global k instance
var k = koanf.New(".")

func Load(path string) (*Config, error) {
	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("telemetry.exporter", "stdout")
	k.Set("telemetry.otlp_endpoint", "localhost:4317")
	k.Set("telemetry.otlp_insecure", true)

	k.Set("server.host", "0.0.0.0")
	k.Set("server.port", 8000)
	k.Set("server.task_store", "memory")
	k.Set("server.sqlite_path", "switchyard.db")

	k.Set("router.default_agent", "argocd")
	k.Set("router.forward.poll_interval", "1s")
	k.Set("router.forward.max_attempts", 30)
	k.Set("router.forward.request_timeout", "30s")
	k.Set("router.forward.breaker_max_failures", 5)
	k.Set("router.forward.breaker_timeout", "30s")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (SWITCHYARD_SERVER_PORT -> server.port)
	if err := k.Load(env.Provider("SWITCHYARD_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "SWITCHYARD_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
