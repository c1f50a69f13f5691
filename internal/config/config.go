// Package config loads server settings from a YAML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/david/scholar-match/internal/matching"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	Env      string          `yaml:"env"`
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Ollama   OllamaConfig    `yaml:"ollama"`
	Matching matching.Config `yaml:"matching"`
	Cache    CacheConfig     `yaml:"cache"`
	Auth     AuthConfig      `yaml:"auth"`
	Log      LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type OllamaConfig struct {
	Host        string  `yaml:"host"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

type CacheConfig struct {
	Backend  string        `yaml:"backend"`
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
	Redis    RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	AdminSecret string        `yaml:"admin_secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Port:            "8080",
			CORSOrigins:     []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{MaxConns: 10},
		Ollama: OllamaConfig{
			Host:        "http://localhost:11434",
			Model:       "llama3.1:8b",
			Temperature: 0.2,
		},
		Matching: matching.DefaultConfig(),
		Cache: CacheConfig{
			Backend:  CacheBackendMemory,
			Capacity: 1024,
			TTL:      6 * time.Hour,
			Prefix:   "matches:",
		},
		Auth: AuthConfig{TokenTTL: 24 * time.Hour},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads .env (if present), then path (if non-empty and present), expanding ${VAR}
// references, then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := Parse([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML over cfg, leaving unset keys at their current values.
func Parse(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("APP_ENV"); ok && v != "" {
		cfg.Env = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		cfg.Server.Port = v
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		cfg.Database.URL = v
	}
	if v, ok := lookup("OLLAMA_HOST"); ok && v != "" {
		cfg.Ollama.Host = v
	}
	if v, ok := lookup("OLLAMA_MODEL"); ok && v != "" {
		cfg.Ollama.Model = v
	}
	if v, ok := lookup("JWT_SECRET"); ok && v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := lookup("ADMIN_SECRET"); ok && v != "" {
		cfg.Auth.AdminSecret = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		cfg.Cache.Redis.Addr = v
		cfg.Cache.Backend = CacheBackendRedis
	}
	if v, ok := lookup("REDIS_PASSWORD"); ok {
		cfg.Cache.Redis.Password = v
	}
	if v, ok := lookup("MATCH_TIMEOUT"); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Matching.Timeout = d
		}
	}
	if v, ok := lookup("MATCH_MIN_SCORE"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matching.MinScore = n
		}
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Matching.Timeout <= 0 {
		errs = append(errs, errors.New("matching.timeout must be positive"))
	}
	if c.Matching.MinScore < matching.ScoreFloor || c.Matching.MinScore > 100 {
		errs = append(errs, fmt.Errorf("matching.min_score must be within [%d,100], got %d", matching.ScoreFloor, c.Matching.MinScore))
	}
	if c.Matching.MaxResults < 0 {
		errs = append(errs, errors.New("matching.max_results must not be negative"))
	}
	fb := c.Matching.Fallback
	if fb.Score < c.Matching.MinScore || fb.Score > 100 {
		errs = append(errs, fmt.Errorf("matching.fallback.score must be within [min_score,100], got %d", fb.Score))
	}
	if fb.Limit < 0 {
		errs = append(errs, errors.New("matching.fallback.limit must not be negative"))
	}
	switch c.Cache.Backend {
	case CacheBackendMemory:
		if c.Cache.Capacity <= 0 {
			errs = append(errs, errors.New("cache.capacity must be positive for the memory backend"))
		}
	case CacheBackendRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, c.Cache.Backend))
	}
	return errors.Join(errs...)
}
