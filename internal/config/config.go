package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Auth        AuthConfig                `json:"auth"`
	Redis       RedisConfig               `json:"redis"`
	Databases   map[string]DatabaseConfig `json:"databases"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	// PublicBaseURL prefixes generated share links (TEMP_FILE_URL).
	PublicBaseURL string `json:"public_base_url"`
	// Provider selects the generation backend: gemini, openai or claude.
	Provider string `json:"provider"`
	// ActivityDB names the Databases entry used for the activity log; empty disables it.
	ActivityDB string `json:"activity_db"`
	// ActivityRetentionDays bounds how long activity rows are kept; 0 means 30 days.
	ActivityRetentionDays int `json:"activity_retention_days"`
	// MaxGenerations caps concurrent upstream generations; 0 means unlimited.
	MaxGenerations int `json:"max_generations"`
	// GenerationWait is how long (seconds) a request may wait for a free generation slot.
	GenerationWait int `json:"generation_wait"`
	// GenerationTimeout bounds one generation call (seconds); 0 means no timeout.
	GenerationTimeout int      `json:"generation_timeout"`
	AllowedOrigins    []string `json:"allowed_origins"`
	LogLevel          string   `json:"log_level"`
	LogFormat         string   `json:"log_format"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	// Model serves code generation, output explanation, refactors and prompt suggestions.
	Model string `json:"model"`
	// WebModel serves the html/css/js generation and refactor routes.
	WebModel string `json:"web_model"`
	APIKey   string `json:"api_key"`
}

type AuthConfig struct {
	JWTSecret          string  `json:"jwt_secret"`
	RecaptchaSecret    string  `json:"recaptcha_secret"`
	RecaptchaVerifyURL string  `json:"recaptcha_verify_url"`
	RecaptchaMinScore  float64 `json:"recaptcha_min_score"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	TLS      bool   `json:"tls"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

const (
	DefaultServerAddress     = ":8090"
	DefaultProvider          = "gemini"
	DefaultRecaptchaVerify   = "https://www.google.com/recaptcha/api/siteverify"
	DefaultRecaptchaMinScore = 0.5
)

// Load reads configuration from the provided path (defaults to config.json)
// and applies environment overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "config.json"
	}

	cfg := &Config{}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		for name, db := range cfg.Databases {
			if db.DSN != "" && db.DSN != ":memory:" && isSQLite(name) && !filepath.IsAbs(db.DSN) {
				db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
				cfg.Databases[name] = db
			}
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	num := func(dst *int, key string) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	str(&c.BasicConfig.ServerAddress, "ONLINE_IDE_ADDR")
	str(&c.BasicConfig.PublicBaseURL, "TEMP_FILE_URL")
	str(&c.BasicConfig.Provider, "ONLINE_IDE_PROVIDER")
	str(&c.BasicConfig.LogLevel, "LOG_LEVEL")
	str(&c.BasicConfig.LogFormat, "LOG_FORMAT")
	num(&c.BasicConfig.MaxGenerations, "MAX_GENERATIONS")
	str(&c.BasicConfig.ActivityDB, "ONLINE_IDE_ACTIVITY_DB")

	provider := c.BasicConfig.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	prov := c.Providers[provider]
	if provider == DefaultProvider {
		str(&prov.Model, "GEMINI_MODEL")
		str(&prov.WebModel, "GEMINI_MODEL_1")
		str(&prov.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	c.Providers[provider] = prov

	str(&c.Auth.JWTSecret, "JWT_SECRET")
	str(&c.Auth.RecaptchaSecret, "RECAPTCHA_SECRET_KEY")

	str(&c.Redis.Host, "REDIS_HOST")
	num(&c.Redis.Port, "REDIS_PORT")
	str(&c.Redis.Password, "REDIS_PASSWORD")
	if v, ok := lookup("REDIS_TLS"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Redis.TLS = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = DefaultServerAddress
	}
	if c.BasicConfig.Provider == "" {
		c.BasicConfig.Provider = DefaultProvider
	}
	c.BasicConfig.PublicBaseURL = strings.TrimRight(c.BasicConfig.PublicBaseURL, "/")
	if c.Auth.RecaptchaVerifyURL == "" {
		c.Auth.RecaptchaVerifyURL = DefaultRecaptchaVerify
	}
	if c.Auth.RecaptchaMinScore <= 0 {
		c.Auth.RecaptchaMinScore = DefaultRecaptchaMinScore
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "127.0.0.1"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	prov := c.Providers[c.BasicConfig.Provider]
	if prov.WebModel == "" {
		prov.WebModel = prov.Model
		c.Providers[c.BasicConfig.Provider] = prov
	}
}

// Validate reports configuration that would make the gateway fail closed on every request.
func (c *Config) Validate() error {
	var problems []string
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "jwt_secret (JWT_SECRET) must be configured")
	}
	if c.Auth.RecaptchaSecret == "" {
		problems = append(problems, "recaptcha_secret (RECAPTCHA_SECRET_KEY) must be configured")
	}
	prov, ok := c.Providers[c.BasicConfig.Provider]
	if !ok || prov.Model == "" {
		problems = append(problems, fmt.Sprintf("model for provider %s must be configured", c.BasicConfig.Provider))
	}
	if c.BasicConfig.PublicBaseURL == "" {
		problems = append(problems, "public_base_url (TEMP_FILE_URL) must be configured")
	}
	if c.BasicConfig.ActivityDB != "" {
		if _, ok := c.Databases[c.BasicConfig.ActivityDB]; !ok {
			problems = append(problems, fmt.Sprintf("database config for %s not found", c.BasicConfig.ActivityDB))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Provider returns the active provider name and its settings.
func (c *Config) Provider() (string, ProviderConfig) {
	return c.BasicConfig.Provider, c.Providers[c.BasicConfig.Provider]
}

// GenerationTimeout returns the per-call timeout, zero when unbounded.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.BasicConfig.GenerationTimeout) * time.Second
}

// ActivityRetention returns how long activity rows are kept.
func (c *Config) ActivityRetention() time.Duration {
	if c.BasicConfig.ActivityRetentionDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.BasicConfig.ActivityRetentionDays) * 24 * time.Hour
}

// GenerationWait returns how long a request may queue for a generation slot.
func (c *Config) GenerationWait() time.Duration {
	if c.BasicConfig.GenerationWait <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.BasicConfig.GenerationWait) * time.Second
}

func isSQLite(name string) bool {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return true
	default:
		return false
	}
}
