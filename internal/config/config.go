// Package config loads application settings from configs/config.yml with
// APP_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"devsecops_api/internal/auth"
	"devsecops_api/internal/dbx"
	"devsecops_api/internal/logger"
	"devsecops_api/internal/ratelimit"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"

	// envPrefix maps jwt.secret to APP_JWT_SECRET.
	envPrefix = "APP"

	minSecretBytes = 32
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Port      string          `mapstructure:"port"`
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Password  PasswordConfig  `mapstructure:"password"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DBConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type PasswordConfig struct {
	Algorithm        string `mapstructure:"algorithm"`
	PBKDF2Iterations int    `mapstructure:"pbkdf2_iterations"`
	BcryptCost       int    `mapstructure:"bcrypt_cost"`
}

type RateLimitConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Backend       string `mapstructure:"backend"`
	Register      string `mapstructure:"register"`
	Login         string `mapstructure:"login"`
	ProfileUpdate string `mapstructure:"profile_update"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type ServerConfig struct {
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	HSTSMaxAge        time.Duration `mapstructure:"hsts_max_age"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
}

type SwaggerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var defaults = map[string]any{
	"env":                        EnvDevelopment,
	"port":                       "8080",
	"app.name":                   "devsecops-api",
	"app.version":                "1.0.0",
	"log.level":                  logger.InfoLevel,
	"log.format":                 logger.FormatConsole,
	"db.driver":                  "sqlite",
	"db.dsn":                     "app.db",
	"db.max_open_conns":          10,
	"jwt.secret":                 "",
	"jwt.issuer":                 "devsecops-api",
	"jwt.ttl":                    time.Hour,
	"password.algorithm":         auth.AlgorithmPBKDF2,
	"password.pbkdf2_iterations": auth.DefaultPBKDF2Iterations,
	"password.bcrypt_cost":       12,
	"ratelimit.enabled":          true,
	"ratelimit.backend":          "memory",
	"ratelimit.register":         "5/minute",
	"ratelimit.login":            "10/minute",
	"ratelimit.profile_update":   "10/hour",
	"redis.url":                  "",
	"server.read_header_timeout": 10 * time.Second,
	"server.write_timeout":       10 * time.Second,
	"server.idle_timeout":        60 * time.Second,
	"server.shutdown_timeout":    10 * time.Second,
	"server.max_body_bytes":      1 << 20,
	"server.hsts_max_age":        365 * 24 * time.Hour,
	"server.trusted_proxies":     []string{},
	"swagger.enabled":            true,
}

// Load reads the config file (configs/config.yml unless path is set), applies
// environment overrides and validates the result. A missing default file is
// not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Validate rejects settings the process cannot safely start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port is empty"))
	}
	if !logger.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is unknown", c.Log.Level))
	}
	if !logger.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q is unknown", c.Log.Format))
	}
	if _, err := dbx.ParseDialect(c.DB.Driver); err != nil {
		errs = append(errs, fmt.Errorf("db.driver: %w", err))
	}

	switch {
	case c.JWT.Secret == "":
		errs = append(errs, errors.New("jwt.secret is empty (set APP_JWT_SECRET)"))
	case len(c.JWT.Secret) < minSecretBytes && !c.IsDevelopment():
		errs = append(errs, fmt.Errorf("jwt.secret must be at least %d bytes outside development", minSecretBytes))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}

	switch c.Password.Algorithm {
	case auth.AlgorithmPBKDF2, auth.AlgorithmBcrypt:
	default:
		errs = append(errs, fmt.Errorf("password.algorithm %q is unknown", c.Password.Algorithm))
	}

	if c.RateLimit.Enabled {
		for name, rule := range map[string]string{
			"ratelimit.register":       c.RateLimit.Register,
			"ratelimit.login":          c.RateLimit.Login,
			"ratelimit.profile_update": c.RateLimit.ProfileUpdate,
		} {
			if _, err := ratelimit.ParseRule(rule); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
		switch c.RateLimit.Backend {
		case "memory":
		case "redis":
			if c.Redis.URL == "" {
				errs = append(errs, errors.New("redis.url is required for the redis rate limit backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("ratelimit.backend %q is unknown", c.RateLimit.Backend))
		}
	}

	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Server.HSTSMaxAge < 0 {
		errs = append(errs, errors.New("server.hsts_max_age must not be negative"))
	}
	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p))
			}
		}
	}

	return errors.Join(errs...)
}
