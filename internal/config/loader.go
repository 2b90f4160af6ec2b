package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load builds the configuration from the process environment and validates
// it.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom builds the configuration from getenv. Every tagged field reads its
// env name, then its envAlt name, then its default; a required field with none
// of those is an error.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	for _, s := range settings(reflect.ValueOf(cfg).Elem()) {
		if err := s.apply(getenv); err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// setting is one env-backed field of Config.
type setting struct {
	env, alt, fallback string
	required           bool
	dst                reflect.Value
}

// settings flattens the nested config sections into their env-backed fields.
func settings(v reflect.Value) []setting {
	var out []setting
	for i := 0; i < v.NumField(); i++ {
		f, dst := v.Type().Field(i), v.Field(i)
		if !dst.CanSet() {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			out = append(out, settings(dst)...)
			continue
		}
		if name := f.Tag.Get("env"); name != "" {
			out = append(out, setting{
				env:      name,
				alt:      f.Tag.Get("envAlt"),
				fallback: f.Tag.Get("default"),
				required: f.Tag.Get("required") == "true",
				dst:      dst,
			})
		}
	}
	return out
}

func (s setting) apply(getenv func(string) string) error {
	raw := getenv(s.env)
	if raw == "" && s.alt != "" {
		raw = getenv(s.alt)
	}
	if raw == "" {
		if s.required {
			return fmt.Errorf("required environment variable %s is not set", s.env)
		}
		raw = s.fallback
	}
	if raw == "" {
		return nil
	}

	parse, ok := parsers[s.dst.Type()]
	if !ok {
		return fmt.Errorf("%s: unsupported field type %s", s.env, s.dst.Type())
	}
	val, err := parse(raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", s.env, raw, err)
	}
	s.dst.Set(reflect.ValueOf(val).Convert(s.dst.Type()))
	return nil
}

// parsers convert a raw env value for each field type Config uses.
var parsers = map[reflect.Type]func(string) (any, error){
	reflect.TypeOf(""): func(s string) (any, error) {
		return s, nil
	},
	reflect.TypeOf(0): func(s string) (any, error) {
		return strconv.Atoi(s)
	},
	reflect.TypeOf(int64(0)): func(s string) (any, error) {
		return strconv.ParseInt(s, 10, 64)
	},
	reflect.TypeOf(false): func(s string) (any, error) {
		return strconv.ParseBool(s)
	},
	reflect.TypeOf(time.Duration(0)): func(s string) (any, error) {
		return time.ParseDuration(s)
	},
	reflect.TypeOf([]string(nil)): func(s string) (any, error) {
		var items []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	},
}

// Validate reports every rule the configuration breaks in one error.
func (c *Config) Validate() error {
	rate := c.Rate.Enabled
	rules := []struct {
		broken bool
		msg    string
	}{
		{c.Database.URL == "", "DATABASE_URL is required"},
		{c.Database.MaxConns < c.Database.MinConns,
			fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)},
		{c.Database.MaxConns <= 0, "DB_MAX_CONNS must be positive"},
		{c.Database.MinConns < 0, "DB_MIN_CONNS must be non-negative"},

		{c.Redis.URL != "" && c.Redis.CacheTTL <= 0, "REDIS_CACHE_TTL must be positive when REDIS_URL is set"},

		{c.Server.Port <= 0 || c.Server.Port > 65535, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port)},
		{c.Server.ReadTimeout < 0, "SERVER_READ_TIMEOUT must be non-negative"},
		{c.Server.ShutdownTimeout <= 0, "SERVER_SHUTDOWN_TIMEOUT must be positive"},

		{c.Import.MaxFileSize <= 0, "IMPORT_MAX_FILE_SIZE must be positive"},
		{c.Import.MaxConcurrent <= 0, "IMPORT_MAX_CONCURRENT must be positive"},
		{c.Import.Workers <= 0, "IMPORT_WORKERS must be positive"},
		{c.Import.MaxWaitTime <= 0, "IMPORT_MAX_WAIT_TIME must be positive"},
		{c.Import.Timeout <= 0, "IMPORT_TIMEOUT must be positive"},
		{c.Export.Workers <= 0, "EXPORT_WORKERS must be positive"},

		{rate && c.Rate.RequestsPerMinute <= 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled"},
		{rate && c.Rate.ImportLimit <= 0, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled"},

		{c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0,
			"REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth"},
		{c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32, "JWT_SECRET must be at least 32 bytes"},

		{!oneOf(c.Logging.Level, "debug", "info", "warn", "error"),
			fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)},
		{!oneOf(c.Logging.Format, "text", "json"),
			fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)},
	}

	var problems []error
	for _, r := range rules {
		if r.broken {
			problems = append(problems, errors.New(r.msg))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed: %w", errors.Join(problems...))
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// String renders the configuration for logs with every secret masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Host: %q, Port: %d}, "+
		"Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, "+
		"Redis: {Enabled: %v, CacheTTL: %s}, "+
		"Import: {MaxFileSize: %d, MaxConcurrent: %d, Workers: %d}, "+
		"Export: {Workers: %d}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d}, "+
		"Security: {RequireAPIKey: %v, APIKeys: %d, JWTSecret: [MASKED]}, "+
		"Logging: {Level: %q, Format: %q}}",
		c.Server.Host, c.Server.Port,
		c.Database.MaxConns, c.Database.MinConns,
		c.Redis.URL != "", c.Redis.CacheTTL,
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.Workers,
		c.Export.Workers,
		c.Rate.Enabled, c.Rate.RequestsPerMinute,
		c.Security.RequireAPIKey, len(c.Security.APIKeys),
		c.Logging.Level, c.Logging.Format,
	)
}
