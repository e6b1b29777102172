// Package config loads the zbxexpr server and CLI settings from a YAML file
// and ZBXEXPR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zabbix/zabbix-sub156/zbxexpr"
)

type Config struct {
	Addr string `yaml:"addr"`
	// PostgreSQL DSN. Empty keeps expressions in memory.
	DBDSN          string         `yaml:"db_dsn"`
	RulesPath      string         `yaml:"rules_path"`
	MigrationsPath string         `yaml:"migrations_path"`
	LogLevel       string         `yaml:"log_level"`
	Limits         zbxexpr.Limits `yaml:"limits"`
}

func Default() Config {
	return Config{
		Addr:           ":8080",
		MigrationsPath: "./migrations",
		LogLevel:       "info",
		Limits:         zbxexpr.StrictLimits(),
	}
}

// Load reads path (when not empty) over the defaults, then applies the
// environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ZBXEXPR_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"ZBXEXPR_ADDR":            &c.Addr,
		"ZBXEXPR_DB_DSN":          &c.DBDSN,
		"ZBXEXPR_RULES_PATH":      &c.RulesPath,
		"ZBXEXPR_MIGRATIONS_PATH": &c.MigrationsPath,
		"ZBXEXPR_LOG_LEVEL":       &c.LogLevel,
	}
	for k, p := range strs {
		if v := getenv(k); v != "" {
			*p = v
		}
	}

	ints := map[string]*int{
		"ZBXEXPR_MAX_SOURCE_LENGTH": &c.Limits.MaxSourceLength,
		"ZBXEXPR_MAX_DEPTH":         &c.Limits.MaxDepth,
		"ZBXEXPR_MAX_FRAGMENTS":     &c.Limits.MaxFragments,
		"ZBXEXPR_MAX_REGEX_LENGTH":  &c.Limits.MaxRegexLength,
	}
	for k, p := range ints {
		v := getenv(k)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		*p = n
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "err":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.DBDSN != "" && c.MigrationsPath == "" {
		errs = append(errs, errors.New("migrations_path is required with db_dsn"))
	}
	l := c.Limits
	if l.MaxSourceLength < 0 || l.MaxDepth < 0 || l.MaxFragments < 0 || l.MaxRegexLength < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	return errors.Join(errs...)
}
