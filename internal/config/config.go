package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	EnvHost           = "K8S_AGENT_HOST"
	EnvPort           = "K8S_AGENT_PORT"
	EnvLogLevel       = "K8S_AGENT_LOG_LEVEL"
	EnvShell          = "K8S_AGENT_SHELL"
	EnvExecTimeout    = "K8S_AGENT_EXEC_TIMEOUT"
	EnvCORSOrigins    = "K8S_AGENT_CORS_ORIGINS"
	EnvMetricsEnabled = "K8S_AGENT_METRICS_ENABLED"
)

type Config struct {
	Host           string
	Port           int
	LogLevel       string
	Shell          string
	ExecTimeout    time.Duration
	CORSOrigins    []string
	MetricsEnabled bool
}

// Sources lists where Load reads from. Empty paths are skipped.
type Sources struct {
	File    string // TOML
	EnvFile string // dotenv
}

type fileConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	LogLevel       string   `toml:"log_level"`
	Shell          string   `toml:"shell"`
	ExecTimeout    string   `toml:"exec_timeout"`
	CORSOrigins    []string `toml:"cors_origins"`
	MetricsEnabled bool     `toml:"metrics_enabled"`
}

func Default() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           3000,
		LogLevel:       "info",
		Shell:          "/bin/sh",
		MetricsEnabled: true,
	}
}

// Load builds the config from defaults, the TOML file, the dotenv file and
// the process environment, later sources winning.
func Load(src Sources) (Config, error) {
	cfg := Default()

	if src.File != "" {
		if err := applyFile(&cfg, src.File); err != nil {
			return Config{}, err
		}
	}

	if src.EnvFile != "" {
		// variables already set in the environment are not overridden
		if err := godotenv.Load(src.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", src.EnvFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ExecTimeout < 0 {
		return fmt.Errorf("exec timeout must not be negative, got %s", c.ExecTimeout)
	}
	if strings.TrimSpace(c.Shell) == "" {
		return errors.New("shell must be set")
	}
	for _, o := range c.CORSOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("cors origin %q must be * or start with http:// or https://", o)
		}
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("shell") {
		cfg.Shell = strings.TrimSpace(raw.Shell)
	}
	if meta.IsDefined("exec_timeout") {
		d, err := parseTimeout(raw.ExecTimeout)
		if err != nil {
			return fmt.Errorf("parse exec_timeout: %w", err)
		}
		cfg.ExecTimeout = d
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CORSOrigins)
	}
	if meta.IsDefined("metrics_enabled") {
		cfg.MetricsEnabled = raw.MetricsEnabled
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookup(EnvHost); ok {
		cfg.Host = v
	}
	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvShell); ok {
		cfg.Shell = v
	}
	if v, ok := lookup(EnvExecTimeout); ok {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvExecTimeout, err)
		}
		cfg.ExecTimeout = d
	}
	if v, ok := lookup(EnvCORSOrigins); ok {
		cfg.CORSOrigins = normalizeList(strings.Split(v, ","))
	}
	if v, ok := lookup(EnvMetricsEnabled); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvMetricsEnabled, err)
		}
		cfg.MetricsEnabled = b
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// parseTimeout accepts Go durations ("90s") or a bare number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
