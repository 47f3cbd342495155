package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// envBindings maps config keys to the environment variables that override
// them. Environment wins over the file.
var envBindings = map[string]string{
	"workspace.host":          "DATABRICKS_HOST",
	"workspace.token":         "DATABRICKS_TOKEN",
	"workspace.local_dir":     "DABOPS_LOCAL_DIR",
	"workspace.max_workflows": "DABOPS_MAX_WORKFLOWS",
	"service.log_level":       "DABOPS_LOG_LEVEL",
	"bundle.auto_save":        "DABOPS_AUTO_SAVE",
	"bundle.target_env":       "DABOPS_TARGET_ENV",
	"cache.ttl":               "DABOPS_CACHE_TTL",
}

// Load discovers the configuration file (see Discover), applies defaults,
// environment overrides and validation. flagPath is the --config value.
func Load(flagPath string) (*Config, error) {
	cfg, err := Resolve(flagPath)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Resolve is Load without validation. Callers that report problems
// themselves, such as config check, start here.
func Resolve(flagPath string) (*Config, error) {
	path, err := Discover(flagPath)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if path != "" {
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile parses one YAML file over the defaults, without environment
// overrides or validation.
func LoadFile(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Keys absent from the file keep their defaults.
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", absPath, err)
	}
	cfg.SourceFile = absPath
	return cfg, nil
}

// ApplyEnv overlays environment variables on cfg.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if v.IsSet("workspace.host") {
		cfg.Workspace.Host = v.GetString("workspace.host")
	}
	if v.IsSet("workspace.token") {
		cfg.Workspace.Token = v.GetString("workspace.token")
	}
	if v.IsSet("workspace.local_dir") {
		cfg.Workspace.LocalDir = v.GetString("workspace.local_dir")
	}
	if v.IsSet("service.log_level") {
		cfg.Service.LogLevel = strings.ToLower(v.GetString("service.log_level"))
	}
	if v.IsSet("bundle.target_env") {
		cfg.Bundle.TargetEnv = v.GetString("bundle.target_env")
	}
	if v.IsSet("workspace.max_workflows") {
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString("workspace.max_workflows")))
		if err != nil {
			return fmt.Errorf("DABOPS_MAX_WORKFLOWS: %w", err)
		}
		cfg.Workspace.MaxWorkflows = n
	}
	if v.IsSet("bundle.auto_save") {
		b, err := strconv.ParseBool(strings.TrimSpace(v.GetString("bundle.auto_save")))
		if err != nil {
			return fmt.Errorf("DABOPS_AUTO_SAVE: %w", err)
		}
		cfg.Bundle.AutoSave = b
	}
	if v.IsSet("cache.ttl") {
		ttl, err := ParseTTL(v.GetString("cache.ttl"))
		if err != nil {
			return fmt.Errorf("DABOPS_CACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = ttl
	}
	return nil
}

// ParseTTL accepts whole seconds ("300") or a Go duration ("5m").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Left in place; secrets carrying a placeholder fail validation.
		return match
	})
}
