package config

import "time"

// Config represents the complete dabops configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Bundle    BundleConfig    `yaml:"bundle"`
	Cache     CacheConfig     `yaml:"cache"`
	State     StateConfig     `yaml:"state"`
	API       APIConfig       `yaml:"api,omitempty"`

	// SourceFile is the file the configuration was read from, empty when
	// only defaults and environment were used.
	SourceFile string `yaml:"-"`
}

// ServiceConfig defines process-wide settings.
type ServiceConfig struct {
	Name      string `yaml:"name" validate:"required"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json text"`

	// TickInterval paces server maintenance.
	TickInterval time.Duration `yaml:"tick_interval" validate:"gt=0"`
}

// WorkspaceConfig selects the remote workspace. LocalDir switches to the
// filesystem-backed workspace and makes Host and Token optional.
type WorkspaceConfig struct {
	Host           string        `yaml:"host"`
	Token          string        `yaml:"token" validate:"noplaceholder"`
	LocalDir       string        `yaml:"local_dir"`
	User           string        `yaml:"user"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	// RequestsPerSecond paces REST calls; zero disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	MaxWorkflows      int     `yaml:"max_workflows" validate:"gte=1"`
}

// BundleConfig holds generation defaults.
type BundleConfig struct {
	TargetEnv           string `yaml:"target_env" validate:"required,oneof=dev staging prod"`
	IncludeDependencies bool   `yaml:"include_dependencies"`
	AutoSave            bool   `yaml:"auto_save"`
	OutputDir           string `yaml:"output_dir" validate:"required"`
	GitOriginURL        string `yaml:"git_origin_url"`
	GitBranch           string `yaml:"git_branch"`
}

// CacheConfig controls the workflow listing cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

// StateConfig defines history storage settings. An empty path disables
// persisted history.
type StateConfig struct {
	Path string `yaml:"path"`

	// Retention prunes older entries while serving; zero keeps everything.
	Retention time.Duration `yaml:"retention" validate:"gte=0"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is the admin credential and carries every scope.
	APIKey string           `yaml:"api_key" validate:"noplaceholder"`
	Tokens []APITokenConfig `yaml:"tokens,omitempty" validate:"dive"`
}

// APITokenConfig is a bearer token restricted to Scopes.
type APITokenConfig struct {
	Token  string   `yaml:"token" validate:"required,noplaceholder"`
	Scopes []string `yaml:"scopes" validate:"min=1,dive,oneof=* workflows:ro bundles:ro bundles:rw history:ro events:ro"`
}

// Defaults returns a Config with default values.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:         "dabops",
			LogLevel:     "info",
			LogFormat:    "json",
			TickInterval: 10 * time.Minute,
		},
		Workspace: WorkspaceConfig{
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 10,
			MaxWorkflows:      100,
		},
		Bundle: BundleConfig{
			TargetEnv:           "dev",
			IncludeDependencies: true,
			AutoSave:            true,
			OutputDir:           "/Workspace/Users/{user}/DABOps/bundles",
			GitOriginURL:        "https://github.com/your-org/your-repo.git",
			GitBranch:           "main",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		State: StateConfig{
			Path: "./data/history.db",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8080",
		},
	}
}
