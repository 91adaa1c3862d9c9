package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "mngtool.yaml"

type Config struct {
	StorageDir string       `yaml:"storage_dir"`
	ExportsDir string       `yaml:"exports_dir"`
	LogFile    string       `yaml:"log_file"`
	Log        LogConfig    `yaml:"log"`
	HTTP       HTTPConfig   `yaml:"http"`
	Linear     LinearConfig `yaml:"linear"`
	GitHub     GitHubConfig `yaml:"github"`
	Figma      FigmaConfig  `yaml:"figma"`
	TUI        TUIConfig    `yaml:"tui"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type HTTPConfig struct {
	Timeout    time.Duration `yaml:"-"`
	RawTimeout string        `yaml:"timeout"`
}

type LinearConfig struct {
	APIKey      string `yaml:"api_key"`
	WorkspaceID string `yaml:"workspace_id"`
	Endpoint    string `yaml:"endpoint"`
	PageSize    int    `yaml:"page_size"`
}

type GitHubConfig struct {
	Token          string `yaml:"token"`
	APIURL         string `yaml:"api_url"`
	Owner          string `yaml:"owner"`
	Repo           string `yaml:"repo"`
	MaxConcurrency int    `yaml:"max_concurrency"`
}

type FigmaConfig struct {
	AccessToken string `yaml:"access_token"`
	APIBaseURL  string `yaml:"api_base_url"`
	FileKey     string `yaml:"file_key"`
	OutputDir   string `yaml:"output_dir"`
	Format      string `yaml:"format"`
	Scale       int    `yaml:"scale"`
}

type TUIConfig struct {
	RefreshInterval time.Duration `yaml:"-"`
	RawInterval     string        `yaml:"refresh_interval"`
}

// Load reads the YAML file at path, applies environment overrides, fills
// defaults and validates. A missing file is tolerated only for DefaultPath
// so the tool can run from environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(&c.Linear.APIKey, "LINEAR_API_KEY")
	set(&c.Linear.WorkspaceID, "LINEAR_WORKSPACE_ID")
	set(&c.StorageDir, "LINEAR_STORAGE_DIR")

	set(&c.GitHub.Token, "GITHUB_TOKEN")
	set(&c.GitHub.APIURL, "GITHUB_API_URL")
	if owner, ok := lookup("GITHUB_OWNER"); ok && owner != "" {
		if repo, ok := lookup("GITHUB_REPO"); ok && repo != "" {
			c.GitHub.Owner, c.GitHub.Repo = owner, repo
		}
	} else if combined, ok := lookup("GITHUB_REPOSITORY"); ok {
		if owner, repo, found := strings.Cut(combined, "/"); found && owner != "" && repo != "" {
			c.GitHub.Owner, c.GitHub.Repo = owner, repo
		}
	}

	set(&c.Figma.AccessToken, "FIGMA_ACCESS_TOKEN")
	set(&c.Figma.APIBaseURL, "FIGMA_API_BASE_URL")
	set(&c.Figma.OutputDir, "FIGMA_OUTPUT_DIR")
	set(&c.Figma.FileKey, "FIGMA_FILE_KEY")

	set(&c.Log.Level, "MNGTOOL_LOG_LEVEL")
}

func (c *Config) setDefaults() error {
	if c.StorageDir == "" {
		c.StorageDir = "storage/linear"
	}
	if c.ExportsDir == "" {
		c.ExportsDir = "storage/exports"
	}
	if c.LogFile == "" {
		c.LogFile = "storage/logs/mngtool.log"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.HTTP.RawTimeout == "" {
		c.HTTP.RawTimeout = "30s"
	}
	d, err := time.ParseDuration(c.HTTP.RawTimeout)
	if err != nil {
		return fmt.Errorf("parse http.timeout %q: %w", c.HTTP.RawTimeout, err)
	}
	c.HTTP.Timeout = d

	if c.Linear.Endpoint == "" {
		c.Linear.Endpoint = "https://api.linear.app/graphql"
	}
	if c.Linear.PageSize == 0 {
		c.Linear.PageSize = 50
	}

	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = "https://api.github.com"
	}

	if c.Figma.APIBaseURL == "" {
		c.Figma.APIBaseURL = "https://api.figma.com"
	}
	if c.Figma.OutputDir == "" {
		c.Figma.OutputDir = "outputs/figma"
	}
	if c.Figma.Format == "" {
		c.Figma.Format = "png"
	}
	if c.Figma.Scale == 0 {
		c.Figma.Scale = 2
	}

	if c.TUI.RawInterval == "" {
		c.TUI.RawInterval = "2s"
	}
	tuiInterval, err := time.ParseDuration(c.TUI.RawInterval)
	if err != nil {
		return fmt.Errorf("parse tui.refresh_interval %q: %w", c.TUI.RawInterval, err)
	}
	c.TUI.RefreshInterval = tuiInterval

	return nil
}

func (c *Config) validate() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.RawTimeout)
	}
	if c.TUI.RefreshInterval <= 0 {
		return fmt.Errorf("tui.refresh_interval must be positive, got %s", c.TUI.RawInterval)
	}
	if c.Linear.PageSize < 1 || c.Linear.PageSize > 250 {
		return fmt.Errorf("linear.page_size must be between 1 and 250, got %d", c.Linear.PageSize)
	}
	if c.GitHub.MaxConcurrency < 0 {
		return fmt.Errorf("github.max_concurrency must not be negative, got %d", c.GitHub.MaxConcurrency)
	}
	switch c.Figma.Format {
	case "png", "jpg":
	default:
		return fmt.Errorf("invalid figma.format %q (png|jpg)", c.Figma.Format)
	}
	if c.Figma.Scale < 1 || c.Figma.Scale > 4 {
		return fmt.Errorf("figma.scale must be between 1 and 4, got %d", c.Figma.Scale)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (debug|info|warn|error)", c.Log.Level)
	}
	return nil
}
