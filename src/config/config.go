package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where stackops looks for its configuration when --config
// is not given. A missing file is not an error; defaults apply.
const DefaultPath = "/etc/stackops/config.yaml"

// ServiceProbe describes one liveness check. Exactly one of URL or
// Container is set: URL probes are HTTP GETs, container probes ask the
// runtime whether the named container is running.
type ServiceProbe struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url,omitempty"`
	Container string `yaml:"container,omitempty"`
}

// Config holds every injected knob of the lifecycle tooling: where the
// stack lives, what gets backed up, which services get probed, and how
// many snapshots to retain.
type Config struct {
	// StackDir is the compose project directory.
	StackDir    string `yaml:"stack_dir"`
	ComposeFile string `yaml:"compose_file"`

	// BackupRoot is where snapshot archives accumulate.
	BackupRoot string `yaml:"backup_root"`

	// VersionFile is the persisted current-version marker.
	VersionFile string `yaml:"version_file"`

	// Trees captured by every snapshot.
	ConfigDir  string `yaml:"config_dir"`
	SourceDir  string `yaml:"source_dir"`
	ScriptsDir string `yaml:"scripts_dir"`

	// Host directories captured by every snapshot and wiped by the
	// unknown-version migration fallback.
	DataDir      string `yaml:"data_dir"`
	WorkspaceDir string `yaml:"workspace_dir"`
	LogsDir      string `yaml:"logs_dir"`

	// Volumes is the logical volume-name list; only names that exist on
	// the host at backup time are archived.
	Volumes []string `yaml:"volumes"`

	Services []ServiceProbe `yaml:"services"`

	// Keep is the retention window: snapshots beyond the newest Keep are
	// deleted after each backup run.
	Keep int `yaml:"keep"`

	WarmupSeconds          int `yaml:"warmup_seconds"`
	ProbeTimeoutSeconds    int `yaml:"probe_timeout_seconds"`
	MonitorIntervalSeconds int `yaml:"monitor_interval_seconds"`
}

// Default returns the built-in configuration matching the stock agent
// stack layout under /opt/agent-stack.
func Default() *Config {
	base := "/opt/agent-stack"
	return &Config{
		StackDir:     base,
		ComposeFile:  "docker-compose.yml",
		BackupRoot:   filepath.Join(base, "backups"),
		VersionFile:  filepath.Join(base, ".stack-version"),
		ConfigDir:    filepath.Join(base, "config"),
		SourceDir:    filepath.Join(base, "src"),
		ScriptsDir:   filepath.Join(base, "scripts"),
		DataDir:      filepath.Join(base, "data"),
		WorkspaceDir: filepath.Join(base, "workspace"),
		LogsDir:      filepath.Join(base, "logs"),
		Volumes: []string{
			"redis-data",
			"chroma-data",
			"ollama-models",
			"agent-logs",
		},
		Services: []ServiceProbe{
			{Name: "agent", URL: "http://localhost:3000/health"},
			{Name: "litellm", URL: "http://localhost:4000/health"},
			{Name: "chromadb", URL: "http://localhost:8000/api/v1/heartbeat"},
			{Name: "ollama", URL: "http://localhost:11434/api/tags"},
			{Name: "redis", Container: "agent-redis"},
		},
		Keep:                   7,
		WarmupSeconds:          30,
		ProbeTimeoutSeconds:    5,
		MonitorIntervalSeconds: 5,
	}
}

// Load reads the YAML config at path, layering it over Default. A missing
// file yields the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields every engine relies on.
func (c *Config) Validate() error {
	if c.StackDir == "" {
		return fmt.Errorf("stack_dir must not be empty")
	}
	if c.BackupRoot == "" {
		return fmt.Errorf("backup_root must not be empty")
	}
	if c.VersionFile == "" {
		return fmt.Errorf("version_file must not be empty")
	}
	if c.Keep <= 0 {
		return fmt.Errorf("keep must be > 0, got %d", c.Keep)
	}
	for _, s := range c.Services {
		if s.Name == "" {
			return fmt.Errorf("service probe with empty name")
		}
		if (s.URL == "") == (s.Container == "") {
			return fmt.Errorf("service %q must set exactly one of url or container", s.Name)
		}
	}
	return nil
}

// Warmup is the post-start settle interval before health checks run.
func (c *Config) Warmup() time.Duration {
	return time.Duration(c.WarmupSeconds) * time.Second
}

// ProbeTimeout bounds one health probe.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// MonitorInterval is the monitor loop's refresh period.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSeconds) * time.Second
}

// ComposePath is the absolute compose file path.
func (c *Config) ComposePath() string {
	if filepath.IsAbs(c.ComposeFile) {
		return c.ComposeFile
	}
	return filepath.Join(c.StackDir, c.ComposeFile)
}
