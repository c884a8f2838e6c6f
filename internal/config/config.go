package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains workspace directory configuration.
type Paths struct {
	WorkDir      string `toml:"work_dir"`
	SourcesDir   string `toml:"sources_dir"`
	BuildDir     string `toml:"build_dir"`
	OutputDir    string `toml:"output_dir"`
	StatsDir     string `toml:"stats_dir"`
	LogDir       string `toml:"log_dir"`
	DecodersFile string `toml:"decoders_file"`
}

// NDK locates the Android NDK installation.
type NDK struct {
	Home    string `toml:"home"`
	HostTag string `toml:"host_tag"`
}

// Source describes where FFmpeg sources come from.
type Source struct {
	DefaultVersion string `toml:"default_version"`
	ReleaseBaseURL string `toml:"release_base_url"`
	ArchiveFormat  string `toml:"archive_format"`
	GitURL         string `toml:"git_url"`
	GitRemote      string `toml:"git_remote"`
}

// Build contains knobs passed to the FFmpeg build system.
type Build struct {
	Jobs            int      `toml:"jobs"`
	ExtraCFlags     string   `toml:"extra_cflags"`
	ExtraConfigure  []string `toml:"extra_configure"`
	ContinueOnError bool     `toml:"continue_on_error"`
	MakeBinary      string   `toml:"make_binary"`
}

// Target selects an ABI and the Android API level it is compiled against.
type Target struct {
	ABI      string `toml:"abi"`
	APILevel int    `toml:"api_level"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// History controls the run ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for ffbuild.
//
// Configuration sections by subsystem:
//   - Paths: workspace layout and the decoder allowlist
//   - NDK: Android NDK location and prebuilt host tag
//   - Source: release server, archive format, and git upstream
//   - Build: make parallelism and extra compiler/configure flags
//   - Targets: ordered ABI/API-level list
//   - Logging: log format, level, and rotation
//   - History: SQLite run ledger
type Config struct {
	Paths   Paths    `toml:"paths"`
	NDK     NDK      `toml:"ndk"`
	Source  Source   `toml:"source"`
	Build   Build    `toml:"build"`
	Targets []Target `toml:"targets"`
	Logging Logging  `toml:"logging"`
	History History  `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// [[targets]] replaces the default list; normalize restores it when absent.
		cfg.Targets = nil
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories that must exist before any
// command runs. Derived build directories are owned by the workspace package.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.SourcesDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MakeBinary returns the make executable used to drive FFmpeg's build.
func (c *Config) MakeBinary() string {
	if bin := strings.TrimSpace(c.Build.MakeBinary); bin != "" {
		return bin
	}
	return defaultMakeBinary
}

// LockPath returns the workspace lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, lockFileName)
}

// ReportPath returns the text relocation report location.
func (c *Config) ReportPath() string {
	return filepath.Join(c.Paths.StatsDir, reportFileName)
}

// LogPath returns the rotating log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "ffbuild.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
