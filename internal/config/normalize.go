package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ndkEnvVars lists the environment variables consulted for the NDK location,
// in priority order.
var ndkEnvVars = []string{"ANDROID_NDK_HOME", "ANDROID_NDK_ROOT", "NDK_HOME", "ANDROID_NDK"}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeNDK(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeBuild()
	c.normalizeTargets()
	c.normalizeLogging()
	return c.normalizeHistory()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}

	workRelative := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.sources_dir", &c.Paths.SourcesDir, defaultSourcesDir},
		{"paths.build_dir", &c.Paths.BuildDir, defaultBuildDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.stats_dir", &c.Paths.StatsDir, defaultStatsDir},
		{"paths.decoders_file", &c.Paths.DecodersFile, defaultDecodersFile},
	}
	for _, entry := range workRelative {
		if *entry.value, err = c.resolveWorkPath(*entry.value, entry.fallback); err != nil {
			return fmt.Errorf("%s: %w", entry.key, err)
		}
	}

	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// resolveWorkPath anchors relative paths at the work directory rather than
// the process working directory.
func (c *Config) resolveWorkPath(value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	if !strings.HasPrefix(value, "~") && !filepath.IsAbs(value) {
		value = filepath.Join(c.Paths.WorkDir, value)
	}
	return expandPath(value)
}

func (c *Config) normalizeNDK() error {
	c.NDK.Home = strings.TrimSpace(c.NDK.Home)
	if c.NDK.Home == "" {
		for _, name := range ndkEnvVars {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.NDK.Home = strings.TrimSpace(value)
				break
			}
		}
	}
	if c.NDK.Home != "" {
		var err error
		if c.NDK.Home, err = expandPath(c.NDK.Home); err != nil {
			return fmt.Errorf("ndk.home: %w", err)
		}
	}
	c.NDK.HostTag = strings.TrimSpace(c.NDK.HostTag)
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.DefaultVersion = strings.TrimSpace(c.Source.DefaultVersion)
	if c.Source.DefaultVersion == "" {
		c.Source.DefaultVersion = defaultVersion
	}
	c.Source.ReleaseBaseURL = strings.TrimRight(strings.TrimSpace(c.Source.ReleaseBaseURL), "/")
	if c.Source.ReleaseBaseURL == "" {
		c.Source.ReleaseBaseURL = defaultReleaseBaseURL
	}
	c.Source.ArchiveFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Source.ArchiveFormat)), ".")
	if c.Source.ArchiveFormat == "" {
		c.Source.ArchiveFormat = defaultArchiveFormat
	}
	c.Source.GitURL = strings.TrimSpace(c.Source.GitURL)
	if c.Source.GitURL == "" {
		c.Source.GitURL = defaultGitURL
	}
	c.Source.GitRemote = strings.TrimSpace(c.Source.GitRemote)
	if c.Source.GitRemote == "" {
		c.Source.GitRemote = defaultGitRemote
	}
}

func (c *Config) normalizeBuild() {
	if c.Build.Jobs == 0 {
		c.Build.Jobs = defaultJobs
	}
	c.Build.ExtraCFlags = strings.Join(strings.Fields(c.Build.ExtraCFlags), " ")
	flags := c.Build.ExtraConfigure[:0]
	for _, flag := range c.Build.ExtraConfigure {
		if flag = strings.TrimSpace(flag); flag != "" {
			flags = append(flags, flag)
		}
	}
	c.Build.ExtraConfigure = flags
	c.Build.MakeBinary = strings.TrimSpace(c.Build.MakeBinary)
}

func (c *Config) normalizeTargets() {
	if len(c.Targets) == 0 {
		c.Targets = defaultTargets()
		return
	}
	for i := range c.Targets {
		c.Targets[i].ABI = strings.ToLower(strings.TrimSpace(c.Targets[i].ABI))
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}

func (c *Config) normalizeHistory() error {
	c.History.Path = strings.TrimSpace(c.History.Path)
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.Paths.LogDir, defaultHistoryFile)
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}
