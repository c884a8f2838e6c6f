package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"ffbuild/internal/target"
)

var supportedArchiveFormats = map[string]struct{}{
	"tar.bz2": {},
	"tar.xz":  {},
	"tar.gz":  {},
}

// Validate ensures the configuration is usable. The NDK location is not
// required here so commands that never compile can run without one; the
// build path checks it through preflight.
func (c *Config) Validate() error {
	if err := c.ValidatePaths(); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validateTargets(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

type namedPath struct {
	key  string
	path string
}

// ValidatePaths rejects layouts where a directory wiped at the start of every
// run (build, output, stats) overlaps something that must survive it. Derived
// directories may sit inside work_dir but may not equal or contain it, and
// they may not equal, contain, or sit inside the sources cache, log
// directory, NDK, decoder list, history database, or each other.
func (c *Config) ValidatePaths() error {
	derived := []namedPath{
		{"paths.build_dir", c.Paths.BuildDir},
		{"paths.output_dir", c.Paths.OutputDir},
		{"paths.stats_dir", c.Paths.StatsDir},
	}
	persistent := []namedPath{
		{"paths.sources_dir", c.Paths.SourcesDir},
		{"paths.log_dir", c.Paths.LogDir},
		{"paths.decoders_file", c.Paths.DecodersFile},
		{"history.path", c.History.Path},
		{"ndk.home", c.NDK.Home},
	}
	home, _ := os.UserHomeDir()

	for i, d := range derived {
		if d.path == "" {
			return fmt.Errorf("%s must be set", d.key)
		}
		if isRoot(d.path) || (home != "" && samePath(d.path, home)) {
			return fmt.Errorf("%s %q is a root or home directory and would be wiped on every build", d.key, d.path)
		}
		if c.Paths.WorkDir != "" && within(d.path, c.Paths.WorkDir) {
			return fmt.Errorf("%s %q must not equal or contain paths.work_dir", d.key, d.path)
		}
		for _, p := range persistent {
			if p.path == "" {
				continue
			}
			if within(d.path, p.path) || within(p.path, d.path) {
				return fmt.Errorf("%s %q overlaps %s %q, which must survive between builds", d.key, d.path, p.key, p.path)
			}
		}
		for _, other := range derived[i+1:] {
			if within(d.path, other.path) || within(other.path, d.path) {
				return fmt.Errorf("%s %q overlaps %s %q", d.key, d.path, other.key, other.path)
			}
		}
	}
	return nil
}

// within reports whether child equals parent or lies below it.
func within(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func isRoot(path string) bool {
	clean := filepath.Clean(path)
	return filepath.IsAbs(clean) && filepath.Dir(clean) == clean
}

func (c *Config) validateSource() error {
	if _, ok := supportedArchiveFormats[c.Source.ArchiveFormat]; !ok {
		return fmt.Errorf("source.archive_format %q is not supported (use tar.bz2, tar.xz, or tar.gz)", c.Source.ArchiveFormat)
	}
	parsed, err := url.Parse(c.Source.ReleaseBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("source.release_base_url %q must be an absolute URL", c.Source.ReleaseBaseURL)
	}
	if strings.ContainsAny(c.Source.DefaultVersion, `/\`) {
		return errors.New("source.default_version must not contain path separators")
	}
	return nil
}

func (c *Config) validateBuild() error {
	if c.Build.Jobs <= 0 {
		return errors.New("build.jobs must be positive")
	}
	return nil
}

func (c *Config) validateTargets() error {
	if len(c.Targets) == 0 {
		return errors.New("at least one [[targets]] entry is required")
	}
	seen := make(map[string]struct{}, len(c.Targets))
	for i, t := range c.Targets {
		if _, err := target.ParseABI(t.ABI); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
		if t.APILevel <= 0 {
			return fmt.Errorf("targets[%d].api_level must be positive", i)
		}
		if _, dup := seen[t.ABI]; dup {
			return fmt.Errorf("targets[%d]: abi %q listed more than once", i, t.ABI)
		}
		seen[t.ABI] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}

// BuildTargets converts the configured target list into typed descriptors.
func (c *Config) BuildTargets() ([]target.Target, error) {
	targets := make([]target.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		abi, err := target.ParseABI(t.ABI)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target.Target{ABI: abi, APILevel: t.APILevel})
	}
	return targets, nil
}
