package config

import "ffbuild/internal/target"

const (
	defaultConfigPath     = "~/.config/ffbuild/config.toml"
	projectConfigName     = "ffbuild.toml"
	defaultWorkDir        = "."
	defaultSourcesDir     = "sources"
	defaultBuildDir       = "build"
	defaultOutputDir      = "output"
	defaultStatsDir       = "stats"
	defaultLogDir         = "~/.local/share/ffbuild/logs"
	defaultDecodersFile   = "ffmpeg-decoders"
	defaultVersion        = "4.1.3"
	defaultReleaseBaseURL = "https://ffmpeg.org/releases"
	defaultArchiveFormat  = "tar.bz2"
	defaultGitURL         = "https://git.ffmpeg.org/ffmpeg.git"
	defaultGitRemote      = "origin"
	defaultJobs           = 8
	defaultMakeBinary     = "make"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogMaxSizeMB   = 20
	defaultLogMaxBackups  = 5
	defaultHistoryFile    = "history.db"
	lockFileName          = ".ffbuild.lock"
	reportFileName        = "text-relocations.txt"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:      defaultWorkDir,
			SourcesDir:   defaultSourcesDir,
			BuildDir:     defaultBuildDir,
			OutputDir:    defaultOutputDir,
			StatsDir:     defaultStatsDir,
			LogDir:       defaultLogDir,
			DecodersFile: defaultDecodersFile,
		},
		Source: Source{
			DefaultVersion: defaultVersion,
			ReleaseBaseURL: defaultReleaseBaseURL,
			ArchiveFormat:  defaultArchiveFormat,
			GitURL:         defaultGitURL,
			GitRemote:      defaultGitRemote,
		},
		Build: Build{
			Jobs:       defaultJobs,
			MakeBinary: defaultMakeBinary,
		},
		Targets: defaultTargets(),
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
		History: History{
			Enabled: true,
		},
	}
}

func defaultTargets() []Target {
	defaults := target.Defaults()
	targets := make([]Target, 0, len(defaults))
	for _, t := range defaults {
		targets = append(targets, Target{ABI: t.ABI.String(), APILevel: t.APILevel})
	}
	return targets
}
