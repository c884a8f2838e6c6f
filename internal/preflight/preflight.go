package preflight

import (
	"errors"
	"fmt"
	"strings"

	"ffbuild/internal/buildexec"
	"ffbuild/internal/config"
	"ffbuild/internal/deps"
	"ffbuild/internal/target"
	"ffbuild/internal/toolchain"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every check a build needs. When targets is empty the
// configured target list is used.
func RunAll(cfg *config.Config, targets []target.Target) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))

	ndk := CheckNDK(cfg.NDK.Home)
	results = append(results, ndk)

	hostTag, err := toolchain.CurrentHostTag(cfg.NDK.HostTag)
	if err != nil {
		results = append(results, Result{Name: "NDK host toolchain", Detail: err.Error()})
	} else if ndk.Passed {
		if len(targets) == 0 {
			targets, err = cfg.BuildTargets()
			if err != nil {
				results = append(results, Result{Name: "Targets", Detail: err.Error()})
			}
		}
		for _, t := range targets {
			tc, err := toolchain.Resolve(cfg.NDK.Home, hostTag, t)
			if err != nil {
				results = append(results, Result{Name: t.String() + " toolchain", Detail: err.Error()})
				continue
			}
			results = append(results, fromStatuses(deps.CheckToolchain(tc))...)
		}
	}

	results = append(results, fromStatuses(deps.CheckBinaries(deps.Requirement{
		Name:        "make",
		Command:     cfg.MakeBinary(),
		Description: "Drives FFmpeg's build",
	}))...)
	results = append(results, CheckDecoders(cfg.Paths.DecodersFile))
	return results
}

// Failures joins the failed required checks into one configuration error.
// It returns nil when everything required passed.
func Failures(results []Result) error {
	var problems []string
	for _, r := range results {
		if r.Passed || r.Optional {
			continue
		}
		problems = append(problems, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(problems) == 0 {
		return nil
	}
	return buildexec.Wrap(buildexec.ErrConfiguration, "preflight", "", strings.Join(problems, "; "), errors.New("environment not ready"))
}

func fromStatuses(statuses []deps.Status) []Result {
	out := make([]Result, 0, len(statuses))
	for _, s := range statuses {
		detail := s.Detail
		if s.Available {
			detail = s.Path
		}
		out = append(out, Result{Name: s.Name, Passed: s.Available, Optional: s.Optional, Detail: detail})
	}
	return out
}
