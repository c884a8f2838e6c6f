package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external program a build invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement could be satisfied. Path is the
// resolved location when Available is set.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinary resolves req.Command through PATH. Commands that contain a
// path separator are checked in place.
func CheckBinary(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(status.Command)
	switch {
	case errors.Is(err, exec.ErrNotFound):
		status.Detail = fmt.Sprintf("%s not found on PATH", status.Command)
	case err != nil:
		status.Detail = fmt.Sprintf("%s: %v", status.Command, err)
	default:
		status.Path = path
		status.Available = true
	}
	return status
}

// CheckBinaries runs CheckBinary for each requirement in order.
func CheckBinaries(reqs ...Requirement) []Status {
	out := make([]Status, len(reqs))
	for i, req := range reqs {
		out[i] = CheckBinary(req)
	}
	return out
}
