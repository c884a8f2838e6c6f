package target

import (
	"fmt"
	"strings"
)

// ABI identifies one of the Android ABIs ffbuild compiles for.
type ABI int

const (
	ArmeabiV7a ABI = iota + 1
	Arm64V8a
	X86
	X86_64
)

var abiNames = map[ABI]string{
	ArmeabiV7a: "armeabi-v7a",
	Arm64V8a:   "arm64-v8a",
	X86:        "x86",
	X86_64:     "x86_64",
}

// String returns the canonical Android ABI name.
func (a ABI) String() string {
	if name, ok := abiNames[a]; ok {
		return name
	}
	return fmt.Sprintf("abi(%d)", int(a))
}

// Valid reports whether a is one of the known ABIs.
func (a ABI) Valid() bool {
	_, ok := abiNames[a]
	return ok
}

// ParseABI resolves an ABI name, ignoring case and surrounding whitespace.
func ParseABI(name string) (ABI, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for abi, candidate := range abiNames {
		if candidate == normalized {
			return abi, nil
		}
	}
	return 0, fmt.Errorf("unsupported abi %q (expected one of %s)", name, strings.Join(Names(), ", "))
}

// All returns every ABI in build order.
func All() []ABI {
	return []ABI{ArmeabiV7a, Arm64V8a, X86, X86_64}
}

// Names returns the ABI names in build order.
func Names() []string {
	all := All()
	names := make([]string, 0, len(all))
	for _, abi := range all {
		names = append(names, abi.String())
	}
	return names
}

// Target pairs an ABI with the Android API level the libraries are linked against.
type Target struct {
	ABI      ABI
	APILevel int
}

func (t Target) String() string {
	return fmt.Sprintf("%s@%d", t.ABI, t.APILevel)
}

// Defaults returns the four build targets in build order. 32-bit ABIs target
// API 16 and 64-bit ABIs API 21, the first level that shipped them.
func Defaults() []Target {
	return []Target{
		{ABI: ArmeabiV7a, APILevel: 16},
		{ABI: Arm64V8a, APILevel: 21},
		{ABI: X86, APILevel: 16},
		{ABI: X86_64, APILevel: 21},
	}
}

// Filter keeps the targets whose ABI names appear in names, preserving the
// order of targets. An empty names list keeps everything.
func Filter(targets []Target, names []string) ([]Target, error) {
	if len(names) == 0 {
		return targets, nil
	}
	wanted := make(map[ABI]struct{}, len(names))
	for _, name := range names {
		abi, err := ParseABI(name)
		if err != nil {
			return nil, err
		}
		wanted[abi] = struct{}{}
	}
	filtered := make([]Target, 0, len(wanted))
	for _, t := range targets {
		if _, ok := wanted[t.ABI]; ok {
			filtered = append(filtered, t)
			delete(wanted, t.ABI)
		}
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for _, abi := range All() {
			if _, ok := wanted[abi]; ok {
				missing = append(missing, abi.String())
			}
		}
		return nil, fmt.Errorf("abi not configured as a target: %s", strings.Join(missing, ", "))
	}
	return filtered, nil
}
