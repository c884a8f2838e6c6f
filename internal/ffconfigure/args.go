package ffconfigure

import (
	"slices"
	"strings"

	"ffbuild/internal/toolchain"
)

// Params are the inputs to the configure flag list.
type Params struct {
	Prefix    string
	Toolchain toolchain.Toolchain
	// CFlags are user flags appended after BaseCFlags and the ABI's own.
	CFlags         string
	Decoders       []string
	ExtraConfigure []string
}

// BaseCFlags are always passed. -fPIC keeps text relocations out of the
// shared libraries.
const BaseCFlags = "-O3 -fPIC"

var disabledComponents = []string{
	"--enable-shared",
	"--disable-static",
	"--disable-runtime-cpudetect",
	"--disable-debug",
	"--disable-doc",
	"--disable-programs",
	"--disable-muxers",
	"--disable-encoders",
	"--disable-decoders",
}

var disabledSubsystems = []string{
	"--disable-bsfs",
	"--disable-pthreads",
	"--disable-avdevice",
	"--disable-network",
	"--disable-postproc",
	"--disable-swresample",
	"--disable-avfilter",
}

// Args returns the full configure argument list for one target.
func Args(p Params) []string {
	tc := p.Toolchain
	cflags := append(strings.Fields(BaseCFlags), tc.ExtraCFlags...)
	for _, flag := range strings.Fields(p.CFlags) {
		if !slices.Contains(cflags, flag) {
			cflags = append(cflags, flag)
		}
	}

	args := []string{
		"--prefix=" + p.Prefix,
		"--enable-cross-compile",
		"--target-os=android",
		"--arch=" + tc.Arch,
		"--sysroot=" + tc.Sysroot,
		"--cross-prefix=" + tc.CrossPrefix,
		"--cc=" + tc.CC,
		"--extra-cflags=" + strings.Join(cflags, " "),
	}
	args = append(args, disabledComponents...)
	args = append(args, DecoderFlags(p.Decoders)...)
	args = append(args, disabledSubsystems...)
	args = append(args, tc.ExtraConfigureFlags...)
	args = append(args, p.ExtraConfigure...)
	return args
}
