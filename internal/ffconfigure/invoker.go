package ffconfigure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"ffbuild/internal/buildexec"
	"ffbuild/internal/config"
	"ffbuild/internal/logging"
	"ffbuild/internal/toolchain"
)

// Step names reported in outcomes and logs.
const (
	StepConfigure = "configure"
	StepClean     = "clean"
	StepBuild     = "build"
	StepInstall   = "install"
)

// Option configures the invoker.
type Option func(*Invoker)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec buildexec.Executor) Option {
	return func(i *Invoker) {
		if exec != nil {
			i.exec = exec
		}
	}
}

// Invoker drives FFmpeg's configure and make for one target at a time.
type Invoker struct {
	exec           buildexec.Executor
	makeBinary     string
	jobs           int
	cflags         string
	extraConfigure []string
	buildDir       string
	logger         *slog.Logger
}

// New constructs an invoker from build configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Invoker {
	inv := &Invoker{
		exec:           buildexec.NewExecutor(),
		makeBinary:     cfg.MakeBinary(),
		jobs:           cfg.Build.Jobs,
		cflags:         cfg.Build.ExtraCFlags,
		extraConfigure: append([]string(nil), cfg.Build.ExtraConfigure...),
		buildDir:       cfg.Paths.BuildDir,
		logger:         logging.NewComponentLogger(logger, "ffconfigure"),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Prefix returns the install prefix for an ABI.
func (i *Invoker) Prefix(abi string) string {
	return filepath.Join(i.buildDir, abi)
}

// Commands returns the ordered configure and make invocations for tc.
func (i *Invoker) Commands(tc toolchain.Toolchain, sourceDir string, decoders []string) []buildexec.Command {
	args := Args(Params{
		Prefix:         i.Prefix(tc.Target.ABI.String()),
		Toolchain:      tc,
		CFlags:         i.cflags,
		Decoders:       decoders,
		ExtraConfigure: i.extraConfigure,
	})
	return []buildexec.Command{
		{Step: StepConfigure, Binary: "./configure", Args: args, Dir: sourceDir},
		{Step: StepClean, Binary: i.makeBinary, Args: []string{"clean"}, Dir: sourceDir},
		{Step: StepBuild, Binary: i.makeBinary, Args: []string{"-j" + strconv.Itoa(i.jobs)}, Dir: sourceDir},
		{Step: StepInstall, Binary: i.makeBinary, Args: []string{"install"}, Dir: sourceDir},
	}
}

// Assemble configures, cleans, builds and installs FFmpeg for tc. It stops at
// the first failing step and returns the outcomes collected so far.
func (i *Invoker) Assemble(ctx context.Context, tc toolchain.Toolchain, sourceDir string, decoders []string) ([]buildexec.Outcome, error) {
	abi := tc.Target.ABI.String()
	if err := os.MkdirAll(i.Prefix(abi), 0o755); err != nil {
		return nil, fmt.Errorf("create install prefix: %w", err)
	}

	var outcomes []buildexec.Outcome
	for _, cmd := range i.Commands(tc, sourceDir, decoders) {
		stepCtx := logging.WithStep(ctx, cmd.Step)
		logger := logging.WithContext(stepCtx, i.logger)
		logger.Info("running step", logging.String("command", cmd.Binary))

		outcome := i.exec.Run(stepCtx, cmd, func(line string) {
			logger.Debug(line)
		})
		outcomes = append(outcomes, outcome)
		if err := outcome.Err(); err != nil {
			logger.Error("step failed",
				logging.Int("exit_code", outcome.ExitCode),
				logging.Duration("duration", outcome.Duration),
				logging.Tail(outcome.Tail),
				logging.Error(err),
			)
			return outcomes, fmt.Errorf("%s: %w", abi, err)
		}
		logger.Info("step complete", logging.Duration("duration", outcome.Duration))
	}
	return outcomes, nil
}
