package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ffbuild/internal/artifacts"
	"ffbuild/internal/buildexec"
	"ffbuild/internal/config"
	"ffbuild/internal/ffconfigure"
	"ffbuild/internal/history"
	"ffbuild/internal/logging"
	"ffbuild/internal/relocs"
	"ffbuild/internal/source"
	"ffbuild/internal/target"
	"ffbuild/internal/toolchain"
	"ffbuild/internal/workspace"
)

// Recorder persists run history. *history.Store satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, run history.Run) error
	UpdateSource(ctx context.Context, runID, dir, commit string) error
	RecordTarget(ctx context.Context, runID string, position int, t history.Target) error
	FinishRun(ctx context.Context, runID string, status history.Status, finished time.Time, errMsg string) error
}

// Request describes one build run.
type Request struct {
	Source source.Request
	// ABIs restricts the run to a subset of the configured targets.
	ABIs []string
}

// TargetResult is the outcome of one ABI.
type TargetResult struct {
	Target          target.Target
	Status          history.Status
	Libraries       []string
	TextRelocations int
	Duration        time.Duration
	Err             error
}

// Result summarises a run.
type Result struct {
	RunID   string
	Tree    source.Tree
	Targets []TargetResult
	// HeadersFrom is the ABI whose include tree was installed.
	HeadersFrom string
}

// Succeeded returns the ABIs that completed.
func (r Result) Succeeded() []string {
	var out []string
	for _, t := range r.Targets {
		if t.Status == history.StatusSucceeded {
			out = append(out, t.Target.ABI.String())
		}
	}
	return out
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithExecutor replaces the subprocess executor used for configure and make.
func WithExecutor(exec buildexec.Executor) Option {
	return func(p *Pipeline) {
		p.executor = exec
	}
}

// WithSourceOptions forwards options to the source provider.
func WithSourceOptions(opts ...source.Option) Option {
	return func(p *Pipeline) {
		p.sourceOpts = append(p.sourceOpts, opts...)
	}
}

// WithRecorder records runs in history.
func WithRecorder(rec Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = rec
	}
}

// Pipeline sequences source resolution, per-ABI builds and artifact collection.
type Pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	executor   buildexec.Executor
	sourceOpts []source.Option
	recorder   Recorder
	sources    *source.Provider
	invoker    *ffconfigure.Invoker
}

// New constructs a pipeline for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sources = source.New(cfg, logger, p.sourceOpts...)
	p.invoker = ffconfigure.New(cfg, logger, ffconfigure.WithExecutor(p.executor))
	return p
}

// Run executes one build. With build.continue_on_error unset the run halts at
// the first failing ABI; otherwise every ABI is attempted and the returned
// error joins all failures. Completed ABIs stay in the output directory
// either way.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	result := Result{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, p.logger)

	targets, err := p.cfg.BuildTargets()
	if err != nil {
		return result, buildexec.Wrap(buildexec.ErrConfiguration, "pipeline", "targets", "", err)
	}
	targets, err = target.Filter(targets, req.ABIs)
	if err != nil {
		return result, buildexec.Wrap(buildexec.ErrConfiguration, "pipeline", "targets", "", err)
	}
	hostTag, err := toolchain.CurrentHostTag(p.cfg.NDK.HostTag)
	if err != nil {
		return result, buildexec.Wrap(buildexec.ErrConfiguration, "pipeline", "host tag", "", err)
	}

	lock, err := workspace.Acquire(p.cfg)
	if err != nil {
		return result, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release workspace lock", logging.Error(err))
		}
	}()
	if err := workspace.Prepare(p.cfg); err != nil {
		return result, err
	}

	srcReq := p.sources.Resolve(req.Source)
	started := time.Now()
	logger.Info("build started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source_kind", string(srcReq.Kind)),
		logging.String("source_ref", srcReq.Ref),
		logging.Int("targets", len(targets)),
	)
	p.record(ctx, "start run", func(rec Recorder) error {
		return rec.StartRun(ctx, history.Run{
			ID:         result.RunID,
			SourceKind: string(srcReq.Kind),
			SourceRef:  srcReq.Ref,
			Started:    started,
		})
	})

	runErr := p.build(ctx, logger, &result, srcReq, hostTag, targets)

	status := history.StatusSucceeded
	errMsg := ""
	if runErr != nil {
		status = history.StatusFailed
		errMsg = runErr.Error()
	}
	p.record(ctx, "finish run", func(rec Recorder) error {
		return rec.FinishRun(context.WithoutCancel(ctx), result.RunID, status, time.Now(), errMsg)
	})
	logger.Info("build finished",
		logging.String(logging.FieldEventType, "run_finish"),
		logging.String("status", string(status)),
		logging.Strings("succeeded", result.Succeeded()),
		logging.Duration("duration", time.Since(started)),
	)
	return result, runErr
}

func (p *Pipeline) build(ctx context.Context, logger *slog.Logger, result *Result, srcReq source.Request, hostTag string, targets []target.Target) error {
	tree, err := p.sources.Ensure(ctx, srcReq)
	if err != nil {
		return err
	}
	result.Tree = tree
	p.record(ctx, "update source", func(rec Recorder) error {
		return rec.UpdateSource(ctx, result.RunID, tree.Dir, tree.Commit)
	})

	decoders, err := ffconfigure.ReadDecoders(p.cfg.Paths.DecodersFile)
	if err != nil {
		return err
	}
	logger.Info("decoder list loaded", logging.Int("decoders", len(decoders)))

	var failures []error
	halted := false
	for i, t := range targets {
		if halted {
			tr := TargetResult{Target: t, Status: history.StatusSkipped}
			result.Targets = append(result.Targets, tr)
			p.recordTarget(ctx, result.RunID, i, tr)
			continue
		}

		tr := p.buildTarget(ctx, t, hostTag, tree.Dir, decoders)
		result.Targets = append(result.Targets, tr)
		p.recordTarget(ctx, result.RunID, i, tr)
		if tr.Err != nil {
			failures = append(failures, tr.Err)
			if !p.cfg.Build.ContinueOnError || ctx.Err() != nil {
				halted = true
			}
		}
	}

	for _, tr := range result.Targets {
		if tr.Status != history.StatusSucceeded {
			continue
		}
		abi := tr.Target.ABI.String()
		if err := artifacts.InstallHeaders(p.cfg.Paths.BuildDir, p.cfg.Paths.OutputDir, abi); err != nil {
			failures = append(failures, fmt.Errorf("install headers from %s: %w", abi, err))
		} else {
			result.HeadersFrom = abi
			logger.Info("headers installed", logging.String(logging.FieldABI, abi))
		}
		break
	}

	return errors.Join(failures...)
}

func (p *Pipeline) buildTarget(ctx context.Context, t target.Target, hostTag, sourceDir string, decoders []string) TargetResult {
	abi := t.ABI.String()
	ctx = logging.WithABI(ctx, abi)
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()
	tr := TargetResult{Target: t, Status: history.StatusFailed}

	fail := func(err error) TargetResult {
		tr.Err = err
		tr.Duration = time.Since(started)
		logger.Error("target failed",
			logging.String("error_category", buildexec.Category(err)),
			logging.Error(err),
		)
		return tr
	}

	logger.Info("target started", logging.Int("api_level", t.APILevel))
	tc, err := toolchain.Resolve(p.cfg.NDK.Home, hostTag, t)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", abi, buildexec.Wrap(buildexec.ErrConfiguration, "toolchain", "resolve", "", err)))
	}
	logger.Debug("toolchain resolved", logging.String("cc", tc.CC), logging.String("cross_prefix", tc.CrossPrefix))

	if _, err := p.invoker.Assemble(ctx, tc, sourceDir, decoders); err != nil {
		return fail(err)
	}

	findings, err := relocs.Scan(filepath.Join(p.invoker.Prefix(abi), "lib"))
	if err != nil {
		return fail(fmt.Errorf("%s: %w", abi, err))
	}
	if err := relocs.AppendReport(p.cfg.ReportPath(), abi, findings); err != nil {
		return fail(fmt.Errorf("%s: %w", abi, err))
	}
	flagged := relocs.Flagged(findings)
	tr.TextRelocations = len(flagged)
	if len(flagged) > 0 {
		names := make([]string, 0, len(flagged))
		for _, f := range flagged {
			names = append(names, f.Name)
		}
		logger.Warn("text relocations found", logging.Strings("libraries", names))
	}

	libs, err := artifacts.InstallLibs(p.cfg.Paths.BuildDir, p.cfg.Paths.OutputDir, abi)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", abi, err))
	}
	tr.Libraries = libs
	tr.Status = history.StatusSucceeded
	tr.Duration = time.Since(started)
	logger.Info("target complete",
		logging.Int("libraries", len(libs)),
		logging.Duration("duration", tr.Duration),
	)
	return tr
}

func (p *Pipeline) recordTarget(ctx context.Context, runID string, position int, tr TargetResult) {
	p.record(ctx, "record target", func(rec Recorder) error {
		row := history.Target{
			ABI:             tr.Target.ABI.String(),
			APILevel:        tr.Target.APILevel,
			Status:          tr.Status,
			Libraries:       len(tr.Libraries),
			TextRelocations: tr.TextRelocations,
			Duration:        tr.Duration,
		}
		if tr.Err != nil {
			row.Error = tr.Err.Error()
		}
		return rec.RecordTarget(context.WithoutCancel(ctx), runID, position, row)
	})
}

// record runs fn against the recorder. History is best effort and never
// fails a build.
func (p *Pipeline) record(ctx context.Context, what string, fn func(Recorder) error) {
	if p.recorder == nil {
		return
	}
	if err := fn(p.recorder); err != nil {
		logging.WithContext(ctx, p.logger).Warn("history update failed", logging.String("operation", what), logging.Error(err))
	}
}
