package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"ffbuild/internal/config"
	"ffbuild/internal/history"
	"ffbuild/internal/logging"
	"ffbuild/internal/pipeline"
	"ffbuild/internal/preflight"
	"ffbuild/internal/source"
	"ffbuild/internal/target"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var (
		jobs            int
		abis            []string
		continueOnError bool
		decodersFile    string
	)

	cmd := &cobra.Command{
		Use:   "build [tag <version> | branch <name>]",
		Short: "Fetch FFmpeg and build it for every configured ABI",
		Long: "Fetch FFmpeg sources and cross-compile shared libraries for each configured Android ABI.\n\n" +
			"  ffbuild build tag 4.1.3     build a released version (cached after the first download)\n" +
			"  ffbuild build branch master force-pull a branch of the upstream repository\n\n" +
			"Any other arguments, or none, build the configured default release.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = ctx.close() }()

			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			flags := cmd.Flags()
			if flags.Changed("jobs") {
				if jobs <= 0 {
					return fmt.Errorf("--jobs must be positive")
				}
				cfg.Build.Jobs = jobs
			}
			if flags.Changed("continue-on-error") {
				cfg.Build.ContinueOnError = continueOnError
			}
			if flags.Changed("decoders") {
				path, err := config.ExpandPath(decodersFile)
				if err != nil {
					return err
				}
				cfg.Paths.DecodersFile = path
			}

			targets, err := cfg.BuildTargets()
			if err != nil {
				return err
			}
			targets, err = target.Filter(targets, abis)
			if err != nil {
				return err
			}
			if err := preflight.Failures(preflight.RunAll(&cfg, targets)); err != nil {
				return fmt.Errorf("%w (run `ffbuild check` for details)", err)
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			opts := []pipeline.Option{}
			if cfg.History.Enabled {
				store, err := history.Open(cfg.History.Path)
				if err != nil {
					logger.Warn("run history unavailable", logging.Error(err))
				} else {
					defer store.Close()
					opts = append(opts, pipeline.WithRecorder(store))
				}
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			result, runErr := pipeline.New(&cfg, logger, opts...).Run(runCtx, pipeline.Request{
				Source: parseSourceArgs(args),
				ABIs:   abis,
			})
			if len(result.Targets) > 0 {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderBuildSummary(result))
				if succeeded := result.Succeeded(); len(succeeded) > 0 {
					fmt.Fprintf(out, "Output: %s\n", cfg.Paths.OutputDir)
				}
			}
			return runErr
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Parallel make jobs (overrides build.jobs)")
	cmd.Flags().StringSliceVar(&abis, "abi", nil, "Build only these ABIs (repeatable)")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep building remaining ABIs after a failure")
	cmd.Flags().StringVar(&decodersFile, "decoders", "", "Decoder allowlist file (overrides paths.decoders_file)")
	return cmd
}

// parseSourceArgs maps "tag <v>" and "branch <b>" to a source request.
// Anything else selects the default release.
func parseSourceArgs(args []string) source.Request {
	if len(args) == 0 {
		return source.Request{}
	}
	req := source.Request{Kind: source.ParseKind(args[0])}
	if req.Kind == "" {
		return source.Request{}
	}
	if len(args) > 1 {
		req.Ref = args[1]
	}
	return req
}

func renderBuildSummary(result pipeline.Result) string {
	rows := make([][]string, 0, len(result.Targets))
	for _, tr := range result.Targets {
		duration := "-"
		if tr.Duration > 0 {
			duration = formatDuration(tr.Duration)
		}
		rows = append(rows, []string{
			tr.Target.ABI.String(),
			strconv.Itoa(tr.Target.APILevel),
			string(tr.Status),
			strconv.Itoa(len(tr.Libraries)),
			strconv.Itoa(tr.TextRelocations),
			duration,
		})
	}
	return renderTable(
		[]string{"ABI", "API", "Status", "Libraries", "TEXTREL", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight},
	)
}
