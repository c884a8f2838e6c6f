package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ffbuild/internal/preflight"
	"ffbuild/internal/target"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var abis []string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the NDK, toolchains, make, and decoder list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targets, err := cfg.BuildTargets()
			if err != nil {
				return err
			}
			if targets, err = target.Filter(targets, abis); err != nil {
				return err
			}

			results := preflight.RunAll(cfg, targets)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Environment", colorize)
			lines = append(lines, renderStatusLine("Config", statusInfo, configSummary(ctx), colorize))
			lines = append(lines, renderCheckResults(results, colorize)...)
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if err := preflight.Failures(results); err != nil {
				return err
			}
			fmt.Fprintln(out, "Ready to build")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&abis, "abi", nil, "Check only these ABIs (repeatable)")
	return cmd
}

func configSummary(ctx *commandContext) string {
	if !ctx.configExists {
		return ctx.configPath + " (defaults)"
	}
	return ctx.configPath
}
