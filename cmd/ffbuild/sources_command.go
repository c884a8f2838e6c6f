package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ffbuild/internal/source"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List cached FFmpeg source trees",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cached, err := source.New(cfg, nil).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cached) == 0 {
				fmt.Fprintf(out, "No cached source trees in %s\n", cfg.Paths.SourcesDir)
				return nil
			}
			rows := make([][]string, 0, len(cached))
			for _, c := range cached {
				commit := c.Commit
				if len(commit) > 12 {
					commit = commit[:12]
				}
				if commit == "" {
					commit = "-"
				}
				rows = append(rows, []string{string(c.Kind), c.Ref, commit, c.Dir})
			}
			fmt.Fprintln(out, renderTable([]string{"Kind", "Ref", "Commit", "Directory"}, rows, nil))
			return nil
		},
	}
}
