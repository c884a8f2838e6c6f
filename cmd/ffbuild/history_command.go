package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ffbuild/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent build runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "Run history is disabled (history.enabled = false)")
				return nil
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func renderHistoryTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		succeeded := 0
		for _, t := range run.Targets {
			if t.Status == history.StatusSucceeded {
				succeeded++
			}
		}
		src := run.SourceKind
		if run.SourceRef != "" {
			src += " " + run.SourceRef
		}
		rows = append(rows, []string{
			id,
			run.Started.Local().Format("2006-01-02 15:04"),
			src,
			string(run.Status),
			fmt.Sprintf("%d/%d", succeeded, len(run.Targets)),
			formatDuration(run.Duration()),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Source", "Status", "Targets", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}
