package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/newthinker/folio/internal/storage/archive"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently archived checks",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of checks to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.Archive.Enabled {
		return fmt.Errorf("archive is disabled; set archive.enabled in the config")
	}

	store, err := archive.Open(cfg.Archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	checks, err := archive.NewCheckArchive(store).Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tOUTCOME\tAVERAGE\tINPUT")
	for _, c := range checks {
		avg := "-"
		if c.State.Average != nil {
			avg = c.State.Average.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%q\n",
			c.FinishedAt.Local().Format(time.DateTime), c.Outcome, avg, c.State.Input)
	}
	return w.Flush()
}
