package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"ForecastDebate/internal/app"
	"ForecastDebate/internal/repository"

	"github.com/spf13/cobra"
)

func newShowCmd(build Builder) *cobra.Command {
	return &cobra.Command{
		Use:   "show DEBATE_ID",
		Short: "Print a debate transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(build, func(a *app.App) error {
				d, err := a.Service.GetDebate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\n%s\n", d.MarketQuestion, strings.Repeat("-", 50))
				fmt.Fprintf(out, "Status: %s  Round: %d/%d  Messages: %d\n\n", d.Status, d.CurrentRound, d.Rounds, len(d.Messages))
				for _, m := range d.Messages {
					fmt.Fprintf(out, "#%d [R%d %s] %s: %s\n", m.Sequence, m.Round, m.Kind, m.ParticipantName, m.Text)
					fmt.Fprintf(out, "     predictions: %s\n", formatPredictions(m.PredictionMap()))
				}
				return nil
			})
		},
	}
}

func newResultsCmd(build Builder) *cobra.Command {
	return &cobra.Command{
		Use:   "results DEBATE_ID",
		Short: "Print summary, final predictions and statistics of a completed debate as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(build, func(a *app.App) error {
				res, err := a.Service.Results(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			})
		},
	}
}

func newListCmd(build Builder) *cobra.Command {
	var (
		status   string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List debates, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(build, func(a *app.App) error {
				items, total, err := a.Service.ListDebates(cmd.Context(), repository.DebateFilter{Status: status}, page, pageSize)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "DEBATE\tSTATUS\tROUND\tMODELS\tQUESTION")
				for _, it := range items {
					fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%s\n", it.DebateID, it.Status, it.CurrentRound, it.Rounds, it.ModelsCount, it.MarketQuestion)
				}
				fmt.Fprintf(w, "\n%d total\n", total)
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	return cmd
}
