package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"ForecastDebate/internal/app"
	"ForecastDebate/internal/model"
	"ForecastDebate/internal/service"

	"github.com/spf13/cobra"
)

func newRunCmd(build Builder) *cobra.Command {
	var (
		marketID string
		models   []string
		rounds   int
		debateID string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create a debate (or resume one with --debate) and print its event stream",
		Example: `  debatectl run --market 12345 --model openai/gpt-4o-mini --model google/gemini-flash-1.5 --rounds 3
  debatectl run --debate 3f1c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debateID == "" && marketID == "" {
				return fmt.Errorf("either --market or --debate is required")
			}
			return withApp(build, func(a *app.App) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				id := debateID
				if id == "" {
					res, err := a.Service.CreateDebate(ctx, service.CreateDebateRequest{
						MarketID: marketID,
						ModelIDs: models,
						Rounds:   rounds,
					})
					if err != nil {
						return err
					}
					id = res.DebateID
					if !asJSON {
						fmt.Fprintf(out, "Debate %s: %s\n", id, res.Market.Question)
						fmt.Fprintf(out, "Outcomes: %s | %d rounds x %d models\n\n",
							strings.Join(model.Names(res.Market.Outcomes), ", "), res.Rounds, len(res.Models))
					}
				}
				return a.Service.Run(ctx, id, eventPrinter(out, asJSON))
			})
		},
	}
	cmd.Flags().StringVar(&marketID, "market", "", "Polymarket event id")
	cmd.Flags().StringArrayVar(&models, "model", nil, "participant model id (repeatable, speaking order)")
	cmd.Flags().IntVar(&rounds, "rounds", 3, "number of rounds")
	cmd.Flags().StringVar(&debateID, "debate", "", "resume an existing debate instead of creating one")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON lines")
	return cmd
}

// eventPrinter 把事件逐条写到终端
func eventPrinter(out io.Writer, asJSON bool) service.Emitter {
	enc := json.NewEncoder(out)
	return func(ev model.StreamEvent) {
		if asJSON {
			_ = enc.Encode(ev)
			return
		}
		switch d := ev.Data.(type) {
		case model.DebateStartedData:
			fmt.Fprintf(out, "[%s] debate started\n", d.Timestamp)
		case model.ModelThinkingData:
			fmt.Fprintf(out, "  ... %s is thinking (round %d)\n", d.ParticipantName, d.Round)
		case model.Message:
			fmt.Fprintf(out, "[R%d] %s: %s\n", d.Round, d.ParticipantName, d.Text)
			fmt.Fprintf(out, "     predictions: %s\n", formatPredictions(d.PredictionMap()))
		case model.ErrorData:
			who := d.ParticipantName
			if who == "" {
				who = "debate"
			}
			fmt.Fprintf(out, "  !! %s: %s (%s)\n", who, d.Message, d.Error)
		case model.DebateCompleteData:
			fmt.Fprintf(out, "\nDebate %s %s with %d messages\n", d.DebateID, d.Status, d.TotalMessages)
		}
	}
}

func formatPredictions(preds map[string]float64) string {
	names := make([]string, 0, len(preds))
	for k := range preds {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s %.2f%%", k, preds[k]))
	}
	return strings.Join(parts, ", ")
}
