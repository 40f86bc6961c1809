package cmd

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/placeprep/placeprep/internal/progress"
	"github.com/placeprep/placeprep/internal/report"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a quiz attempt",
	Long: "Record one answered question from flags, or a JSON event (or array of events) " +
		"with --json FILE, using - for stdin. Re-recording a question replaces its previous answer.",
	Example: `  placeprep record --question q1 --correct --category dbms --difficulty easy --time 2
  placeprep record --json attempts.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := eventsFromCommand(cmd)
		if len(events) == 0 {
			if err == nil {
				err = errors.New("record: no events in input")
			}
			return err
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "skipped:", err)
		}

		return withSession(cmd, func(s *session) error {
			recorded := 0
			for _, ev := range events {
				if s.tracker.Record(cmd.Context(), ev) {
					recorded++
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recorded %d attempt(s).\n\n", recorded)
			_, err := lipgloss.Fprintln(out, report.Stats(s.tracker.Snapshot(), reportWidth))
			return err
		})
	},
}

func init() {
	addRecordFlags(recordCmd)
}

func addRecordFlags(c *cobra.Command) {
	f := c.Flags()
	f.String("question", "", "Question identifier")
	f.Bool("correct", false, "The answer was correct")
	f.String("category", "", "Question category (default \"general\")")
	f.String("difficulty", "", "Question difficulty (default \"unknown\")")
	f.Float64("time", progress.DefaultTimeTaken, "Minutes spent on the question")
	f.String("prompt", "", "Question text, for display")
	f.String("source", "", "Where the question came from (default \"quiz\")")
	f.String("quiz", "", "Quiz identifier; use \"quick-practice\" for ad hoc practice")
	f.String("json", "", "Read events from a JSON file, or - for stdin")
}

// eventsFromCommand reads events from --json or builds one from flags.
func eventsFromCommand(cmd *cobra.Command) ([]progress.Event, error) {
	if path, _ := cmd.Flags().GetString("json"); path != "" {
		var r io.Reader = cmd.InOrStdin()
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open events: %w", err)
			}
			defer f.Close()
			r = f
		}
		return progress.ParseEvents(r)
	}

	ev, err := eventFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	return []progress.Event{ev}, nil
}

func eventFromFlags(cmd *cobra.Command) (progress.Event, error) {
	f := cmd.Flags()
	var ev progress.Event
	ev.QuestionID, _ = f.GetString("question")
	if ev.QuestionID == "" {
		return ev, errors.New("record: --question or --json is required")
	}
	ev.Correct, _ = f.GetBool("correct")
	ev.Category, _ = f.GetString("category")
	ev.Difficulty, _ = f.GetString("difficulty")
	ev.Prompt, _ = f.GetString("prompt")
	ev.Source, _ = f.GetString("source")
	ev.QuizID, _ = f.GetString("quiz")
	if f.Changed("time") {
		minutes, _ := f.GetFloat64("time")
		if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
			return ev, fmt.Errorf("record: --time must be a finite, non-negative number, got %v", minutes)
		}
		ev.TimeTaken = progress.Minutes(minutes)
	}
	return ev, nil
}
