package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeprep/placeprep/internal/progress"
)

func TestEventFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    progress.Event
		wantErr bool
	}{
		{
			name: "minimal",
			args: []string{"--question", "q1"},
			want: progress.Event{QuestionID: "q1"},
		},
		{
			name: "all flags",
			args: []string{
				"--question", "q2", "--correct", "--category", "dbms", "--difficulty", "hard",
				"--time", "2.5", "--prompt", "Define 3NF.", "--source", "mock", "--quiz", "weekly-quiz-1",
			},
			want: progress.Event{
				QuestionID: "q2", Correct: true, Category: "dbms", Difficulty: "hard",
				TimeTaken: progress.Minutes(2.5), Prompt: "Define 3NF.", Source: "mock", QuizID: "weekly-quiz-1",
			},
		},
		{
			name: "explicit zero time",
			args: []string{"--question", "q3", "--time", "0"},
			want: progress.Event{QuestionID: "q3", TimeTaken: progress.Minutes(0)},
		},
		{
			name:    "missing question",
			args:    []string{"--correct"},
			wantErr: true,
		},
		{
			name:    "negative time",
			args:    []string{"--question", "q4", "--time", "-1"},
			wantErr: true,
		},
		{
			name:    "NaN time",
			args:    []string{"--question", "q5", "--time", "NaN"},
			wantErr: true,
		},
		{
			name:    "infinite time",
			args:    []string{"--question", "q6", "--time", "+Inf"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cobra.Command{}
			addRecordFlags(c)
			require.NoError(t, c.Flags().Parse(tt.args))

			got, err := eventFromFlags(c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// run executes the root command with args and returns its stdout. Flag
// values persist on the package-level commands, so they are reset first.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestCLI_RecordStatsReset(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "prep.db")

	out, err := run(t, "record", "--db", db, "--question", "q1", "--correct", "--category", "dbms", "--difficulty", "easy", "--time", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 1 attempt(s).")

	_, err = run(t, "record", "--db", db, "--question", "q2", "--category", "os", "--quiz", "mock-1")
	require.NoError(t, err)

	// Re-answering q1 replaces the earlier answer.
	_, err = run(t, "record", "--db", db, "--question", "q1", "--category", "dbms", "--difficulty", "hard")
	require.NoError(t, err)

	out, err = run(t, "stats", "--db", db, "--json")
	require.NoError(t, err)

	var snap struct {
		Totals            progress.Totals         `json:"totals"`
		History           []progress.HistoryEntry `json:"history"`
		Accuracy          int                     `json:"accuracy"`
		CategoryBreakdown []map[string]any        `json:"categoryBreakdown"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, progress.Totals{Attempts: 2, Correct: 0, TimeSpentMinutes: 2}, snap.Totals)
	assert.Equal(t, 0, snap.Accuracy)
	require.Len(t, snap.History, 2)
	assert.Equal(t, "q1", snap.History[0].QuestionID)
	require.Len(t, snap.CategoryBreakdown, 2)
	assert.Equal(t, "dbms", snap.CategoryBreakdown[0]["category"])

	out, err = run(t, "history", "--db", db, "--all")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "q1"))

	_, err = run(t, "reset", "--db", db)
	assert.Error(t, err, "reset requires --yes")

	out, err = run(t, "reset", "--db", db, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress reset.")

	out, err = run(t, "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No attempts yet")

	out, err = run(t, "revisions", "--db", db, "--prune", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Kept the 1 most recent revision(s).")
}

func TestCLI_RecordJSONFromStdin(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "prep.db")

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(`[
		{"questionId": "q1", "correct": true, "category": "dbms"},
		{"questionId": "", "correct": true},
		{"questionId": "q2", "correct": false, "quizId": "quick-practice"}
	]`))
	rootCmd.SetArgs([]string{"record", "--db", db, "--json", "-"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "skipped:")
	assert.Contains(t, out.String(), "Recorded 2 attempt(s).")
	assert.Contains(t, out.String(), "Quick practice")
}

func TestCLI_RecordRejectsNonFiniteTime(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "prep.db")

	for _, v := range []string{"NaN", "+Inf", "-Inf"} {
		out, err := run(t, "record", "--db", db, "--question", "q1", "--time", v)
		assert.Error(t, err, v)
		assert.NotContains(t, out, "Recorded", v)
	}

	_, err := run(t, "record", "--db", db, "--question", "q2", "--time", "3")
	require.NoError(t, err)

	out, err := run(t, "stats", "--db", db, "--json")
	require.NoError(t, err)
	var snap struct {
		Totals progress.Totals `json:"totals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, progress.Totals{Attempts: 1, TimeSpentMinutes: 3}, snap.Totals)
}

func TestCLI_RecordEmptyJSON(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "prep.db")

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(`[]`))
	rootCmd.SetArgs([]string{"record", "--db", db, "--json", "-"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no events")
}

func TestCLI_Ephemeral(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, err := run(t, "record", "--ephemeral", "--question", "q1", "--correct")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 1 attempt(s).")

	_, err = run(t, "history", "--ephemeral", "--all")
	assert.ErrorIs(t, err, errEphemeral)

	_, err = run(t, "revisions", "--ephemeral")
	assert.ErrorIs(t, err, errEphemeral)
}

func TestCLI_Version(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "placeprep (devel)\n", out)
}
