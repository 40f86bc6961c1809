// Package report renders progress snapshots and store listings for the terminal.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/placeprep/placeprep/internal/progress"
	"github.com/placeprep/placeprep/internal/store"
	"github.com/placeprep/placeprep/internal/ui/theme"
)

const timeLayout = "Jan 02 15:04"

// Stats renders totals, breakdowns, quick practice and per-quiz stats.
func Stats(snap progress.Snapshot, width int) string {
	var b strings.Builder

	b.WriteString(theme.Title.Render("Quiz progress"))
	b.WriteString("\n")

	if snap.Totals.Attempts == 0 {
		b.WriteString(theme.Hint.Render("No attempts yet. Answer a question to get started."))
		return b.String()
	}

	b.WriteString(field("Answered", strconv.Itoa(snap.Totals.Attempts)))
	b.WriteString(field("Correct", strconv.Itoa(snap.Totals.Correct)))
	b.WriteString(field("Time spent", minutes(snap.Totals.TimeSpentMinutes)))
	if snap.LastUpdated != nil {
		b.WriteString(field("Last activity", snap.LastUpdated.Local().Format(timeLayout)))
	}
	b.WriteString(Bar("Accuracy", snap.Accuracy, width))
	b.WriteString("\n")

	b.WriteString(theme.Section.Render("By category"))
	b.WriteString("\n")
	b.WriteString(breakdownTable("Category", snap.CategoryBreakdown))
	b.WriteString("\n")

	b.WriteString(theme.Section.Render("By difficulty"))
	b.WriteString("\n")
	b.WriteString(breakdownTable("Difficulty", snap.DifficultyBreakdown))
	b.WriteString("\n")

	if qp := snap.QuickPractice; qp.Attempts > 0 {
		b.WriteString(theme.Section.Render("Quick practice"))
		b.WriteString("\n")
		b.WriteString(field("Answered", strconv.Itoa(qp.Attempts)))
		b.WriteString(field("Correct", strconv.Itoa(qp.Correct)))
		b.WriteString(field("Time spent", minutes(qp.TimeSpentMinutes)))
		b.WriteString(field("Accuracy", theme.ScoreStyle(qp.Accuracy).Render(pct(qp.Accuracy))))
	}

	if quizzes := snap.QuizStatsByRecent(); len(quizzes) > 0 {
		b.WriteString(theme.Section.Render("Quizzes"))
		b.WriteString("\n")
		rows := make([][]string, 0, len(quizzes))
		for _, qs := range quizzes {
			rows = append(rows, []string{
				qs.QuizID,
				strconv.Itoa(qs.Answered),
				strconv.Itoa(qs.Correct),
				minutes(qs.TimeSpentMinutes),
				pct(qs.Accuracy),
				qs.LastUpdated.Local().Format(timeLayout),
			})
		}
		b.WriteString(newTable("Quiz", "Answered", "Correct", "Time", "Accuracy", "Last").Rows(rows...).String())
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// History renders the bounded recent-attempt log.
func History(entries []progress.HistoryEntry) string {
	if len(entries) == 0 {
		return theme.Hint.Render("No recent attempts.")
	}
	rows := make([][]string, 0, len(entries))
	for _, h := range entries {
		rows = append(rows, []string{
			h.Timestamp.Local().Format(timeLayout),
			h.QuestionID,
			verdict(h.Correct),
			h.Category,
			h.Difficulty,
			minutes(h.TimeTaken),
			orDash(h.QuizID),
		})
	}
	return newTable("When", "Question", "Result", "Category", "Difficulty", "Time", "Quiz").
		Rows(rows...).String()
}

// Events renders the stored progress event log.
func Events(records []store.ProgressEventRecord) string {
	if len(records) == 0 {
		return theme.Hint.Render("No events recorded.")
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		if r.Kind == store.EventReset {
			rows = append(rows, []string{
				strconv.FormatInt(r.Sequence, 10),
				r.RecordedAt.Local().Format(timeLayout),
				"reset", "", "", "", "", "",
			})
			continue
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.Sequence, 10),
			r.RecordedAt.Local().Format(timeLayout),
			r.QuestionID,
			verdict(r.Correct),
			r.Category,
			r.Difficulty,
			minutes(r.TimeTaken),
			orDash(r.QuizID),
		})
	}
	return newTable("Seq", "When", "Question", "Result", "Category", "Difficulty", "Time", "Quiz").
		Rows(rows...).String()
}

// Revisions renders stored revisions of the progress blob.
func Revisions(revs []store.Revision) string {
	if len(revs) == 0 {
		return theme.Hint.Render("No revisions stored.")
	}
	rows := make([][]string, 0, len(revs))
	for _, r := range revs {
		rows = append(rows, []string{
			r.ID,
			strconv.FormatInt(r.Sequence, 10),
			r.SavedAt.Local().Format(time.DateTime),
			fmt.Sprintf("%d B", r.Size),
		})
	}
	return newTable("Revision", "Seq", "Saved", "Size").Rows(rows...).String()
}

// Bar renders a labelled horizontal bar for a 0-100 percentage.
func Bar(label string, percent, width int) string {
	prefix := theme.Label.Render(label) + "  "
	suffix := "  " + theme.ScoreStyle(percent).Render(pct(percent))

	barWidth := width - lipgloss.Width(prefix) - lipgloss.Width(suffix)
	if barWidth < 4 {
		barWidth = 4
	}
	filled := barWidth * min(max(percent, 0), 100) / 100
	empty := barWidth - filled

	return prefix +
		theme.BarFilled.Render(strings.Repeat(" ", filled)) +
		theme.BarEmpty.Render(strings.Repeat(" ", empty)) +
		suffix + "\n"
}

func breakdownTable(dimension string, rows []progress.Breakdown) string {
	if len(rows) == 0 {
		return theme.Hint.Render("none")
	}
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.Key,
			strconv.Itoa(r.Attempts),
			strconv.Itoa(r.Correct),
			pct(r.AverageScore),
		})
	}
	return newTable(dimension, "Attempts", "Correct", "Score").Rows(data...).String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorder).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			return theme.TableCell
		}).
		Headers(headers...)
}

func field(label, value string) string {
	return theme.Label.Render(fmt.Sprintf("%-14s", label)) + theme.Value.Render(value) + "\n"
}

func verdict(correct bool) string {
	if correct {
		return theme.Correct.Render("correct")
	}
	return theme.Incorrect.Render("wrong")
}

func minutes(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64) + " min"
}

func pct(v int) string {
	return strconv.Itoa(v) + "%"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
