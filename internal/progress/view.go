package progress

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// Breakdown is the list form of one rollup bucket.
type Breakdown struct {
	Dimension    string `json:"-"` // "category" or "difficulty"
	Key          string `json:"key"`
	Attempts     int    `json:"attempts"`
	Correct      int    `json:"correct"`
	AverageScore int    `json:"averageScore"`
}

// MarshalJSON also emits the key under the dimension name, e.g.
// {"key":"dbms","category":"dbms",...}.
func (b Breakdown) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"key":          b.Key,
		"attempts":     b.Attempts,
		"correct":      b.Correct,
		"averageScore": b.AverageScore,
	}
	if b.Dimension != "" {
		out[b.Dimension] = b.Key
	}
	return json.Marshal(out)
}

// PracticeStats aggregates the quick-practice attempts.
type PracticeStats struct {
	Attempts         int     `json:"attempts"`
	Correct          int     `json:"correct"`
	TimeSpentMinutes float64 `json:"timeSpentMinutes"`
	Accuracy         int     `json:"accuracy"`
}

// QuizStat aggregates the attempts belonging to one named quiz.
type QuizStat struct {
	QuizID           string    `json:"quizId"`
	Answered         int       `json:"answered"`
	Correct          int       `json:"correct"`
	TimeSpentMinutes float64   `json:"timeSpentMinutes"`
	LastUpdated      time.Time `json:"lastUpdated"`
	Accuracy         int       `json:"accuracy"`
}

// View holds the statistics derived from a State.
type View struct {
	Accuracy            int                 `json:"accuracy"`
	CategoryBreakdown   []Breakdown         `json:"categoryBreakdown"`
	DifficultyBreakdown []Breakdown         `json:"difficultyBreakdown"`
	QuickPractice       PracticeStats       `json:"quickPractice"`
	QuizStats           map[string]QuizStat `json:"quizStats"`
}

// Derive computes the view for s. It does not modify s and caches nothing.
func Derive(s State) View {
	v := View{
		Accuracy:            percent(s.Totals.Correct, s.Totals.Attempts),
		CategoryBreakdown:   breakdown("category", s.Category),
		DifficultyBreakdown: breakdown("difficulty", s.Difficulty),
		QuizStats:           make(map[string]QuizStat),
	}

	for _, rec := range s.Attempts {
		switch rec.QuizID {
		case "":
			continue
		case QuickPracticeQuizID:
			v.QuickPractice.Attempts++
			if rec.Correct {
				v.QuickPractice.Correct++
			}
			v.QuickPractice.TimeSpentMinutes += rec.TimeTaken
		default:
			qs := v.QuizStats[rec.QuizID]
			qs.QuizID = rec.QuizID
			qs.Answered++
			if rec.Correct {
				qs.Correct++
			}
			qs.TimeSpentMinutes += rec.TimeTaken
			if rec.UpdatedAt.After(qs.LastUpdated) {
				qs.LastUpdated = rec.UpdatedAt
			}
			v.QuizStats[rec.QuizID] = qs
		}
	}

	v.QuickPractice.Accuracy = percent(v.QuickPractice.Correct, v.QuickPractice.Attempts)
	for id, qs := range v.QuizStats {
		qs.Accuracy = percent(qs.Correct, qs.Answered)
		v.QuizStats[id] = qs
	}
	return v
}

// QuizStatsByRecent lists the quiz stats, most recently answered first.
func (v View) QuizStatsByRecent() []QuizStat {
	out := make([]QuizStat, 0, len(v.QuizStats))
	for _, qs := range v.QuizStats {
		out = append(out, qs)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].QuizID < out[j].QuizID
	})
	return out
}

func breakdown(dimension string, r Rollup) []Breakdown {
	out := make([]Breakdown, 0, r.Len())
	for _, key := range r.keys {
		b := r.buckets[key]
		out = append(out, Breakdown{
			Dimension:    dimension,
			Key:          key,
			Attempts:     b.Attempts,
			Correct:      b.Correct,
			AverageScore: percent(b.Correct, b.Attempts),
		})
	}
	return out
}

// percent returns round(100*part/whole), or 0 when whole is 0.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}
