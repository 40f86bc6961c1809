package progress

import (
	"fmt"
	"time"
)

// Empty returns the default state: no attempts, no buckets, no history and
// a nil LastUpdated.
func Empty() State {
	return State{
		Attempts: make(Ledger),
		History:  []HistoryEntry{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Attempts:   make(Ledger, len(s.Attempts)),
		Category:   s.Category.clone(),
		Difficulty: s.Difficulty.clone(),
		Totals:     s.Totals,
		History:    make([]HistoryEntry, len(s.History)),
	}
	for id, rec := range s.Attempts {
		out.Attempts[id] = rec
	}
	copy(out.History, s.History)
	if s.LastUpdated != nil {
		t := *s.LastUpdated
		out.LastUpdated = &t
	}
	return out
}

// Apply records ev against s and returns the resulting state. s is left
// untouched. An event without a question ID is ignored and reported with
// ok == false.
//
// A question that already has a live record is first backed out of every
// aggregate and of the history, then the new answer is applied, so the
// ledger never counts a question twice.
func Apply(s State, ev Event, now time.Time) (next State, ok bool) {
	if ev.QuestionID == "" {
		return s, false
	}

	next = s.Clone()
	if old, exists := next.Attempts[ev.QuestionID]; exists {
		next.unapply(old)
	}

	rec := ev.record(now)
	next.Totals.Attempts++
	if rec.Correct {
		next.Totals.Correct++
	}
	next.Totals.TimeSpentMinutes += rec.TimeTaken
	next.Category.add(rec.Category, rec.Correct)
	next.Difficulty.add(rec.Difficulty, rec.Correct)
	next.Attempts[rec.QuestionID] = rec

	history := make([]HistoryEntry, 0, HistoryLimit)
	history = append(history, historyEntry(rec, now))
	for _, h := range next.History {
		if len(history) == HistoryLimit {
			break
		}
		if h.QuestionID == rec.QuestionID {
			continue
		}
		history = append(history, h)
	}
	next.History = history

	stamp := now
	next.LastUpdated = &stamp
	return next, true
}

// unapply reverses the contribution of old to the totals and rollups and
// removes it from the ledger. Counters never go below zero.
func (s *State) unapply(old AttemptRecord) {
	s.Totals.Attempts = max(s.Totals.Attempts-1, 0)
	if old.Correct {
		s.Totals.Correct = max(s.Totals.Correct-1, 0)
	}
	s.Totals.TimeSpentMinutes = max(s.Totals.TimeSpentMinutes-old.TimeTaken, 0)
	s.Category.remove(old.Category, old.Correct)
	s.Difficulty.remove(old.Difficulty, old.Correct)
	delete(s.Attempts, old.QuestionID)
}

func historyEntry(rec AttemptRecord, now time.Time) HistoryEntry {
	return HistoryEntry{
		ID:         fmt.Sprintf("%s-%d", rec.QuestionID, now.UnixMilli()),
		QuestionID: rec.QuestionID,
		Correct:    rec.Correct,
		Category:   rec.Category,
		Difficulty: rec.Difficulty,
		TimeTaken:  rec.TimeTaken,
		Timestamp:  now,
		Prompt:     rec.Prompt,
		Source:     rec.Source,
		QuizID:     rec.QuizID,
	}
}
