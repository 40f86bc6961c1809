package progress

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func at(m int) time.Time {
	return t0.Add(time.Duration(m) * time.Minute)
}

func mustApply(t *testing.T, s State, ev Event, now time.Time) State {
	t.Helper()
	next, ok := Apply(s, ev, now)
	if !ok {
		t.Fatalf("Apply(%+v) ignored the event", ev)
	}
	return next
}

func checkInvariants(t *testing.T, s State) {
	t.Helper()
	if s.Totals.Attempts != len(s.Attempts) {
		t.Errorf("totals.attempts = %d, ledger has %d", s.Totals.Attempts, len(s.Attempts))
	}
	for _, r := range []Rollup{s.Category, s.Difficulty} {
		for _, k := range r.Keys() {
			b, _ := r.Get(k)
			if b.Attempts <= 0 {
				t.Errorf("bucket %q has %d attempts", k, b.Attempts)
			}
			if b.Correct < 0 || b.Correct > b.Attempts {
				t.Errorf("bucket %q correct = %d, attempts = %d", k, b.Correct, b.Attempts)
			}
		}
	}
	if len(s.History) > HistoryLimit {
		t.Errorf("history length = %d, want <= %d", len(s.History), HistoryLimit)
	}
	seen := make(map[string]bool)
	for i, h := range s.History {
		if seen[h.QuestionID] {
			t.Errorf("history has duplicate entry for %q", h.QuestionID)
		}
		seen[h.QuestionID] = true
		if i > 0 && h.Timestamp.After(s.History[i-1].Timestamp) {
			t.Errorf("history[%d] is newer than history[%d]", i, i-1)
		}
	}
}

func TestApply_IgnoresMissingQuestionID(t *testing.T) {
	s := Empty()
	next, ok := Apply(s, Event{Correct: true, Category: "math"}, t0)
	if ok {
		t.Fatal("expected event without question ID to be ignored")
	}
	if next.Totals != (Totals{}) || next.LastUpdated != nil || len(next.History) != 0 {
		t.Errorf("state changed: %+v", next)
	}
}

func TestApply_Defaults(t *testing.T) {
	s := mustApply(t, Empty(), Event{QuestionID: "q1"}, t0)

	rec := s.Attempts["q1"]
	if rec.Category != DefaultCategory {
		t.Errorf("category = %q, want %q", rec.Category, DefaultCategory)
	}
	if rec.Difficulty != DefaultDifficulty {
		t.Errorf("difficulty = %q, want %q", rec.Difficulty, DefaultDifficulty)
	}
	if rec.TimeTaken != DefaultTimeTaken {
		t.Errorf("timeTaken = %v, want %v", rec.TimeTaken, DefaultTimeTaken)
	}
	if rec.Source != DefaultSource {
		t.Errorf("source = %q, want %q", rec.Source, DefaultSource)
	}
	if !rec.UpdatedAt.Equal(t0) {
		t.Errorf("updatedAt = %v, want %v", rec.UpdatedAt, t0)
	}
	if s.Totals.TimeSpentMinutes != 1 {
		t.Errorf("timeSpentMinutes = %v, want 1", s.Totals.TimeSpentMinutes)
	}
	if _, ok := s.Category.Get(DefaultCategory); !ok {
		t.Error("expected default category bucket")
	}
}

func TestApply_ZeroTimeIsKept(t *testing.T) {
	s := mustApply(t, Empty(), Event{QuestionID: "q1", TimeTaken: Minutes(0)}, t0)
	if s.Totals.TimeSpentMinutes != 0 {
		t.Errorf("timeSpentMinutes = %v, want 0", s.Totals.TimeSpentMinutes)
	}
}

func TestApply_NegativeTimeClamped(t *testing.T) {
	s := mustApply(t, Empty(), Event{QuestionID: "q1", TimeTaken: Minutes(-5)}, t0)
	if s.Attempts["q1"].TimeTaken != 0 {
		t.Errorf("timeTaken = %v, want 0", s.Attempts["q1"].TimeTaken)
	}
	if s.Totals.TimeSpentMinutes != 0 {
		t.Errorf("timeSpentMinutes = %v, want 0", s.Totals.TimeSpentMinutes)
	}
}

func TestApply_NonFiniteTimeUsesDefault(t *testing.T) {
	for _, m := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		s := mustApply(t, Empty(), Event{QuestionID: "q1", TimeTaken: Minutes(m)}, t0)
		s = mustApply(t, s, Event{QuestionID: "q2", TimeTaken: Minutes(2)}, at(1))

		if got := s.Attempts["q1"].TimeTaken; got != DefaultTimeTaken {
			t.Errorf("timeTaken(%v) = %v, want %v", m, got, DefaultTimeTaken)
		}
		if got := s.Totals.TimeSpentMinutes; got != DefaultTimeTaken+2 {
			t.Errorf("timeSpentMinutes after %v = %v, want %v", m, got, DefaultTimeTaken+2)
		}
		if _, err := json.Marshal(s); err != nil {
			t.Errorf("marshal state after %v: %v", m, err)
		}
	}
}

func TestApply_ReplaceMovesBetweenBuckets(t *testing.T) {
	s := mustApply(t, Empty(), Event{
		QuestionID: "q1", Correct: true, Category: "math", Difficulty: "easy", TimeTaken: Minutes(2),
	}, at(0))
	s = mustApply(t, s, Event{
		QuestionID: "q1", Correct: false, Category: "math", Difficulty: "hard", TimeTaken: Minutes(3),
	}, at(1))

	want := Totals{Attempts: 1, Correct: 0, TimeSpentMinutes: 3}
	if s.Totals != want {
		t.Errorf("totals = %+v, want %+v", s.Totals, want)
	}
	if b, _ := s.Category.Get("math"); b != (Bucket{Attempts: 1, Correct: 0}) {
		t.Errorf("category.math = %+v, want {1 0}", b)
	}
	if _, ok := s.Difficulty.Get("easy"); ok {
		t.Error("difficulty.easy should have been removed")
	}
	if b, _ := s.Difficulty.Get("hard"); b != (Bucket{Attempts: 1, Correct: 0}) {
		t.Errorf("difficulty.hard = %+v, want {1 0}", b)
	}
	if len(s.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(s.History))
	}
	if s.History[0].QuestionID != "q1" || s.History[0].Difficulty != "hard" {
		t.Errorf("history[0] = %+v, want q1/hard", s.History[0])
	}
	checkInvariants(t, s)
}

func TestApply_ResubmitLeavesAggregatesUnchanged(t *testing.T) {
	ev := Event{QuestionID: "q1", Correct: true, Category: "os", Difficulty: "medium", TimeTaken: Minutes(4)}
	s := mustApply(t, Empty(), ev, at(0))
	s = mustApply(t, s, Event{QuestionID: "q2", Category: "os"}, at(1))

	before := s.Clone()
	s = mustApply(t, s, ev, at(2))

	if s.Totals != before.Totals {
		t.Errorf("totals = %+v, want %+v", s.Totals, before.Totals)
	}
	for _, k := range before.Category.Keys() {
		got, _ := s.Category.Get(k)
		want, _ := before.Category.Get(k)
		if got != want {
			t.Errorf("category[%q] = %+v, want %+v", k, got, want)
		}
	}
	for _, k := range before.Difficulty.Keys() {
		got, _ := s.Difficulty.Get(k)
		want, _ := before.Difficulty.Get(k)
		if got != want {
			t.Errorf("difficulty[%q] = %+v, want %+v", k, got, want)
		}
	}

	if s.History[0].QuestionID != "q1" {
		t.Errorf("history[0] = %q, want q1 moved to front", s.History[0].QuestionID)
	}
	if !s.History[0].Timestamp.Equal(at(2)) {
		t.Errorf("history[0].timestamp = %v, want %v", s.History[0].Timestamp, at(2))
	}
	if !s.LastUpdated.Equal(at(2)) {
		t.Errorf("lastUpdated = %v, want %v", s.LastUpdated, at(2))
	}
	checkInvariants(t, s)
}

func TestApply_HistoryEvictsOldest(t *testing.T) {
	s := Empty()
	for i := 0; i < HistoryLimit+1; i++ {
		s = mustApply(t, s, Event{QuestionID: fmt.Sprintf("q%02d", i)}, at(i))
	}

	if len(s.History) != HistoryLimit {
		t.Fatalf("history length = %d, want %d", len(s.History), HistoryLimit)
	}
	if s.History[0].QuestionID != "q25" {
		t.Errorf("newest = %q, want q25", s.History[0].QuestionID)
	}
	for _, h := range s.History {
		if h.QuestionID == "q00" {
			t.Error("oldest entry q00 should have been evicted")
		}
	}
	// The ledger is not bounded by the history.
	if s.Totals.Attempts != HistoryLimit+1 {
		t.Errorf("totals.attempts = %d, want %d", s.Totals.Attempts, HistoryLimit+1)
	}
}

func TestApply_HistoryEntryID(t *testing.T) {
	s := mustApply(t, Empty(), Event{QuestionID: "q7"}, t0)
	want := fmt.Sprintf("q7-%d", t0.UnixMilli())
	if s.History[0].ID != want {
		t.Errorf("id = %q, want %q", s.History[0].ID, want)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := mustApply(t, Empty(), Event{QuestionID: "q1", Correct: true, Category: "dbms"}, at(0))
	snapshot := s.Clone()

	_ = mustApply(t, s, Event{QuestionID: "q1", Category: "networks"}, at(1))
	_ = mustApply(t, s, Event{QuestionID: "q2", Category: "dbms"}, at(2))

	if s.Totals != snapshot.Totals {
		t.Errorf("input totals changed: %+v", s.Totals)
	}
	if len(s.Attempts) != 1 || s.Attempts["q1"].Category != "dbms" {
		t.Errorf("input ledger changed: %+v", s.Attempts)
	}
	if b, _ := s.Category.Get("dbms"); b != (Bucket{Attempts: 1, Correct: 1}) {
		t.Errorf("input category.dbms = %+v", b)
	}
	if s.Category.Len() != 1 {
		t.Errorf("input category has %d buckets, want 1", s.Category.Len())
	}
	if len(s.History) != 1 {
		t.Errorf("input history length = %d, want 1", len(s.History))
	}
}

func TestApply_UnderflowIsFloored(t *testing.T) {
	// A ledger record whose contribution is missing from the aggregates,
	// as can happen with hand-edited or partially recovered state.
	s := Empty()
	s.Attempts["q1"] = AttemptRecord{
		QuestionID: "q1", Correct: true, Category: "math", Difficulty: "easy", TimeTaken: 10,
	}

	s = mustApply(t, s, Event{QuestionID: "q1", Category: "math", TimeTaken: Minutes(2)}, t0)

	want := Totals{Attempts: 1, Correct: 0, TimeSpentMinutes: 2}
	if s.Totals != want {
		t.Errorf("totals = %+v, want %+v", s.Totals, want)
	}
	if b, _ := s.Category.Get("math"); b != (Bucket{Attempts: 1, Correct: 0}) {
		t.Errorf("category.math = %+v, want {1 0}", b)
	}
}

func TestApply_BucketOrderFollowsInsertion(t *testing.T) {
	s := Empty()
	for i, cat := range []string{"dbms", "os", "networks", "dbms"} {
		s = mustApply(t, s, Event{QuestionID: fmt.Sprintf("q%d", i), Category: cat}, at(i))
	}
	got := s.Category.Keys()
	want := []string{"dbms", "os", "networks"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestApply_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	categories := []string{"", "dbms", "os", "aptitude"}
	difficulties := []string{"", "easy", "medium", "hard"}

	s := Empty()
	distinct := make(map[string]bool)
	for i := 0; i < 500; i++ {
		qid := fmt.Sprintf("q%d", rng.IntN(40))
		distinct[qid] = true
		ev := Event{
			QuestionID: qid,
			Correct:    rng.IntN(2) == 0,
			Category:   categories[rng.IntN(len(categories))],
			Difficulty: difficulties[rng.IntN(len(difficulties))],
			TimeTaken:  Minutes(float64(rng.IntN(5))),
		}
		s = mustApply(t, s, ev, at(i))

		if s.Totals.Attempts != len(distinct) {
			t.Fatalf("step %d: totals.attempts = %d, want %d distinct", i, s.Totals.Attempts, len(distinct))
		}
	}
	checkInvariants(t, s)

	// Aggregates must equal a fresh recount of the ledger.
	var correct int
	var minutes float64
	perCategory := make(map[string]Bucket)
	for _, rec := range s.Attempts {
		b := perCategory[rec.Category]
		b.Attempts++
		if rec.Correct {
			correct++
			b.Correct++
		}
		minutes += rec.TimeTaken
		perCategory[rec.Category] = b
	}
	if s.Totals.Correct != correct {
		t.Errorf("totals.correct = %d, recount %d", s.Totals.Correct, correct)
	}
	if s.Totals.TimeSpentMinutes != minutes {
		t.Errorf("totals.timeSpentMinutes = %v, recount %v", s.Totals.TimeSpentMinutes, minutes)
	}
	if s.Category.Len() != len(perCategory) {
		t.Errorf("category buckets = %d, recount %d", s.Category.Len(), len(perCategory))
	}
	for k, want := range perCategory {
		if got, _ := s.Category.Get(k); got != want {
			t.Errorf("category[%q] = %+v, recount %+v", k, got, want)
		}
	}
}

func TestEmpty(t *testing.T) {
	s := Empty()

	if s.Totals != (Totals{}) {
		t.Errorf("totals = %+v, want zero", s.Totals)
	}
	if s.Category.Len() != 0 || s.Difficulty.Len() != 0 {
		t.Error("expected empty rollups")
	}
	if len(s.History) != 0 || len(s.Attempts) != 0 {
		t.Error("expected empty history and ledger")
	}
	if s.LastUpdated != nil {
		t.Errorf("lastUpdated = %v, want nil", s.LastUpdated)
	}
}
