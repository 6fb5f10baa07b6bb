package assessment

import (
	"context"
	"testing"
)

func TestEngineComputeLesson(t *testing.T) {
	entities := newEntityRepoStub()
	records := &recordRepoStub{}
	records.addRecord("lesson1", "alice", "grade", "hw1", 4, "")
	records.addRecord("lesson1", "alice", "grade", "hw2", 8, "")
	records.addRecord("lesson1", "bob", "grade", "hw1", 2, "")
	records.addRecord("lesson1", "alice", "attendance", "day1", 1, "") // other metric
	records.addRecord("lesson2", "alice", "grade", "hw1", 10, "")      // other lesson

	engine := NewEngine(entities, records)
	metric := Metric{Name: "grade", Level: LevelLesson, Coverage: Coverage{"all"}, Rule: Rule{"avg"}}

	res, err := engine.Compute(context.Background(), "lesson1", metric, []string{"alice", "bob", "carol"}, nil)
	if err != nil {
		t.Fatalf("Compute() unexpected error: %v", err)
	}
	if got := res["alice"]; !got.Valid || got.Float64 != 6 {
		t.Errorf("alice = %v; expected 6", got)
	}
	if got := res["bob"]; !got.Valid || got.Float64 != 2 {
		t.Errorf("bob = %v; expected 2", got)
	}
	if got := res["carol"]; got.Valid {
		t.Errorf("carol = %v; expected null for a user without scores", got)
	}
}

func TestEngineComputeLessonCoverage(t *testing.T) {
	entities := newEntityRepoStub()
	records := &recordRepoStub{}
	records.addRecord("lesson1", "alice", "grade", "hw1", 4, "")
	records.addRecord("lesson1", "alice", "grade", "hw2", 8, "")
	records.addRecord("lesson1", "alice", "grade", "exam", 10, "")

	engine := NewEngine(entities, records)
	users := []string{"alice"}

	tests := []struct {
		name     string
		coverage Coverage
		want     float64
	}{
		{name: "include", coverage: Coverage{"include", "hw1", "hw2"}, want: 6},
		{name: "exclude", coverage: Coverage{"exclude", "exam"}, want: 6},
		{name: "all", coverage: Coverage{"all"}, want: 22.0 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metric := Metric{Name: "grade", Level: LevelLesson, Coverage: tt.coverage, Rule: Rule{"avg"}}
			res, err := engine.Compute(context.Background(), "lesson1", metric, users, nil)
			if err != nil {
				t.Fatalf("Compute() unexpected error: %v", err)
			}
			if got := res["alice"]; !got.Valid || got.Float64 != tt.want {
				t.Errorf("alice = %v; expected %v", got, tt.want)
			}
		})
	}
}

func TestEngineComputeNamespace(t *testing.T) {
	entities := newEntityRepoStub()
	entities.addLesson("lesson1", "ns1")
	entities.addLesson("lesson2", "ns1")
	sub := Metric{Name: "grade", Level: LevelLesson, Coverage: Coverage{"all"}, Rule: Rule{"avg"}}
	entities.SetMetrics(context.Background(), LevelLesson, "lesson1", []Metric{sub})
	entities.SetMetrics(context.Background(), LevelLesson, "lesson2", []Metric{sub})

	records := &recordRepoStub{}
	records.addRecord("lesson1", "alice", "grade", "hw1", 4, "")
	records.addRecord("lesson1", "alice", "grade", "hw2", 8, "")
	records.addRecord("lesson2", "alice", "grade", "hw1", 10, "")
	records.addRecord("lesson1", "bob", "grade", "hw1", 2, "")
	// bob has no scores on lesson2: it contributes nothing, not a zero

	engine := NewEngine(entities, records)
	rollup := Metric{Name: "overall", Level: LevelNamespace, Coverage: Coverage{"all"}, Rule: Rule{"avg"}, Submetric: "grade"}

	res, err := engine.Compute(context.Background(), "ns1", rollup, []string{"alice", "bob", "carol"}, nil)
	if err != nil {
		t.Fatalf("Compute() unexpected error: %v", err)
	}
	if got := res["alice"]; !got.Valid || got.Float64 != 8 {
		t.Errorf("alice = %v; expected 8 (mean of lesson means 6 and 10)", got)
	}
	if got := res["bob"]; !got.Valid || got.Float64 != 2 {
		t.Errorf("bob = %v; expected 2 (lesson2 skipped, not counted as zero)", got)
	}
	if got := res["carol"]; got.Valid {
		t.Errorf("carol = %v; expected null", got)
	}
}

func TestEngineComputeNamespaceCoverage(t *testing.T) {
	entities := newEntityRepoStub()
	entities.addLesson("lesson1", "ns1")
	entities.addLesson("lesson2", "ns1")
	sub := Metric{Name: "grade", Level: LevelLesson, Coverage: Coverage{"all"}, Rule: Rule{"avg"}}
	entities.SetMetrics(context.Background(), LevelLesson, "lesson1", []Metric{sub})
	entities.SetMetrics(context.Background(), LevelLesson, "lesson2", []Metric{sub})

	records := &recordRepoStub{}
	records.addRecord("lesson1", "alice", "grade", "hw1", 4, "")
	records.addRecord("lesson2", "alice", "grade", "hw1", 10, "")

	engine := NewEngine(entities, records)
	rollup := Metric{Name: "overall", Level: LevelNamespace, Coverage: Coverage{"exclude", "lesson2"}, Rule: Rule{"avg"}, Submetric: "grade"}

	res, err := engine.Compute(context.Background(), "ns1", rollup, []string{"alice"}, nil)
	if err != nil {
		t.Fatalf("Compute() unexpected error: %v", err)
	}
	if got := res["alice"]; !got.Valid || got.Float64 != 4 {
		t.Errorf("alice = %v; expected 4 with lesson2 excluded", got)
	}
}

func TestEngineComputeNamespaceErrors(t *testing.T) {
	entities := newEntityRepoStub()
	entities.addLesson("lesson1", "ns1")
	records := &recordRepoStub{}
	engine := NewEngine(entities, records)
	users := []string{"alice"}

	t.Run("missing submetric field", func(t *testing.T) {
		metric := Metric{Name: "overall", Level: LevelNamespace, Coverage: Coverage{"all"}, Rule: Rule{"avg"}}
		_, err := engine.Compute(context.Background(), "ns1", metric, users, nil)
		if !IsConfigurationError(err) {
			t.Errorf("Compute() error = %v; expected a configuration error", err)
		}
	})

	t.Run("submetric not defined on lesson", func(t *testing.T) {
		metric := Metric{Name: "overall", Level: LevelNamespace, Coverage: Coverage{"all"}, Rule: Rule{"avg"}, Submetric: "grade"}
		_, err := engine.Compute(context.Background(), "ns1", metric, users, nil)
		if !IsConfigurationError(err) {
			t.Errorf("Compute() error = %v; expected a configuration error", err)
		}
	})

	t.Run("unknown level", func(t *testing.T) {
		metric := Metric{Name: "overall", Level: Level("school"), Coverage: Coverage{"all"}, Rule: Rule{"avg"}}
		_, err := engine.Compute(context.Background(), "ns1", metric, users, nil)
		if !IsConfigurationError(err) {
			t.Errorf("Compute() error = %v; expected a configuration error", err)
		}
	})
}
