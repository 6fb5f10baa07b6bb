package assessment

import (
	"math"
	"testing"

	"github.com/volatiletech/null/v8"
)

func scoresOf(vals ...float64) []Score {
	scores := make([]Score, len(vals))
	for i, v := range vals {
		scores[i] = Score{Source: "c", Tag: DefaultTag, Value: v}
	}
	return scores
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		rule       Rule
		scores     []Score
		tagWeights map[string]float64
		opts       Options
		want       null.Float64
		wantErr    bool
	}{
		{name: "unknown rule", rule: Rule{"median"}, scores: scoresOf(1), wantErr: true},
		{name: "avg", rule: Rule{"avg"}, scores: scoresOf(2, 4, 6), want: null.Float64From(4)},
		{name: "avg no scores", rule: Rule{"avg"}, scores: nil, want: null.Float64{}},
		{name: "avg rounded", rule: Rule{"avg"}, scores: scoresOf(1, 2), opts: Options{"roundTo": float64(0)}, want: null.Float64From(2)},
		{name: "avg rounded to places", rule: Rule{"avg"}, scores: scoresOf(1, 1, 1, 0.5), opts: Options{"roundTo": float64(2)}, want: null.Float64From(0.88)},
		{name: "avg roundTo int option", rule: Rule{"avg"}, scores: scoresOf(1, 2, 4), opts: Options{"roundTo": 1}, want: null.Float64From(2.3)},

		{name: "dropLowestN", rule: Rule{"dropLowestN", float64(1)}, scores: scoresOf(5, 1, 3), want: null.Float64From(4)},
		{name: "dropLowestN zero", rule: Rule{"dropLowestN", float64(0)}, scores: scoresOf(5, 1, 3), want: null.Float64From(3)},
		{name: "dropLowestN ties keep later duplicates", rule: Rule{"dropLowestN", float64(1)}, scores: scoresOf(2, 2, 8), want: null.Float64From(5)},
		{name: "dropLowestN drops everything", rule: Rule{"dropLowestN", float64(3)}, scores: scoresOf(5, 1), want: null.Float64{}},
		{name: "dropLowestN missing param", rule: Rule{"dropLowestN"}, scores: scoresOf(1), wantErr: true},
		{name: "dropLowestN negative", rule: Rule{"dropLowestN", float64(-1)}, scores: scoresOf(1), wantErr: true},
		{name: "dropLowestN fractional", rule: Rule{"dropLowestN", 1.5}, scores: scoresOf(1, 2, 3), wantErr: true},

		{name: "weightedAvg", rule: Rule{"weightedAvg", float64(2), float64(1)}, scores: scoresOf(4, 1), want: null.Float64From(3)},
		{name: "weightedAvg extra scores default weight 1", rule: Rule{"weightedAvg", float64(2)}, scores: scoresOf(4, 1, 7), want: null.Float64From(4)},
		{name: "weightedAvg no scores", rule: Rule{"weightedAvg", float64(2)}, scores: nil, want: null.Float64{}},
		{name: "weightedAvg all zero weights", rule: Rule{"weightedAvg", float64(0), float64(0)}, scores: scoresOf(4, 1), want: null.Float64{}},
		{name: "weightedAvg negative weight", rule: Rule{"weightedAvg", float64(-1)}, scores: scoresOf(4), wantErr: true},
		{name: "weightedAvg non-numeric weight", rule: Rule{"weightedAvg", "heavy"}, scores: scoresOf(4), wantErr: true},

		{
			name: "tagWeighted",
			rule: Rule{"tagWeighted"},
			scores: []Score{
				{Source: "hw1", Tag: "homework", Value: 4},
				{Source: "hw2", Tag: "homework", Value: 6},
				{Source: "q1", Tag: "quiz", Value: 8},
			},
			tagWeights: map[string]float64{"homework": 2},
			want:       null.Float64From(18),
		},
		{
			name: "tagWeighted untagged scores use default tag weight",
			rule: Rule{"tagWeighted"},
			scores: []Score{
				{Source: "c1", Value: 4},
				{Source: "c2", Value: 6},
			},
			tagWeights: map[string]float64{DefaultTag: 0.5},
			want:       null.Float64From(2.5),
		},
		{name: "tagWeighted no weights defaults to sum of means", rule: Rule{"tagWeighted"}, scores: scoresOf(4, 6), want: null.Float64From(5)},
		{name: "tagWeighted no scores", rule: Rule{"tagWeighted"}, scores: nil, want: null.Float64{}},

		{name: "threshold met", rule: Rule{"threshold", float64(5)}, scores: scoresOf(4, 8), want: null.Float64From(1)},
		{name: "threshold exact cutoff", rule: Rule{"threshold", float64(6)}, scores: scoresOf(4, 8), want: null.Float64From(1)},
		{name: "threshold missed", rule: Rule{"threshold", float64(5)}, scores: scoresOf(1, 2), want: null.Float64From(0)},
		{name: "threshold no scores", rule: Rule{"threshold", float64(5)}, scores: nil, want: null.Float64{}},
		{name: "threshold missing cutoff", rule: Rule{"threshold"}, scores: scoresOf(1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.rule, tt.scores, tt.tagWeights, tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Evaluate() expected error, got %v", got)
				}
				if !IsConfigurationError(err) {
					t.Errorf("Evaluate() error = %v; expected a configuration error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate() unexpected error: %v", err)
			}
			if got.Valid != tt.want.Valid {
				t.Fatalf("Evaluate() = %v; expected %v", got, tt.want)
			}
			if got.Valid && math.Abs(got.Float64-tt.want.Float64) > 1e-9 {
				t.Errorf("Evaluate() = %v; expected %v", got.Float64, tt.want.Float64)
			}
		})
	}
}

func TestDropLowestNStableOrder(t *testing.T) {
	// equal lowest values must be dropped in input order
	scores := []Score{
		{Source: "a", Value: 3},
		{Source: "b", Value: 3},
		{Source: "c", Value: 9},
	}
	got, err := dropLowestN(Rule{"dropLowestN", float64(1)}, scores)
	if err != nil {
		t.Fatalf("dropLowestN() unexpected error: %v", err)
	}
	if !got.Valid || got.Float64 != 6 {
		t.Errorf("dropLowestN() = %v; expected 6 (dropping the first tied score)", got)
	}
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{name: "avg", rule: Rule{"avg"}},
		{name: "tagWeighted", rule: Rule{"tagWeighted"}},
		{name: "dropLowestN", rule: Rule{"dropLowestN", float64(2)}},
		{name: "dropLowestN negative", rule: Rule{"dropLowestN", float64(-2)}, wantErr: true},
		{name: "dropLowestN missing param", rule: Rule{"dropLowestN"}, wantErr: true},
		{name: "threshold", rule: Rule{"threshold", float64(5)}},
		{name: "threshold missing cutoff", rule: Rule{"threshold"}, wantErr: true},
		{name: "weightedAvg", rule: Rule{"weightedAvg", float64(1), float64(2)}},
		{name: "weightedAvg negative weight", rule: Rule{"weightedAvg", float64(1), float64(-2)}, wantErr: true},
		{name: "unknown", rule: Rule{"median"}, wantErr: true},
		{name: "empty", rule: Rule{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRule(tt.rule)
			if tt.wantErr && err == nil {
				t.Error("validateRule() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("validateRule() unexpected error: %v", err)
			}
		})
	}
}
