package assessment

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"
)

// Level identifies the kind of entity a Metric is attached to, and thereby
// what it aggregates over: a lesson metric aggregates raw component scores,
// a namespace metric aggregates lesson-level metric results.
type Level string

const (
	LevelLesson    Level = "lesson"
	LevelNamespace Level = "namespace"
)

func (l Level) Valid() bool { return l == LevelLesson || l == LevelNamespace }

// DefaultTag is assumed for raw records recorded without a tag.
const DefaultTag = "_default_tag"

// Coverage describes which child entities/components a Metric includes:
// ["all"], ["include", id, ...] or ["exclude", id, ...].
type Coverage []string

const (
	CoverageAll     = "all"
	CoverageInclude = "include"
	CoverageExclude = "exclude"
)

func (c Coverage) Mode() string {
	if len(c) == 0 {
		return CoverageAll
	}
	return c[0]
}

// Allows reports whether the source id passes the coverage filter.
func (c Coverage) Allows(id string) bool {
	switch c.Mode() {
	case CoverageInclude:
		for _, incl := range c[1:] {
			if incl == id {
				return true
			}
		}
		return false
	case CoverageExclude:
		for _, excl := range c[1:] {
			if excl == id {
				return false
			}
		}
		return true
	default: // "all"
		return true
	}
}

func (c Coverage) Validate() error {
	switch c.Mode() {
	case CoverageAll:
		return nil
	case CoverageInclude, CoverageExclude:
		if len(c) < 2 {
			return newConfigurationErrorf("coverage %q lists no ids", c.Mode())
		}
		return nil
	default:
		return newConfigurationErrorf("unknown coverage mode %q", c.Mode())
	}
}

// Rule is a tagged list [ruleName, ...ruleParameters] selecting one of the
// fixed aggregation rules, e.g. ["dropLowestN", 3]. Parameters decoded from
// JSON arrive as float64.
type Rule []interface{}

func (r Rule) Name() string {
	if len(r) == 0 {
		return ""
	}
	name, _ := r[0].(string)
	return name
}

// Param returns the i-th rule parameter (0-based, excluding the rule name)
// as a float64.
func (r Rule) Param(i int) (float64, error) {
	if i+1 >= len(r) {
		return 0, newConfigurationErrorf("rule %q is missing parameter %d", r.Name(), i)
	}
	switch v := r[i+1].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, newConfigurationErrorf("rule %q parameter %d is not a number", r.Name(), i)
	}
}

// NumParams returns the number of parameters carried by the rule.
func (r Rule) NumParams() int {
	if len(r) == 0 {
		return 0
	}
	return len(r) - 1
}

// Metric is an aggregation rule attached to a lesson or a namespace.
// Names are unique among metrics attached to the same entity.
type Metric struct {
	Name             string             `json:"name"`
	Level            Level              `json:"level"`
	Coverage         Coverage           `json:"coverage"`
	Rule             Rule               `json:"rule"`
	Submetric        string             `json:"submetric,omitempty"`
	TagWeights       map[string]float64 `json:"tagWeights,omitempty"`
	AutoCompute      bool               `json:"autoCompute"`
	VisibleToStudent bool               `json:"visibleToStudent"`
	LastUpdated      time.Time          `json:"lastUpdated"` // UTC
}

// Record is one raw assessment observation. Append-only; never updated.
type Record struct {
	ID            string    `json:"id"`
	Lesson        string    `json:"lesson"`
	User          string    `json:"user"`
	Score         float64   `json:"score"`
	Tag           string    `json:"tag,omitempty"`
	MetricName    string    `json:"metricName"`
	Component     string    `json:"component"`
	ComponentType string    `json:"componentType"`
	Time          time.Time `json:"time"` // UTC
}

// Result is a computed per-user metric value persisted on the user document
// under a ResultKey. Instance is null when the user had no contributing scores.
type Result struct {
	MetricName  string       `json:"metricName"`
	Instance    null.Float64 `json:"instance"`
	LastUpdated int64        `json:"lastUpdated"` // epoch ms
}

// ResultKey builds the persistence/cache key for a metric on an entity.
// The literal level-entityId-metricName pattern is part of the external
// contract and must not change.
func ResultKey(level Level, entityID, name string) string {
	return fmt.Sprintf("%s-%s-%s", level, entityID, name)
}

// Score is one input to the rule evaluator: a raw component score
// (lesson level) or a lesson's submetric result (namespace level).
type Score struct {
	Source string // component id or lesson id
	Tag    string
	Value  float64
}

// Options is a free-form policy bag passed through to the rule evaluator,
// e.g. {"roundTo": 2}.
type Options map[string]interface{}
