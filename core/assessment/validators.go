package assessment

import (
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// NewMetric contains information needed to attach a new Metric to an entity.
type NewMetric struct {
	Name             string             `json:"name" validate:"required,slug_"`
	Coverage         Coverage           `json:"coverage" validate:"required"`
	Rule             Rule               `json:"rule" validate:"required"`
	Submetric        string             `json:"submetric,omitempty"`
	TagWeights       map[string]float64 `json:"tagWeights,omitempty"`
	AutoCompute      bool               `json:"autoCompute"`
	VisibleToStudent bool               `json:"visibleToStudent"`
}

func (nm *NewMetric) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Submetric = core.CleanString(nm.Submetric)
	return validate.Struct(nm)
}

// UpdateMetric defines what may be modified on an existing Metric.
// Nil/empty fields keep their current values; metrics are matched by name
// and names are immutable.
type UpdateMetric struct {
	Coverage         Coverage           `json:"coverage,omitempty"`
	Rule             Rule               `json:"rule,omitempty"`
	Submetric        *string            `json:"submetric,omitempty"`
	TagWeights       map[string]float64 `json:"tagWeights,omitempty"`
	AutoCompute      *bool              `json:"autoCompute,omitempty"`
	VisibleToStudent *bool              `json:"visibleToStudent,omitempty"`
}

func (um *UpdateMetric) Validate(validate *validator.Validate) error {
	if um.Submetric != nil {
		sub := core.CleanString(*um.Submetric)
		um.Submetric = &sub
	}
	return validate.Struct(um)
}

func (um UpdateMetric) apply(m *Metric) {
	if um.Coverage != nil {
		m.Coverage = um.Coverage
	}
	if um.Rule != nil {
		m.Rule = um.Rule
	}
	if um.Submetric != nil {
		m.Submetric = *um.Submetric
	}
	if um.TagWeights != nil {
		m.TagWeights = um.TagWeights
	}
	if um.AutoCompute != nil {
		m.AutoCompute = *um.AutoCompute
	}
	if um.VisibleToStudent != nil {
		m.VisibleToStudent = *um.VisibleToStudent
	}
}

// NewRecord is one raw score observation as submitted at the boundary.
type NewRecord struct {
	Lesson        string  `json:"lesson" validate:"required"`
	User          string  `json:"user" validate:"required"`
	Score         float64 `json:"score"`
	Tag           string  `json:"tag,omitempty"`
	MetricName    string  `json:"metricName" validate:"required"`
	Component     string  `json:"component" validate:"required"`
	ComponentType string  `json:"componentType,omitempty"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.MetricName = core.CleanString(nr.MetricName)
	nr.Component = core.CleanString(nr.Component)
	return validate.Struct(nr)
}

// validateMetricConfig fails fast on invalid coverage and rule definitions
// so misconfigured metrics never reach the cache or the engine.
func validateMetricConfig(m Metric) error {
	if !m.Level.Valid() {
		return newConfigurationErrorf("unknown metric level %q", m.Level)
	}
	if err := m.Coverage.Validate(); err != nil {
		return err
	}
	if m.Level == LevelLesson && m.Submetric != "" {
		return newConfigurationErrorf("lesson metric %q cannot reference a submetric", m.Name)
	}
	return validateRule(m.Rule)
}

func validateRule(rule Rule) error {
	switch rule.Name() {
	case RuleAvg, RuleTagWeighted:
		return nil
	case RuleDropLowestN:
		n, err := rule.Param(0)
		if err != nil {
			return err
		}
		if n < 0 {
			return newConfigurationErrorf("rule %q requires a non-negative integer, got %v", RuleDropLowestN, n)
		}
		return nil
	case RuleThreshold:
		_, err := rule.Param(0)
		return err
	case RuleWeightedAvg:
		for i := 0; i < rule.NumParams(); i++ {
			w, err := rule.Param(i)
			if err != nil {
				return err
			}
			if w < 0 {
				return newConfigurationErrorf("rule %q weight %d is negative", RuleWeightedAvg, i)
			}
		}
		return nil
	default:
		return newConfigurationErrorf("unknown rule %q", rule.Name())
	}
}
