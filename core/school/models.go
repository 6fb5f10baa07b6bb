package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assessment"
)

// Namespace is a course: a named group of lessons. Its `assessments` list
// holds the namespace-level rollup metrics defined on it.
type Namespace struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Code        string              `json:"code"`
	Assessments []assessment.Metric `json:"assessments"`
	CreatedAt   time.Time           `json:"created_at"` // UTC
	UpdatedAt   time.Time           `json:"updated_at"` // UTC
}

// Lesson belongs to a Namespace. Its `assessments` list holds the
// lesson-level metrics aggregating raw component scores.
type Lesson struct {
	ID          string              `json:"id"`
	NamespaceID string              `json:"namespace_id"`
	Name        string              `json:"name"`
	Assessments []assessment.Metric `json:"assessments"`
	CreatedAt   time.Time           `json:"created_at"` // UTC
	UpdatedAt   time.Time           `json:"updated_at"` // UTC
}

// NewNamespace contains information needed to create a new Namespace.
type NewNamespace struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"omitempty,alphanum_"`
}

func (nn *NewNamespace) Validate(validate *validator.Validate) error {
	nn.Name = core.CleanString(nn.Name)
	nn.Code = core.CleanString(nn.Code, true /* lower */)
	return validate.Struct(nn)
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Name string `json:"name" validate:"required"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	return validate.Struct(nl)
}
