package assessment

import (
	"context"
	"time"
)

type (
	// MetricOwner is one metric-carrying entity, as surfaced by the
	// bootstrap scan that repopulates the dependency cache at startup.
	MetricOwner struct {
		Level       Level
		EntityID    string
		NamespaceID string // owning namespace, for lesson-level owners
		Metrics     []Metric
	}

	// EntityRepository is the metric-lookup capability over lesson and
	// namespace entities. Both entity kinds persist their metric list under
	// the `assessments` field.
	EntityRepository interface {
		GetMetrics(ctx context.Context, level Level, entityID string) ([]Metric, error)
		SetMetrics(ctx context.Context, level Level, entityID string, metrics []Metric) error
		LessonNamespaceID(ctx context.Context, lessonID string) (string, error)
		NamespaceLessonIDs(ctx context.Context, namespaceID string) ([]string, error)
		// AllMetricOwners returns every entity carrying at least one metric,
		// for the one-time cache bootstrap scan.
		AllMetricOwners(ctx context.Context) ([]MetricOwner, error)
	}

	// RecordFilter selects raw assessment records. Zero fields are ignored;
	// set fields are ANDed.
	RecordFilter struct {
		Lesson     string
		MetricName string
		Users      []string
		Tag        string
		From       time.Time
		To         time.Time
	}

	// RecordRepository persists raw assessment records. Records are
	// append-only: inserted, never updated.
	RecordRepository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		FilterRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
	}

	// ResultRepository is the bulk user-document update capability used to
	// persist computed results under the user's `assessments` map.
	ResultRepository interface {
		SaveUserResult(ctx context.Context, userID, key string, res Result) error
		// RemoveUserResults strips the keyed result from every user document.
		RemoveUserResults(ctx context.Context, key string) error
	}
)
