package assessment

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// Engine computes metric values per user from raw records, resolving a
// namespace metric's submetric dependency through its child lessons first.
// Deterministic given the same raw data; never mutates input records.
type Engine struct {
	entities EntityRepository
	records  RecordRepository
}

func NewEngine(entities EntityRepository, records RecordRepository) *Engine {
	return &Engine{entities: entities, records: records}
}

// Compute returns a score per requested user. Users with zero contributing
// scores after coverage filtering map to a null instance, not 0.
func (e *Engine) Compute(ctx context.Context, entityID string, metric Metric, users []string, opts Options) (map[string]null.Float64, error) {
	var byUser map[string][]Score
	var err error

	switch metric.Level {
	case LevelLesson:
		byUser, err = e.lessonScores(ctx, entityID, metric, users)
	case LevelNamespace:
		byUser, err = e.namespaceScores(ctx, entityID, metric, users, opts)
	default:
		return nil, newConfigurationErrorf("unknown metric level %q", metric.Level)
	}
	if err != nil {
		return nil, err
	}

	res := make(map[string]null.Float64, len(users))
	for _, uid := range users {
		val, err := Evaluate(metric.Rule, byUser[uid], metric.TagWeights, opts)
		if err != nil {
			return nil, err
		}
		res[uid] = val
	}
	return res, nil
}

// lessonScores pulls the raw component scores recorded against the lesson
// for this metric, with coverage filtering on the component id.
func (e *Engine) lessonScores(ctx context.Context, lessonID string, metric Metric, users []string) (map[string][]Score, error) {
	recs, err := e.records.FilterRecords(ctx, RecordFilter{
		Lesson:     lessonID,
		MetricName: metric.Name,
		Users:      users,
	})
	if err != nil {
		return nil, errors.Wrap(err, "filtering assessment records")
	}

	byUser := make(map[string][]Score)
	for _, rec := range recs {
		if !metric.Coverage.Allows(rec.Component) {
			continue
		}
		tag := rec.Tag
		if tag == "" {
			tag = DefaultTag
		}
		byUser[rec.User] = append(byUser[rec.User], Score{Source: rec.Component, Tag: tag, Value: rec.Score})
	}
	return byUser, nil
}

// namespaceScores recursively computes the submetric on each covered child
// lesson and treats each lesson's per-user result as one input score.
// Recursion terminates at the lesson level: the level hierarchy has no
// cycles since only namespace metrics may reference lesson submetrics.
func (e *Engine) namespaceScores(ctx context.Context, namespaceID string, metric Metric, users []string, opts Options) (map[string][]Score, error) {
	if metric.Submetric == "" {
		return nil, newConfigurationErrorf("namespace metric %q has no submetric", metric.Name)
	}

	lessonIDs, err := e.entities.NamespaceLessonIDs(ctx, namespaceID)
	if err != nil {
		return nil, errors.Wrap(err, "resolving namespace lessons")
	}

	byUser := make(map[string][]Score)
	for _, lessonID := range lessonIDs {
		if !metric.Coverage.Allows(lessonID) {
			continue
		}

		sub, err := e.lessonSubmetric(ctx, lessonID, metric.Submetric)
		if err != nil {
			return nil, err
		}

		lessonRes, err := e.Compute(ctx, lessonID, sub, users, opts)
		if err != nil {
			return nil, err
		}
		for uid, val := range lessonRes {
			if !val.Valid {
				continue // lesson contributes no score for this user
			}
			byUser[uid] = append(byUser[uid], Score{Source: lessonID, Tag: DefaultTag, Value: val.Float64})
		}
	}
	return byUser, nil
}

func (e *Engine) lessonSubmetric(ctx context.Context, lessonID, name string) (Metric, error) {
	metrics, err := e.entities.GetMetrics(ctx, LevelLesson, lessonID)
	if err != nil {
		return Metric{}, errors.Wrap(err, "fetching lesson metrics")
	}
	for _, m := range metrics {
		if m.Name == name {
			return m, nil
		}
	}
	return Metric{}, newConfigurationErrorf("submetric %q not found on lesson %s", name, lessonID)
}
