package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

type (
	Service interface {
		Metrics(ctx context.Context, level Level, entityID string) ([]Metric, error)
		CreateMetric(ctx context.Context, level Level, entityID string, nm NewMetric) (Metric, error)
		UpdateMetric(ctx context.Context, level Level, entityID, name string, um UpdateMetric) (Metric, error)
		DeleteMetric(ctx context.Context, level Level, entityID, name string) error

		RecordScore(ctx context.Context, nr NewRecord) (Record, error)

		// Compute recomputes a metric for the given users and persists the
		// results; it is the manual recovery path for failed auto-computes.
		Compute(ctx context.Context, level Level, entityID, metricName string, userIDs []string, opts Options) (map[string]null.Float64, error)

		// Bootstrap runs the one-time scan of persisted autoCompute metrics
		// that repopulates the dependency cache after a restart.
		Bootstrap(ctx context.Context) error
		CacheDump() CacheDump
	}

	service struct {
		entities EntityRepository
		records  RecordRepository
		results  ResultRepository
		cache    *DepsCache
		engine   *Engine
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(logger core.Logger, cache *DepsCache, entities EntityRepository, records RecordRepository, results ResultRepository) *service {
	return &service{
		entities: entities,
		records:  records,
		results:  results,
		cache:    cache,
		engine:   NewEngine(entities, records),
		logger:   logger,
	}
}

func (svc *service) Metrics(ctx context.Context, level Level, entityID string) ([]Metric, error) {
	if !level.Valid() {
		return nil, newConfigurationErrorf("unknown metric level %q", level)
	}
	return svc.entities.GetMetrics(ctx, level, entityID)
}

func (svc *service) CreateMetric(ctx context.Context, level Level, entityID string, nm NewMetric) (Metric, error) {
	metrics, err := svc.Metrics(ctx, level, entityID)
	if err != nil {
		return Metric{}, err
	}
	for _, m := range metrics {
		if m.Name == nm.Name {
			return Metric{}, core.NewValidationError(ErrMetricExists, core.FieldError{Field: "name", Error: ErrMetricExists.Error()})
		}
	}

	metric := Metric{
		Name:             nm.Name,
		Level:            level,
		Coverage:         nm.Coverage,
		Rule:             nm.Rule,
		Submetric:        nm.Submetric,
		TagWeights:       nm.TagWeights,
		AutoCompute:      nm.AutoCompute,
		VisibleToStudent: nm.VisibleToStudent,
		LastUpdated:      time.Now().UTC(),
	}
	if err = validateMetricConfig(metric); err != nil {
		return Metric{}, err
	}

	if err = svc.entities.SetMetrics(ctx, level, entityID, append(metrics, metric)); err != nil {
		return Metric{}, errors.Wrap(err, "saving entity metrics")
	}

	if metric.AutoCompute {
		if err = svc.register(ctx, metric, entityID); err != nil {
			return Metric{}, err
		}
	}
	return metric, nil
}

func (svc *service) UpdateMetric(ctx context.Context, level Level, entityID, name string, um UpdateMetric) (Metric, error) {
	metrics, err := svc.Metrics(ctx, level, entityID)
	if err != nil {
		return Metric{}, err
	}

	idx := -1
	for i, m := range metrics {
		if m.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Metric{}, ErrMetricNotFound
	}

	metric := metrics[idx]
	wasAuto := metric.AutoCompute
	um.apply(&metric)
	metric.LastUpdated = time.Now().UTC()
	if err = validateMetricConfig(metric); err != nil {
		return Metric{}, err
	}

	metrics[idx] = metric
	if err = svc.entities.SetMetrics(ctx, level, entityID, metrics); err != nil {
		return Metric{}, errors.Wrap(err, "saving entity metrics")
	}

	if metric.AutoCompute {
		if err = svc.register(ctx, metric, entityID); err != nil {
			return Metric{}, err
		}
	} else if wasAuto {
		// toggling autoCompute off removes the stale registration; an inert
		// forest entry would otherwise keep triggering recomputes
		svc.cache.Remove(level, entityID, name)
	}
	return metric, nil
}

func (svc *service) DeleteMetric(ctx context.Context, level Level, entityID, name string) error {
	metrics, err := svc.Metrics(ctx, level, entityID)
	if err != nil {
		return err
	}

	kept := make([]Metric, 0, len(metrics))
	for _, m := range metrics {
		if m.Name != name {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(metrics) {
		return ErrMetricNotFound
	}

	if err = svc.entities.SetMetrics(ctx, level, entityID, kept); err != nil {
		return errors.Wrap(err, "saving entity metrics")
	}
	if err = svc.results.RemoveUserResults(ctx, ResultKey(level, entityID, name)); err != nil {
		return errors.Wrap(err, "stripping user results")
	}
	svc.cache.Remove(level, entityID, name)
	return nil
}

func (svc *service) RecordScore(ctx context.Context, nr NewRecord) (Record, error) {
	tag := core.CleanString(nr.Tag)
	if tag == "" {
		tag = DefaultTag
	}
	rec := Record{
		Lesson:        nr.Lesson,
		User:          nr.User,
		Score:         nr.Score,
		Tag:           tag,
		MetricName:    nr.MetricName,
		Component:     nr.Component,
		ComponentType: nr.ComponentType,
		Time:          time.Now().UTC(),
	}
	rec, err := svc.records.CreateRecord(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "inserting assessment record")
	}

	// the raw record is durable at this point; a failed recompute of any
	// derived metric is logged and recovered via manual Compute
	svc.updateAutoComputes(ctx, rec)
	return rec, nil
}

func (svc *service) Compute(ctx context.Context, level Level, entityID, metricName string, userIDs []string, opts Options) (map[string]null.Float64, error) {
	metrics, err := svc.Metrics(ctx, level, entityID)
	if err != nil {
		return nil, err
	}

	var metric Metric
	found := false
	for _, m := range metrics {
		if m.Name == metricName {
			metric, found = m, true
			break
		}
	}
	if !found {
		return nil, ErrMetricNotFound
	}

	res, err := svc.engine.Compute(ctx, entityID, metric, userIDs, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().UnixNano() / int64(time.Millisecond)
	key := ResultKey(level, entityID, metricName)
	for uid, val := range res {
		saveErr := svc.results.SaveUserResult(ctx, uid, key, Result{
			MetricName:  metricName,
			Instance:    val,
			LastUpdated: now,
		})
		if saveErr != nil {
			return nil, errors.Wrap(saveErr, "persisting computed result")
		}
	}
	return res, nil
}

func (svc *service) Bootstrap(ctx context.Context) error {
	owners, err := svc.entities.AllMetricOwners(ctx)
	if err != nil {
		return errors.Wrap(err, "scanning metric owners")
	}
	// lessons first so namespace rollups fan out to known lessons; the cache
	// tolerates either order, this just avoids the fan-in path
	for _, owner := range owners {
		if owner.Level != LevelLesson {
			continue
		}
		for _, m := range owner.Metrics {
			if m.AutoCompute {
				svc.cache.Register(m, owner.EntityID, owner.NamespaceID)
			}
		}
	}
	for _, owner := range owners {
		if owner.Level != LevelNamespace {
			continue
		}
		for _, m := range owner.Metrics {
			if m.AutoCompute {
				svc.cache.Register(m, owner.EntityID)
			}
		}
	}
	return nil
}

func (svc *service) CacheDump() CacheDump {
	return svc.cache.Dump()
}

// register records an autoCompute metric in the dependency cache, resolving
// a lesson's owning namespace for the membership relation.
func (svc *service) register(ctx context.Context, metric Metric, entityID string) error {
	if metric.Level == LevelLesson {
		nsID, err := svc.entities.LessonNamespaceID(ctx, entityID)
		if err != nil {
			return errors.Wrap(err, "resolving lesson namespace")
		}
		svc.cache.Register(metric, entityID, nsID)
		return nil
	}
	svc.cache.Register(metric, entityID)
	return nil
}

// updateAutoComputes recomputes every metric depending on the freshly
// recorded raw score, scoped to the single affected user. Failures are
// logged per dependent and never abort the remaining dependents.
func (svc *service) updateAutoComputes(ctx context.Context, rec Record) {
	deps := svc.cache.Dependents(rec.MetricName, rec.Lesson)
	now := time.Now().UTC().UnixNano() / int64(time.Millisecond)

	for _, dep := range deps {
		key := ResultKey(dep.Metric.Level, dep.DependentEntityID, dep.Metric.Name)

		res, err := svc.engine.Compute(ctx, dep.DependentEntityID, dep.Metric, []string{rec.User}, nil)
		if err != nil {
			svc.logRecomputeFailure(key, rec.User, err)
			continue
		}
		err = svc.results.SaveUserResult(ctx, rec.User, key, Result{
			MetricName:  dep.Metric.Name,
			Instance:    res[rec.User],
			LastUpdated: now,
		})
		if err != nil {
			svc.logRecomputeFailure(key, rec.User, err)
		}
	}
}

func (svc *service) logRecomputeFailure(key, userID string, err error) {
	if svc.logger == nil {
		return
	}
	msg := fmt.Sprintf("recompute of %s for user %s failed: %v", key, userID, err)
	svc.logger.Error(msg, errors.Wrap(err, "auto-compute"))
}
