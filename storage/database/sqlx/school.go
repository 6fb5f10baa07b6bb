package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var (
	_ school.Repository           = (*schoolRepository)(nil)
	_ assessment.EntityRepository = (*schoolRepository)(nil)
)

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

type namespaceRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Code        null.String `db:"code"`
	Assessments []byte      `db:"assessments"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

type lessonRow struct {
	ID          string    `db:"id"`
	NamespaceID string    `db:"namespace_id"`
	Name        string    `db:"name"`
	Assessments []byte    `db:"assessments"`
	CreatedAt   null.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`
}

func marshalMetrics(metrics []assessment.Metric) ([]byte, error) {
	if metrics == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(metrics)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling metrics")
	}
	return data, nil
}

func unmarshalMetrics(data []byte) ([]assessment.Metric, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var metrics []assessment.Metric
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, errors.Wrap(err, "unmarshaling metrics")
	}
	return metrics, nil
}

func (repo schoolRepository) unrowNamespace(row namespaceRow) (school.Namespace, error) {
	metrics, err := unmarshalMetrics(row.Assessments)
	if err != nil {
		return school.Namespace{}, err
	}
	return school.Namespace{
		ID:          row.ID,
		Name:        row.Name,
		Code:        row.Code.String,
		Assessments: metrics,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}, nil
}

func (repo schoolRepository) unrowLesson(row lessonRow) (school.Lesson, error) {
	metrics, err := unmarshalMetrics(row.Assessments)
	if err != nil {
		return school.Lesson{}, err
	}
	return school.Lesson{
		ID:          row.ID,
		NamespaceID: row.NamespaceID,
		Name:        row.Name,
		Assessments: metrics,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}, nil
}

func (repo schoolRepository) CreateNamespace(ctx context.Context, ns school.Namespace) (school.Namespace, error) {
	ns.ID = uuid.New().String()
	assessments, err := marshalMetrics(ns.Assessments)
	if err != nil {
		return school.Namespace{}, err
	}
	_, err = repo.db.ExecContext(ctx, `
		INSERT INTO namespace (id, name, code, assessments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ns.ID, ns.Name, null.NewString(ns.Code, ns.Code != ""), assessments, ns.CreatedAt.UTC(), ns.UpdatedAt.UTC())
	if err != nil {
		return school.Namespace{}, errors.Wrap(err, "inserting namespace")
	}
	return ns, nil
}

func (repo schoolRepository) GetNamespaceByID(ctx context.Context, id string) (school.Namespace, error) {
	var row namespaceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM namespace WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Namespace{}, school.ErrNamespaceNotFound
		}
		return school.Namespace{}, errors.Wrap(err, "getting namespace")
	}
	return repo.unrowNamespace(row)
}

func (repo schoolRepository) QueryAllNamespaces(ctx context.Context) ([]school.Namespace, error) {
	var rows []namespaceRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM namespace ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying namespaces")
	}
	namespaces := make([]school.Namespace, 0, len(rows))
	for _, row := range rows {
		ns, err := repo.unrowNamespace(row)
		if err != nil {
			return nil, err
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, nil
}

func (repo schoolRepository) UpdateNamespace(ctx context.Context, ns school.Namespace) (school.Namespace, error) {
	assessments, err := marshalMetrics(ns.Assessments)
	if err != nil {
		return school.Namespace{}, err
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE namespace SET name = $2, code = $3, assessments = $4, updated_at = $5 WHERE id = $1`,
		ns.ID, ns.Name, null.NewString(ns.Code, ns.Code != ""), assessments, ns.UpdatedAt.UTC())
	if err != nil {
		return school.Namespace{}, errors.Wrap(err, "updating namespace")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Namespace{}, school.ErrNamespaceNotFound
	}
	return ns, nil
}

func (repo schoolRepository) DeleteNamespacesByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In(`DELETE FROM namespace WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting namespaces")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting namespaces")
	}
	return nil
}

func (repo schoolRepository) CreateLesson(ctx context.Context, lesson school.Lesson) (school.Lesson, error) {
	lesson.ID = uuid.New().String()
	assessments, err := marshalMetrics(lesson.Assessments)
	if err != nil {
		return school.Lesson{}, err
	}
	_, err = repo.db.ExecContext(ctx, `
		INSERT INTO lesson (id, namespace_id, name, assessments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		lesson.ID, lesson.NamespaceID, lesson.Name, assessments, lesson.CreatedAt.UTC(), lesson.UpdatedAt.UTC())
	if err != nil {
		return school.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lesson, nil
}

func (repo schoolRepository) GetLessonByID(ctx context.Context, id string) (school.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM lesson WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Lesson{}, school.ErrLessonNotFound
		}
		return school.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return repo.unrowLesson(row)
}

func (repo schoolRepository) QueryLessonsByNamespaceID(ctx context.Context, namespaceID string) ([]school.Lesson, error) {
	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM lesson WHERE namespace_id = $1 ORDER BY created_at`, namespaceID); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]school.Lesson, 0, len(rows))
	for _, row := range rows {
		lesson, err := repo.unrowLesson(row)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lesson)
	}
	return lessons, nil
}

func (repo schoolRepository) UpdateLesson(ctx context.Context, lesson school.Lesson) (school.Lesson, error) {
	assessments, err := marshalMetrics(lesson.Assessments)
	if err != nil {
		return school.Lesson{}, err
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE lesson SET name = $2, assessments = $3, updated_at = $4 WHERE id = $1`,
		lesson.ID, lesson.Name, assessments, lesson.UpdatedAt.UTC())
	if err != nil {
		return school.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Lesson{}, school.ErrLessonNotFound
	}
	return lesson, nil
}

func (repo schoolRepository) DeleteLessonsByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In(`DELETE FROM lesson WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	return nil
}

// EntityRepository

func (repo schoolRepository) GetMetrics(ctx context.Context, level assessment.Level, entityID string) ([]assessment.Metric, error) {
	switch level {
	case assessment.LevelLesson:
		lesson, err := repo.GetLessonByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return lesson.Assessments, nil
	case assessment.LevelNamespace:
		ns, err := repo.GetNamespaceByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return ns.Assessments, nil
	}
	return nil, errors.Errorf("unknown level %q", level)
}

func (repo schoolRepository) SetMetrics(ctx context.Context, level assessment.Level, entityID string, metrics []assessment.Metric) error {
	assessments, err := marshalMetrics(metrics)
	if err != nil {
		return err
	}

	var table string
	switch level {
	case assessment.LevelLesson:
		table = "lesson"
	case assessment.LevelNamespace:
		table = "namespace"
	default:
		return errors.Errorf("unknown level %q", level)
	}

	res, err := repo.db.ExecContext(ctx, `UPDATE `+table+` SET assessments = $2, updated_at = $3 WHERE id = $1`,
		entityID, assessments, nowUTC())
	if err != nil {
		return errors.Wrap(err, "setting metrics")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if level == assessment.LevelLesson {
			return school.ErrLessonNotFound
		}
		return school.ErrNamespaceNotFound
	}
	return nil
}

func (repo schoolRepository) LessonNamespaceID(ctx context.Context, lessonID string) (string, error) {
	var namespaceID string
	if err := repo.db.GetContext(ctx, &namespaceID, `SELECT namespace_id FROM lesson WHERE id = $1`, lessonID); err != nil {
		if err == sql.ErrNoRows {
			return "", school.ErrLessonNotFound
		}
		return "", errors.Wrap(err, "getting lesson namespace")
	}
	return namespaceID, nil
}

func (repo schoolRepository) NamespaceLessonIDs(ctx context.Context, namespaceID string) ([]string, error) {
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, `SELECT id FROM lesson WHERE namespace_id = $1 ORDER BY created_at`, namespaceID); err != nil {
		return nil, errors.Wrap(err, "getting namespace lessons")
	}
	return ids, nil
}

func (repo schoolRepository) AllMetricOwners(ctx context.Context) ([]assessment.MetricOwner, error) {
	var owners []assessment.MetricOwner

	var lessons []lessonRow
	if err := repo.db.SelectContext(ctx, &lessons,
		`SELECT * FROM lesson WHERE jsonb_array_length(assessments) > 0 ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "scanning lesson metrics")
	}
	for _, row := range lessons {
		metrics, err := unmarshalMetrics(row.Assessments)
		if err != nil {
			return nil, err
		}
		owners = append(owners, assessment.MetricOwner{
			Level:       assessment.LevelLesson,
			EntityID:    row.ID,
			NamespaceID: row.NamespaceID,
			Metrics:     metrics,
		})
	}

	var namespaces []namespaceRow
	if err := repo.db.SelectContext(ctx, &namespaces,
		`SELECT * FROM namespace WHERE jsonb_array_length(assessments) > 0 ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "scanning namespace metrics")
	}
	for _, row := range namespaces {
		metrics, err := unmarshalMetrics(row.Assessments)
		if err != nil {
			return nil, err
		}
		owners = append(owners, assessment.MetricOwner{
			Level:    assessment.LevelNamespace,
			EntityID: row.ID,
			Metrics:  metrics,
		})
	}
	return owners, nil
}
