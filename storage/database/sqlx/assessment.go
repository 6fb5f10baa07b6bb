package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/assessment"
)

func nowUTC() time.Time { return time.Now().UTC() }

type recordRepository struct {
	db *sqlx.DB
}

var _ assessment.RecordRepository = (*recordRepository)(nil)

func NewRecordRepository(db *sqlx.DB) *recordRepository {
	return &recordRepository{db: db}
}

type recordRow struct {
	ID            string    `db:"id"`
	LessonID      string    `db:"lesson_id"`
	UserID        string    `db:"user_id"`
	Score         float64   `db:"score"`
	Tag           string    `db:"tag"`
	MetricName    string    `db:"metric_name"`
	Component     string    `db:"component"`
	ComponentType string    `db:"component_type"`
	Time          time.Time `db:"time"`
}

func (repo recordRepository) unrow(row recordRow) assessment.Record {
	return assessment.Record{
		ID:            row.ID,
		Lesson:        row.LessonID,
		User:          row.UserID,
		Score:         row.Score,
		Tag:           row.Tag,
		MetricName:    row.MetricName,
		Component:     row.Component,
		ComponentType: row.ComponentType,
		Time:          row.Time,
	}
}

func (repo recordRepository) CreateRecord(ctx context.Context, rec assessment.Record) (assessment.Record, error) {
	rec.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO assessment_record (id, lesson_id, user_id, score, tag, metric_name, component, component_type, time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Lesson, rec.User, rec.Score, rec.Tag, rec.MetricName, rec.Component, rec.ComponentType, rec.Time.UTC())
	if err != nil {
		return assessment.Record{}, errors.Wrap(err, "inserting record")
	}
	return rec, nil
}

func (repo recordRepository) FilterRecords(ctx context.Context, filter assessment.RecordFilter) ([]assessment.Record, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "?"
	}

	if filter.Lesson != "" {
		conds = append(conds, "lesson_id = "+arg(filter.Lesson))
	}
	if filter.MetricName != "" {
		conds = append(conds, "metric_name = "+arg(filter.MetricName))
	}
	if len(filter.Users) > 0 {
		conds = append(conds, "user_id = ANY("+arg(pq.Array(filter.Users))+")")
	}
	if filter.Tag != "" {
		conds = append(conds, "tag = "+arg(filter.Tag))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "time >= "+arg(filter.From.UTC()))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "time <= "+arg(filter.To.UTC()))
	}

	query := `SELECT * FROM assessment_record`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY time"

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering records")
	}
	records := make([]assessment.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.unrow(row))
	}
	return records, nil
}
