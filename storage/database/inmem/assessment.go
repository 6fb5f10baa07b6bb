package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/assessment"
)

type recordRepository struct {
	db *recordTable
}

var _ assessment.RecordRepository = (*recordRepository)(nil)

func NewRecordRepository(db *DB) *recordRepository {
	return &recordRepository{db: db.record}
}

func (repo *recordRepository) CreateRecord(ctx context.Context, rec assessment.Record) (assessment.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec.ID = uuid.New().String()
	repo.db.table = append(repo.db.table, rec)
	return rec, nil
}

func (repo *recordRepository) FilterRecords(ctx context.Context, filter assessment.RecordFilter) ([]assessment.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]assessment.Record, 0)
	for _, rec := range repo.db.table {
		if matchesRecordFilter(rec, filter) {
			records = append(records, rec)
		}
	}
	return records, nil
}

func matchesRecordFilter(rec assessment.Record, filter assessment.RecordFilter) bool {
	if filter.Lesson != "" && rec.Lesson != filter.Lesson {
		return false
	}
	if filter.MetricName != "" && rec.MetricName != filter.MetricName {
		return false
	}
	if len(filter.Users) > 0 {
		var match bool
		for _, u := range filter.Users {
			if rec.User == u {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if filter.Tag != "" && rec.Tag != filter.Tag {
		return false
	}
	if !filter.From.IsZero() && rec.Time.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && rec.Time.After(filter.To) {
		return false
	}
	return true
}
