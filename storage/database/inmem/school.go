package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/school"
)

type schoolRepository struct {
	db *schoolTables
}

var (
	_ school.Repository           = (*schoolRepository)(nil)
	_ assessment.EntityRepository = (*schoolRepository)(nil)
)

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) CreateNamespace(ctx context.Context, ns school.Namespace) (school.Namespace, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ns.ID = uuid.New().String()
	repo.db.namespaces[ns.ID] = &ns
	return ns, nil
}

func (repo *schoolRepository) GetNamespaceByID(ctx context.Context, id string) (school.Namespace, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ns, ok := repo.db.namespaces[id]; ok {
		return *ns, nil
	}
	return school.Namespace{}, school.ErrNamespaceNotFound
}

func (repo *schoolRepository) QueryAllNamespaces(ctx context.Context) ([]school.Namespace, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	namespaces := make([]school.Namespace, 0, len(repo.db.namespaces))
	for _, ns := range repo.db.namespaces {
		namespaces = append(namespaces, *ns)
	}
	sort.Slice(namespaces, func(i, j int) bool { return namespaces[i].CreatedAt.Before(namespaces[j].CreatedAt) })
	return namespaces, nil
}

func (repo *schoolRepository) UpdateNamespace(ctx context.Context, ns school.Namespace) (school.Namespace, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.namespaces[ns.ID]; !ok {
		return school.Namespace{}, school.ErrNamespaceNotFound
	}
	repo.db.namespaces[ns.ID] = &ns
	return ns, nil
}

func (repo *schoolRepository) DeleteNamespacesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.namespaces, id)
	}
	return nil
}

func (repo *schoolRepository) CreateLesson(ctx context.Context, lesson school.Lesson) (school.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	lesson.ID = uuid.New().String()
	repo.db.lessons[lesson.ID] = &lesson
	return lesson, nil
}

func (repo *schoolRepository) GetLessonByID(ctx context.Context, id string) (school.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lesson, ok := repo.db.lessons[id]; ok {
		return *lesson, nil
	}
	return school.Lesson{}, school.ErrLessonNotFound
}

func (repo *schoolRepository) QueryLessonsByNamespaceID(ctx context.Context, namespaceID string) ([]school.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryLessons(namespaceID), nil
}

func (repo *schoolRepository) queryLessons(namespaceID string) []school.Lesson {
	lessons := make([]school.Lesson, 0)
	for _, lesson := range repo.db.lessons {
		if lesson.NamespaceID == namespaceID {
			lessons = append(lessons, *lesson)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].CreatedAt.Before(lessons[j].CreatedAt) })
	return lessons
}

func (repo *schoolRepository) UpdateLesson(ctx context.Context, lesson school.Lesson) (school.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[lesson.ID]; !ok {
		return school.Lesson{}, school.ErrLessonNotFound
	}
	repo.db.lessons[lesson.ID] = &lesson
	return lesson, nil
}

func (repo *schoolRepository) DeleteLessonsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.lessons, id)
	}
	return nil
}

// EntityRepository

func (repo *schoolRepository) GetMetrics(ctx context.Context, level assessment.Level, entityID string) ([]assessment.Metric, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch level {
	case assessment.LevelLesson:
		if lesson, ok := repo.db.lessons[entityID]; ok {
			return lesson.Assessments, nil
		}
		return nil, school.ErrLessonNotFound
	case assessment.LevelNamespace:
		if ns, ok := repo.db.namespaces[entityID]; ok {
			return ns.Assessments, nil
		}
		return nil, school.ErrNamespaceNotFound
	}
	return nil, school.ErrNamespaceNotFound
}

func (repo *schoolRepository) SetMetrics(ctx context.Context, level assessment.Level, entityID string, metrics []assessment.Metric) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	switch level {
	case assessment.LevelLesson:
		if lesson, ok := repo.db.lessons[entityID]; ok {
			lesson.Assessments = metrics
			lesson.UpdatedAt = now
			return nil
		}
		return school.ErrLessonNotFound
	case assessment.LevelNamespace:
		if ns, ok := repo.db.namespaces[entityID]; ok {
			ns.Assessments = metrics
			ns.UpdatedAt = now
			return nil
		}
		return school.ErrNamespaceNotFound
	}
	return school.ErrNamespaceNotFound
}

func (repo *schoolRepository) LessonNamespaceID(ctx context.Context, lessonID string) (string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lesson, ok := repo.db.lessons[lessonID]; ok {
		return lesson.NamespaceID, nil
	}
	return "", school.ErrLessonNotFound
}

func (repo *schoolRepository) NamespaceLessonIDs(ctx context.Context, namespaceID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := repo.queryLessons(namespaceID)
	ids := make([]string, 0, len(lessons))
	for _, lesson := range lessons {
		ids = append(ids, lesson.ID)
	}
	return ids, nil
}

func (repo *schoolRepository) AllMetricOwners(ctx context.Context) ([]assessment.MetricOwner, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var owners []assessment.MetricOwner

	lessons := make([]school.Lesson, 0, len(repo.db.lessons))
	for _, lesson := range repo.db.lessons {
		lessons = append(lessons, *lesson)
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].CreatedAt.Before(lessons[j].CreatedAt) })
	for _, lesson := range lessons {
		if len(lesson.Assessments) == 0 {
			continue
		}
		owners = append(owners, assessment.MetricOwner{
			Level:       assessment.LevelLesson,
			EntityID:    lesson.ID,
			NamespaceID: lesson.NamespaceID,
			Metrics:     lesson.Assessments,
		})
	}

	namespaces := make([]school.Namespace, 0, len(repo.db.namespaces))
	for _, ns := range repo.db.namespaces {
		namespaces = append(namespaces, *ns)
	}
	sort.Slice(namespaces, func(i, j int) bool { return namespaces[i].CreatedAt.Before(namespaces[j].CreatedAt) })
	for _, ns := range namespaces {
		if len(ns.Assessments) == 0 {
			continue
		}
		owners = append(owners, assessment.MetricOwner{
			Level:    assessment.LevelNamespace,
			EntityID: ns.ID,
			Metrics:  ns.Assessments,
		})
	}
	return owners, nil
}
