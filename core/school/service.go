package school

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrLessonNotFound    = errors.New("lesson not found")
)

type (
	Repository interface {
		CreateNamespace(ctx context.Context, ns Namespace) (Namespace, error)
		GetNamespaceByID(ctx context.Context, id string) (Namespace, error)
		QueryAllNamespaces(ctx context.Context) ([]Namespace, error)
		UpdateNamespace(ctx context.Context, ns Namespace) (Namespace, error)
		DeleteNamespacesByID(ctx context.Context, ids ...string) error

		CreateLesson(ctx context.Context, lesson Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		QueryLessonsByNamespaceID(ctx context.Context, namespaceID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lesson Lesson) (Lesson, error)
		DeleteLessonsByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		CreateNamespace(ctx context.Context, nn NewNamespace) (Namespace, error)
		GetNamespace(ctx context.Context, id string) (Namespace, error)
		QueryNamespaces(ctx context.Context) ([]Namespace, error)
		DeleteNamespace(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, namespaceID string, nl NewLesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		QueryLessons(ctx context.Context, namespaceID string) ([]Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) CreateNamespace(ctx context.Context, nn NewNamespace) (Namespace, error) {
	now := time.Now().UTC()
	return svc.repo.CreateNamespace(ctx, Namespace{
		Name:      nn.Name,
		Code:      nn.Code,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) GetNamespace(ctx context.Context, id string) (Namespace, error) {
	return svc.repo.GetNamespaceByID(ctx, id)
}

func (svc *service) QueryNamespaces(ctx context.Context) ([]Namespace, error) {
	return svc.repo.QueryAllNamespaces(ctx)
}

func (svc *service) DeleteNamespace(ctx context.Context, id string) error {
	lessons, err := svc.repo.QueryLessonsByNamespaceID(ctx, id)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	if len(ids) > 0 {
		if err = svc.repo.DeleteLessonsByID(ctx, ids...); err != nil {
			return err
		}
	}
	return svc.repo.DeleteNamespacesByID(ctx, id)
}

func (svc *service) CreateLesson(ctx context.Context, namespaceID string, nl NewLesson) (Lesson, error) {
	if _, err := svc.repo.GetNamespaceByID(ctx, namespaceID); err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateLesson(ctx, Lesson{
		NamespaceID: namespaceID,
		Name:        nl.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *service) QueryLessons(ctx context.Context, namespaceID string) ([]Lesson, error) {
	return svc.repo.QueryLessonsByNamespaceID(ctx, namespaceID)
}

func (svc *service) DeleteLesson(ctx context.Context, id string) error {
	return svc.repo.DeleteLessonsByID(ctx, id)
}
