package school_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/school"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

func setup() school.Service {
	memdb, err := inmemdb.Open()
	if err != nil {
		panic(err)
	}
	return school.NewService(inmemdb.NewSchoolRepository(memdb))
}

func Test_service_Namespaces(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	ns, err := svc.CreateNamespace(ctx, school.NewNamespace{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)
	assert.NotEmpty(t, ns.ID)
	assert.Equal(t, "Mathematics", ns.Name)
	assert.False(t, ns.CreatedAt.IsZero())

	got, err := svc.GetNamespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, ns.ID, got.ID)

	_, err = svc.GetNamespace(ctx, "nope")
	assert.Equal(t, school.ErrNamespaceNotFound, err)

	all, err := svc.QueryNamespaces(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func Test_service_Lessons(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	ns, err := svc.CreateNamespace(ctx, school.NewNamespace{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)

	lesson, err := svc.CreateLesson(ctx, ns.ID, school.NewLesson{Name: "Algebra"})
	require.NoError(t, err)
	assert.NotEmpty(t, lesson.ID)
	assert.Equal(t, ns.ID, lesson.NamespaceID)

	_, err = svc.CreateLesson(ctx, "nope", school.NewLesson{Name: "Orphan"})
	assert.Equal(t, school.ErrNamespaceNotFound, err)

	got, err := svc.GetLesson(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, lesson.ID, got.ID)

	lessons, err := svc.QueryLessons(ctx, ns.ID)
	require.NoError(t, err)
	assert.Len(t, lessons, 1)

	require.NoError(t, svc.DeleteLesson(ctx, lesson.ID))
	_, err = svc.GetLesson(ctx, lesson.ID)
	assert.Equal(t, school.ErrLessonNotFound, err)
}

func Test_service_DeleteNamespaceCascades(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	ns, err := svc.CreateNamespace(ctx, school.NewNamespace{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)
	l1, err := svc.CreateLesson(ctx, ns.ID, school.NewLesson{Name: "Algebra"})
	require.NoError(t, err)
	l2, err := svc.CreateLesson(ctx, ns.ID, school.NewLesson{Name: "Geometry"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNamespace(ctx, ns.ID))

	_, err = svc.GetNamespace(ctx, ns.ID)
	assert.Equal(t, school.ErrNamespaceNotFound, err)
	for _, id := range []string{l1.ID, l2.ID} {
		_, err = svc.GetLesson(ctx, id)
		assert.Equal(t, school.ErrLessonNotFound, err)
	}
}
