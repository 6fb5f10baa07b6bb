package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/school"
	"github.com/darasahq/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateNamespace(t *testing.T, repo school.Repository, name, code string) school.Namespace {
	t.Helper()

	now := time.Now().UTC()
	ns, err := repo.CreateNamespace(context.Background(), school.Namespace{
		Name:      name,
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateNamespace() failed: %v", err)
	}
	return ns
}

func CreateLesson(t *testing.T, repo school.Repository, namespaceID, name string) school.Lesson {
	t.Helper()

	now := time.Now().UTC()
	lesson, err := repo.CreateLesson(context.Background(), school.Lesson{
		NamespaceID: namespaceID,
		Name:        name,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lesson
}

func CreateRecord(
	t *testing.T,
	repo assessment.RecordRepository,
	lessonID, userID, metricName, component string,
	score float64,
	tag ...string,
) assessment.Record {
	t.Helper()

	recTag := assessment.DefaultTag
	if len(tag) > 0 {
		recTag = tag[0]
	}
	rec, err := repo.CreateRecord(context.Background(), assessment.Record{
		Lesson:     lessonID,
		User:       userID,
		Score:      score,
		Tag:        recTag,
		MetricName: metricName,
		Component:  component,
		Time:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}
