package assessment

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// in-memory repository stubs shared by the engine and service tests

type entityRepoStub struct {
	metrics   map[string][]Metric // keyed level:entityID
	lessonNS  map[string]string
	nsLessons map[string][]string
	setErr    error
}

func newEntityRepoStub() *entityRepoStub {
	return &entityRepoStub{
		metrics:   make(map[string][]Metric),
		lessonNS:  make(map[string]string),
		nsLessons: make(map[string][]string),
	}
}

func (s *entityRepoStub) key(level Level, entityID string) string {
	return string(level) + ":" + entityID
}

func (s *entityRepoStub) addLesson(lessonID, namespaceID string) {
	s.lessonNS[lessonID] = namespaceID
	s.nsLessons[namespaceID] = append(s.nsLessons[namespaceID], lessonID)
}

func (s *entityRepoStub) GetMetrics(ctx context.Context, level Level, entityID string) ([]Metric, error) {
	return s.metrics[s.key(level, entityID)], nil
}

func (s *entityRepoStub) SetMetrics(ctx context.Context, level Level, entityID string, metrics []Metric) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.metrics[s.key(level, entityID)] = metrics
	return nil
}

func (s *entityRepoStub) LessonNamespaceID(ctx context.Context, lessonID string) (string, error) {
	nsID, ok := s.lessonNS[lessonID]
	if !ok {
		return "", errors.Errorf("unknown lesson %s", lessonID)
	}
	return nsID, nil
}

func (s *entityRepoStub) NamespaceLessonIDs(ctx context.Context, namespaceID string) ([]string, error) {
	return s.nsLessons[namespaceID], nil
}

func (s *entityRepoStub) AllMetricOwners(ctx context.Context) ([]MetricOwner, error) {
	owners := make([]MetricOwner, 0)
	for lessonID, nsID := range s.lessonNS {
		if metrics := s.metrics[s.key(LevelLesson, lessonID)]; len(metrics) > 0 {
			owners = append(owners, MetricOwner{Level: LevelLesson, EntityID: lessonID, NamespaceID: nsID, Metrics: metrics})
		}
	}
	for nsID := range s.nsLessons {
		if metrics := s.metrics[s.key(LevelNamespace, nsID)]; len(metrics) > 0 {
			owners = append(owners, MetricOwner{Level: LevelNamespace, EntityID: nsID, Metrics: metrics})
		}
	}
	return owners, nil
}

type recordRepoStub struct {
	mu      sync.Mutex
	records []Record
	nextID  int
}

func (s *recordRepoStub) CreateRecord(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = fmt.Sprintf("rec%d", s.nextID)
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *recordRepoStub) FilterRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]Record, 0)
	for _, rec := range s.records {
		if filter.Lesson != "" && rec.Lesson != filter.Lesson {
			continue
		}
		if filter.MetricName != "" && rec.MetricName != filter.MetricName {
			continue
		}
		if filter.Tag != "" && rec.Tag != filter.Tag {
			continue
		}
		if len(filter.Users) > 0 {
			found := false
			for _, uid := range filter.Users {
				if rec.User == uid {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		matches = append(matches, rec)
	}
	return matches, nil
}

func (s *recordRepoStub) addRecord(lessonID, userID, metricName, component string, score float64, tag string) {
	if tag == "" {
		tag = DefaultTag
	}
	s.records = append(s.records, Record{
		Lesson:     lessonID,
		User:       userID,
		Score:      score,
		Tag:        tag,
		MetricName: metricName,
		Component:  component,
	})
}

type resultRepoStub struct {
	mu      sync.Mutex
	saved   map[string]map[string]Result // userID -> key -> result
	removed []string
	saveErr error
}

func newResultRepoStub() *resultRepoStub {
	return &resultRepoStub{saved: make(map[string]map[string]Result)}
}

func (s *resultRepoStub) SaveUserResult(ctx context.Context, userID, key string, res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.saved[userID]; !ok {
		s.saved[userID] = make(map[string]Result)
	}
	s.saved[userID][key] = res
	return nil
}

func (s *resultRepoStub) RemoveUserResults(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, key)
	for _, results := range s.saved {
		delete(results, key)
	}
	return nil
}

func (s *resultRepoStub) result(userID, key string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.saved[userID][key]
	return res, ok
}

type loggerStub struct {
	mu     sync.Mutex
	errors []string
}

func (l *loggerStub) Debug(msg string, args ...interface{}) {}
func (l *loggerStub) Info(msg string, args ...interface{})  {}
func (l *loggerStub) Warn(msg string, args ...interface{})  {}
func (l *loggerStub) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
func (l *loggerStub) Fatal(msg string, args ...interface{}) {}
