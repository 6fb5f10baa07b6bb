package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_assessmentApi_metricCRUD(t *testing.T) {
	ns := testutil.CreateNamespace(t, schoolRepo, "Mathematics", "MATH")
	lesson := testutil.CreateLesson(t, schoolRepo, ns.ID, "Algebra")

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teach1@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "stud1", "stud1@test.cd", "", []string{user.RoleStudent}, true)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	metricsPath := fmt.Sprintf("/v1/lessons/%s/metrics", lesson.ID)
	newMetric := marchallObj(t, assessment.NewMetric{
		Name:        "grade",
		Coverage:    assessment.Coverage{"all"},
		Rule:        assessment.Rule{"avg"},
		AutoCompute: true,
	})

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: metricsPath, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Staff required", method: http.MethodGet, path: metricsPath, token: studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "No metrics yet", method: http.MethodGet, path: metricsPath, token: teacherToken, wantData: []byte("[]")},
		{name: "Create", method: http.MethodPost, path: metricsPath, token: teacherToken, body: newMetric, wantCode: http.StatusCreated},
		{
			name: "Create duplicate", method: http.MethodPost, path: metricsPath, token: teacherToken, body: newMetric,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": assessment.ErrMetricExists.Error()}),
		},
		{
			name:   "Create unknown rule",
			method: http.MethodPost, path: metricsPath, token: teacherToken,
			body:     marchallObj(t, assessment.NewMetric{Name: "median", Coverage: assessment.Coverage{"all"}, Rule: assessment.Rule{"median"}}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: `unknown rule "median"`}),
		},
		{
			name:   "Create missing name",
			method: http.MethodPost, path: metricsPath, token: teacherToken,
			body:     marchallObj(t, assessment.NewMetric{Coverage: assessment.Coverage{"all"}, Rule: assessment.Rule{"avg"}}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:   "Update",
			method: http.MethodPut, path: metricsPath + "/grade", token: teacherToken,
			body: marchallObj(t, map[string]interface{}{"rule": []interface{}{"dropLowestN", 1}}),
		},
		{
			name:   "Update unknown metric",
			method: http.MethodPut, path: metricsPath + "/nope", token: teacherToken,
			body:     marchallObj(t, map[string]interface{}{}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: assessment.ErrMetricNotFound.Error()}),
		},
		{name: "Delete", method: http.MethodDelete, path: metricsPath + "/grade", token: teacherToken, wantCode: http.StatusNoContent},
		{
			name:   "Delete unknown metric",
			method: http.MethodDelete, path: metricsPath + "/grade", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: assessment.ErrMetricNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_assessmentApi_scoresAndCompute(t *testing.T) {
	ns := testutil.CreateNamespace(t, schoolRepo, "Physics", "PHY")
	lesson1 := testutil.CreateLesson(t, schoolRepo, ns.ID, "Mechanics")
	lesson2 := testutil.CreateLesson(t, schoolRepo, ns.ID, "Optics")

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach2", "teach2@test.cd", "", []string{user.RoleTeacher}, true)
	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice2", "alice2@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, teacher)

	post := func(t *testing.T, path string, body []byte, wantCode int) []byte {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Fatalf("POST %s code = %v (%s); wantCode %v", path, rec.Code, rec.Body.String(), wantCode)
		}
		return rec.Body.Bytes()
	}

	// attach an auto-computing lesson metric on both lessons and a rollup;
	// hyphenated names must survive the whole path since they end up as the
	// last segment of the persistence keys
	newMetric := marchallObj(t, assessment.NewMetric{
		Name:        "quiz-avg",
		Coverage:    assessment.Coverage{"all"},
		Rule:        assessment.Rule{"avg"},
		AutoCompute: true,
	})
	post(t, fmt.Sprintf("/v1/lessons/%s/metrics", lesson1.ID), newMetric, http.StatusCreated)
	post(t, fmt.Sprintf("/v1/lessons/%s/metrics", lesson2.ID), newMetric, http.StatusCreated)
	post(t, fmt.Sprintf("/v1/namespaces/%s/metrics", ns.ID), marchallObj(t, assessment.NewMetric{
		Name:        "course-grade",
		Coverage:    assessment.Coverage{"all"},
		Rule:        assessment.Rule{"avg"},
		Submetric:   "quiz-avg",
		AutoCompute: true,
	}), http.StatusCreated)

	// record raw scores for alice
	for _, score := range []struct {
		lessonID  string
		component string
		value     float64
	}{
		{lesson1.ID, "hw1", 4},
		{lesson1.ID, "hw2", 8},
		{lesson2.ID, "hw1", 10},
	} {
		body := marchallObj(t, assessment.NewRecord{
			User:       alice.ID,
			Score:      score.value,
			MetricName: "quiz-avg",
			Component:  score.component,
		})
		var rec assessment.Record
		unmarchallObj(t, post(t, fmt.Sprintf("/v1/lessons/%s/scores", score.lessonID), body, http.StatusCreated), &rec)
		if rec.ID == "" || rec.Tag != assessment.DefaultTag {
			t.Errorf("recorded = %+v; expected id set and the default tag", rec)
		}
	}

	// auto-compute persisted the derived results on the user document
	refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: alice.ID})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	assertResult(t, refreshed, assessment.ResultKey(assessment.LevelLesson, lesson1.ID, "quiz-avg"), 6)
	assertResult(t, refreshed, assessment.ResultKey(assessment.LevelLesson, lesson2.ID, "quiz-avg"), 10)
	assertResult(t, refreshed, assessment.ResultKey(assessment.LevelNamespace, ns.ID, "course-grade"), 8)

	// manual compute returns the same values
	var res struct {
		Results map[string]*float64 `json:"results"`
	}
	body := marchallObj(t, map[string]interface{}{"users": []string{alice.ID, "ghost"}})
	unmarchallObj(t, post(t, fmt.Sprintf("/v1/namespaces/%s/metrics/course-grade/compute", ns.ID), body, http.StatusOK), &res)
	if got := res.Results[alice.ID]; got == nil || *got != 8 {
		t.Errorf("compute result = %v; expected 8", got)
	}
	if got, ok := res.Results["ghost"]; !ok || got != nil {
		t.Errorf("compute result for unscored user = %v (present %v); expected explicit null", got, ok)
	}

	// compute against a missing metric is a 404
	req2, rec2 := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/lessons/%s/metrics/nope/compute", lesson1.ID), token, body)
	app.ServeHTTP(rec2, req2)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: assessment.ErrMetricNotFound.Error()})}, rec2)
}

func assertResult(t *testing.T, usr user.User, key string, want float64) {
	t.Helper()
	res, ok := usr.Assessments[key]
	if !ok {
		t.Errorf("no result under %s", key)
		return
	}
	if !res.Instance.Valid || res.Instance.Float64 != want {
		t.Errorf("result under %s = %v; expected %v", key, res.Instance, want)
	}
}

func Test_assessmentApi_cacheDump(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin2", "admin2@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach3", "teach3@test.cd", "", []string{user.RoleTeacher}, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/assessments/cache", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", path: "/v1/assessments/cache", token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Dump", path: "/v1/assessments/cache", token: getToken(t, admin)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == 0 {
				var dump assessment.CacheDump
				unmarchallObj(t, rec.Body.Bytes(), &dump)
				if dump.Index == nil {
					t.Error("dump has no index field")
				}
			}
		})
	}
}
