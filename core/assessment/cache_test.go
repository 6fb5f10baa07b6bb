package assessment

import (
	"encoding/json"
	"reflect"
	"testing"
)

func lessonMetric(name string) Metric {
	return Metric{Name: name, Level: LevelLesson, Coverage: Coverage{"all"}, Rule: Rule{"avg"}, AutoCompute: true}
}

func namespaceMetric(name, submetric string) Metric {
	return Metric{Name: name, Level: LevelNamespace, Coverage: Coverage{"all"}, Rule: Rule{"avg"}, Submetric: submetric, AutoCompute: true}
}

func dependentIDs(deps []Dependent) []string {
	ids := make([]string, len(deps))
	for i, d := range deps {
		ids[i] = d.DependentEntityID + ":" + d.Metric.Name
	}
	return ids
}

func TestDepsCacheRegisterLesson(t *testing.T) {
	cache := NewDepsCache()
	cache.Register(lessonMetric("grade"), "lesson1", "ns1")

	deps := cache.Dependents("grade", "lesson1")
	if got := dependentIDs(deps); !reflect.DeepEqual(got, []string{"lesson1:grade"}) {
		t.Errorf("Dependents() = %v; expected the lesson's own metric", got)
	}
	if deps := cache.Dependents("grade", "lesson2"); len(deps) != 0 {
		t.Errorf("Dependents() on unrelated lesson = %v; expected none", deps)
	}
	if deps := cache.Dependents("attendance", "lesson1"); len(deps) != 0 {
		t.Errorf("Dependents() on unregistered key = %v; expected none", deps)
	}
}

func TestDepsCacheRegisterIsIdempotent(t *testing.T) {
	cache := NewDepsCache()
	metric := lessonMetric("grade")
	cache.Register(metric, "lesson1", "ns1")
	cache.Register(metric, "lesson1", "ns1")

	if deps := cache.Dependents("grade", "lesson1"); len(deps) != 1 {
		t.Errorf("got %d dependents after re-registering; expected 1", len(deps))
	}
}

func TestDepsCacheReRegisterReplaces(t *testing.T) {
	cache := NewDepsCache()
	cache.Register(lessonMetric("grade"), "lesson1", "ns1")

	edited := lessonMetric("grade")
	edited.Rule = Rule{"dropLowestN", float64(1)}
	cache.Register(edited, "lesson1", "ns1")

	deps := cache.Dependents("grade", "lesson1")
	if len(deps) != 1 {
		t.Fatalf("got %d dependents after edit; expected 1", len(deps))
	}
	if deps[0].Metric.Rule.Name() != "dropLowestN" {
		t.Errorf("dependent carries rule %q; expected the edited rule", deps[0].Metric.Rule.Name())
	}
}

func TestDepsCacheNamespaceFanOut(t *testing.T) {
	// lessons known before the rollup registers: Register fans the
	// namespace dependent down to each of them
	cache := NewDepsCache()
	cache.Register(lessonMetric("grade"), "lesson1", "ns1")
	cache.Register(lessonMetric("grade"), "lesson2", "ns1")
	cache.Register(namespaceMetric("overall", "grade"), "ns1")

	for _, lessonID := range []string{"lesson1", "lesson2"} {
		got := dependentIDs(cache.Dependents("grade", lessonID))
		want := []string{lessonID + ":grade", "ns1:overall"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Dependents(grade, %s) = %v; expected %v", lessonID, got, want)
		}
	}
}

func TestDepsCacheNamespaceFanIn(t *testing.T) {
	// rollup registered first: a lesson joining the namespace later still
	// picks up the namespace dependent
	cache := NewDepsCache()
	cache.Register(namespaceMetric("overall", "grade"), "ns1")
	cache.Register(lessonMetric("grade"), "lesson1", "ns1")

	got := dependentIDs(cache.Dependents("grade", "lesson1"))
	want := []string{"lesson1:grade", "ns1:overall"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dependents(grade, lesson1) = %v; expected %v", got, want)
	}
}

func TestDepsCacheNamespaceMetricWithoutSubmetric(t *testing.T) {
	cache := NewDepsCache()
	metric := namespaceMetric("overall", "")
	cache.Register(metric, "ns1")

	if deps := cache.Dependents("", "ns1"); len(deps) != 0 {
		t.Errorf("Dependents() = %v; expected no forest entries without a submetric", deps)
	}
}

func TestDepsCacheRemove(t *testing.T) {
	cache := NewDepsCache()
	cache.Register(lessonMetric("grade"), "lesson1", "ns1")
	cache.Register(namespaceMetric("overall", "grade"), "ns1")

	cache.Remove(LevelNamespace, "ns1", "overall")

	if got := dependentIDs(cache.Dependents("grade", "lesson1")); !reflect.DeepEqual(got, []string{"lesson1:grade"}) {
		t.Errorf("Dependents(grade, lesson1) = %v; expected only the lesson metric left", got)
	}
	if deps := cache.Dependents("grade", "ns1"); len(deps) != 0 {
		t.Errorf("Dependents(grade, ns1) = %v; expected the canonical entry gone", deps)
	}

	cache.Remove(LevelLesson, "lesson1", "grade")
	if deps := cache.Dependents("grade", "lesson1"); len(deps) != 0 {
		t.Errorf("Dependents(grade, lesson1) = %v; expected empty cache", deps)
	}

	// removing an unknown registration is a no-op
	cache.Remove(LevelLesson, "lesson9", "grade")
}

func TestDepsCacheDependentsReturnsCopy(t *testing.T) {
	cache := NewDepsCache()
	cache.Register(lessonMetric("grade"), "lesson1", "ns1")

	deps := cache.Dependents("grade", "lesson1")
	deps[0].DependentEntityID = "mutated"

	if got := cache.Dependents("grade", "lesson1"); got[0].DependentEntityID != "lesson1" {
		t.Error("mutating the returned slice leaked into the cache")
	}
}

func TestDepsCacheDump(t *testing.T) {
	cache := NewDepsCache()
	cache.Register(lessonMetric("grade"), "lesson2", "ns1")
	cache.Register(lessonMetric("grade"), "lesson1", "ns1")
	cache.Register(namespaceMetric("overall", "grade"), "ns1")

	dump := cache.Dump()

	wantIndex := []string{
		"lesson-lesson1-grade",
		"lesson-lesson2-grade",
		"namespace-ns1-overall",
	}
	if !reflect.DeepEqual(dump.Index, wantIndex) {
		t.Errorf("Dump().Index = %v; expected %v", dump.Index, wantIndex)
	}
	if got := dump.NamespaceToLessons["ns1"]; !reflect.DeepEqual(got, []string{"lesson1", "lesson2"}) {
		t.Errorf("Dump().NamespaceToLessons[ns1] = %v; expected sorted lesson ids", got)
	}
	if got := len(dump.Forest["lesson1"]["grade"]); got != 2 {
		t.Errorf("Dump().Forest[lesson1][grade] has %d dependents; expected 2", got)
	}

	if _, err := json.Marshal(dump); err != nil {
		t.Errorf("Dump() is not JSON-serializable: %v", err)
	}
}
