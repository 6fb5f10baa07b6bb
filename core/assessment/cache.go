package assessment

import (
	"sort"
	"sync"
)

type (
	// Dependent is one entry of a computation set: metric Metric on entity
	// DependentEntityID must be recomputed when the watched raw key changes.
	Dependent struct {
		DependentEntityID string `json:"dependentEntityId"`
		Metric            Metric `json:"metric"`
	}

	// DepsCache is the in-memory dependency forest over auto-computing
	// metrics. It answers "which metrics, at which entities, must be
	// recomputed when the raw score keyed K on entity E changes?".
	//
	// forest maps entity id -> consumed metric-name key -> computation set.
	// index tracks registered metrics as level-entityId-metricName strings.
	// namespaceToLessons resolves a namespace metric's submetric dependency
	// down to each child lesson.
	//
	// The forest only encodes "could possibly depend"; the computation
	// engine applies the coverage filter that narrows to "does depend".
	//
	// Mutations are serialized through the mutex; lookups take the read
	// lock and return copies, so callers never observe a torn entry.
	DepsCache struct {
		mu                 sync.RWMutex
		forest             map[string]map[string][]Dependent
		index              map[string]struct{}
		namespaceToLessons map[string]map[string]struct{}
	}

	// CacheDump is the JSON-serializable snapshot exposed by the cache
	// introspection endpoint. Sets are serialized as sorted arrays.
	CacheDump struct {
		Forest             map[string]map[string][]Dependent `json:"forest"`
		Index              []string                          `json:"index"`
		NamespaceToLessons map[string][]string               `json:"namespaceToLessons"`
	}
)

// NewDepsCache constructs an empty cache. The composition root owns a single
// instance for the process, populated by a one-time bootstrap scan of all
// persisted autoCompute metrics.
func NewDepsCache() *DepsCache {
	return &DepsCache{
		forest:             make(map[string]map[string][]Dependent),
		index:              make(map[string]struct{}),
		namespaceToLessons: make(map[string]map[string]struct{}),
	}
}

// Register records metric (attached to entityID) into the forest.
// For lesson-level metrics, namespaceID records the lesson's namespace
// membership so namespace rollup metrics can reach it.
// Re-registering an existing (level, entityId, name) triple replaces the
// prior registration so edits take effect; it never duplicates entries.
func (c *DepsCache) Register(metric Metric, entityID string, namespaceID ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ResultKey(metric.Level, entityID, metric.Name)
	if _, ok := c.index[key]; ok {
		c.remove(metric.Level, entityID, metric.Name)
	}
	c.index[key] = struct{}{}

	switch metric.Level {
	case LevelLesson:
		// the lesson metric consumes raw scores keyed by its own name
		c.addDependent(entityID, metric.Name, Dependent{DependentEntityID: entityID, Metric: metric})

		if len(namespaceID) > 0 && namespaceID[0] != "" {
			nsID := namespaceID[0]
			if _, ok := c.namespaceToLessons[nsID]; !ok {
				c.namespaceToLessons[nsID] = make(map[string]struct{})
			}
			if _, ok := c.namespaceToLessons[nsID][entityID]; !ok {
				c.namespaceToLessons[nsID][entityID] = struct{}{}
				// fan existing namespace rollup edges down to the new lesson
				for rawKey, deps := range c.forest[nsID] {
					for _, dep := range deps {
						if dep.DependentEntityID == nsID {
							c.addDependent(entityID, rawKey, dep)
						}
					}
				}
			}
		}

	case LevelNamespace:
		if metric.Submetric == "" {
			return
		}
		// canonical entry under the namespace id, fanned out to each known
		// child lesson: a raw score feeding the submetric on any of them
		// invalidates this rollup
		dep := Dependent{DependentEntityID: entityID, Metric: metric}
		c.addDependent(entityID, metric.Submetric, dep)
		for lessonID := range c.namespaceToLessons[entityID] {
			c.addDependent(lessonID, metric.Submetric, dep)
		}
	}
}

// Remove deletes the (level, entityId, name) registration: the index entry
// and every forest entry pointing at it, leaving no dangling references.
func (c *DepsCache) Remove(level Level, entityID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(level, entityID, name)
	delete(c.index, ResultKey(level, entityID, name))
}

// Dependents returns the computation set for a newly recorded raw score:
// the metrics on entityID keyed by metricName, plus namespace rollups
// reachable through the lesson's namespace membership (one level up only).
// An unregistered key returns an empty result, never an error.
func (c *DepsCache) Dependents(metricName, entityID string) []Dependent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	deps := c.forest[entityID][metricName]
	out := make([]Dependent, len(deps))
	copy(out, deps)
	return out
}

// Dump snapshots the cache for the introspection endpoint.
func (c *DepsCache) Dump() CacheDump {
	c.mu.RLock()
	defer c.mu.RUnlock()

	forest := make(map[string]map[string][]Dependent, len(c.forest))
	for entityID, byKey := range c.forest {
		cp := make(map[string][]Dependent, len(byKey))
		for key, deps := range byKey {
			depsCp := make([]Dependent, len(deps))
			copy(depsCp, deps)
			cp[key] = depsCp
		}
		forest[entityID] = cp
	}

	index := make([]string, 0, len(c.index))
	for key := range c.index {
		index = append(index, key)
	}
	sort.Strings(index)

	n2l := make(map[string][]string, len(c.namespaceToLessons))
	for nsID, lessons := range c.namespaceToLessons {
		ids := make([]string, 0, len(lessons))
		for id := range lessons {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		n2l[nsID] = ids
	}

	return CacheDump{Forest: forest, Index: index, NamespaceToLessons: n2l}
}

// addDependent appends dep to forest[entityID][rawKey] unless an entry for
// the same (dependent entity, metric name, level) is already present.
func (c *DepsCache) addDependent(entityID, rawKey string, dep Dependent) {
	byKey, ok := c.forest[entityID]
	if !ok {
		byKey = make(map[string][]Dependent)
		c.forest[entityID] = byKey
	}
	for _, d := range byKey[rawKey] {
		if d.DependentEntityID == dep.DependentEntityID &&
			d.Metric.Name == dep.Metric.Name &&
			d.Metric.Level == dep.Metric.Level {
			return
		}
	}
	byKey[rawKey] = append(byKey[rawKey], dep)
}

// remove prunes every computation-set entry pointing at (level, entityID, name).
// Callers must hold the write lock.
func (c *DepsCache) remove(level Level, entityID, name string) {
	for owner, byKey := range c.forest {
		for rawKey, deps := range byKey {
			kept := deps[:0]
			for _, dep := range deps {
				if dep.DependentEntityID == entityID && dep.Metric.Name == name && dep.Metric.Level == level {
					continue
				}
				kept = append(kept, dep)
			}
			if len(kept) == 0 {
				delete(byKey, rawKey)
			} else {
				byKey[rawKey] = kept
			}
		}
		if len(byKey) == 0 {
			delete(c.forest, owner)
		}
	}
}
