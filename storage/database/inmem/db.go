package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/school"
	"github.com/darasahq/darasa/core/user"
)

type (
	DB struct {
		user   *userTable
		school *schoolTables
		record *recordTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTables struct {
		sync.RWMutex
		namespaces map[string]*school.Namespace
		lessons    map[string]*school.Lesson
	}

	recordTable struct {
		sync.RWMutex
		table []assessment.Record
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		school: &schoolTables{
			namespaces: make(map[string]*school.Namespace),
			lessons:    make(map[string]*school.Lesson),
		},
		record: &recordTable{table: make([]assessment.Record, 0)},
	}
	return db, nil
}
