// Package dummydb is an in-memory implementation of the repositories, used
// in tests and local development. It reproduces the storage guarantees the
// services depend on (insert-time active-session uniqueness, atomic
// union-and-increment) under a single lock per table.
package dummydb

import (
	"fmt"
	"sync"

	"github.com/smartclass/attendance/core/classroom"
	"github.com/smartclass/attendance/core/course"
	"github.com/smartclass/attendance/core/session"
	"github.com/smartclass/attendance/core/student"
	"github.com/smartclass/attendance/core/user"
)

type (
	DB struct {
		user      *userTable
		student   *studentTable
		classroom *classroomTable
		course    *courseTable
		session   *sessionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	classroomTable struct {
		sync.RWMutex
		table map[string]*classroom.Classroom
	}

	courseTable struct {
		sync.RWMutex
		table       map[string]*course.Course
		enrollments map[string]*course.Enrollment
	}

	sessionTable struct {
		sync.RWMutex
		table   map[string]*session.Session
		records []session.Record
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:      &userTable{table: make(map[string]*user.User)},
		student:   &studentTable{table: make(map[string]*student.Student)},
		classroom: &classroomTable{table: make(map[string]*classroom.Classroom)},
		course: &courseTable{
			table:       make(map[string]*course.Course),
			enrollments: make(map[string]*course.Enrollment),
		},
		session: &sessionTable{table: make(map[string]*session.Session)},
	}
	return db, nil
}

var (
	pkMu    sync.Mutex
	pkCount int
)

// nextID stands in for a database-generated document ID.
func nextID() string {
	pkMu.Lock()
	defer pkMu.Unlock()
	pkCount++
	return fmt.Sprintf("%024x", pkCount)
}
