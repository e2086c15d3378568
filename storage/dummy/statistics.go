package dummydb

import (
	"context"
	"time"

	"github.com/smartclass/attendance/core/session"
	"github.com/smartclass/attendance/core/statistics"
	"github.com/smartclass/attendance/core/user"
)

type statisticsStore struct {
	db *DB
}

var _ statistics.Store = (*statisticsStore)(nil) // interface compliance check

func NewStatisticsStore(db *DB) statistics.Store {
	return &statisticsStore{db: db}
}

func (s *statisticsStore) CountStudents(_ context.Context) (int, error) {
	s.db.student.RLock()
	defer s.db.student.RUnlock()
	return len(s.db.student.table), nil
}

func (s *statisticsStore) CountTeachers(_ context.Context) (int, error) {
	s.db.user.RLock()
	defer s.db.user.RUnlock()

	var n int
	for _, usr := range s.db.user.table {
		if usr.Role == user.RoleTeacher && usr.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *statisticsStore) CountCourses(_ context.Context, teacherID string) (int, error) {
	s.db.course.RLock()
	defer s.db.course.RUnlock()

	var n int
	for _, crs := range s.db.course.table {
		if teacherID == "" || crs.TeacherID == teacherID {
			n++
		}
	}
	return n, nil
}

func (s *statisticsStore) CountClassrooms(_ context.Context) (int, error) {
	s.db.classroom.RLock()
	defer s.db.classroom.RUnlock()
	return len(s.db.classroom.table), nil
}

func (s *statisticsStore) CountSessions(_ context.Context, teacherID string, since time.Time) (int, error) {
	s.db.session.RLock()
	defer s.db.session.RUnlock()

	var n int
	for _, sess := range s.db.session.table {
		if sess.StartedAt.Before(since) {
			continue
		}
		if teacherID != "" && sess.StartedBy != teacherID {
			continue
		}
		n++
	}
	return n, nil
}

func (s *statisticsStore) CountClassroomSessions(_ context.Context, classroomID string) (int, error) {
	s.db.session.RLock()
	defer s.db.session.RUnlock()

	var n int
	for _, sess := range s.db.session.table {
		if sess.ClassroomID == classroomID {
			n++
		}
	}
	return n, nil
}

func (s *statisticsStore) HasActiveSession(_ context.Context, classroomID string) (bool, error) {
	s.db.session.RLock()
	defer s.db.session.RUnlock()

	for _, sess := range s.db.session.table {
		if sess.ClassroomID == classroomID && sess.Status == session.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *statisticsStore) StudentAttendance(_ context.Context, studentID string) (total, attended int, err error) {
	s.db.session.RLock()
	defer s.db.session.RUnlock()

	for _, sess := range s.db.session.table {
		if sess.Status != session.StatusCompleted || !contains(sess.EnrolledStudents, studentID) {
			continue
		}
		total++
		if sess.FinalSummary != nil && contains(sess.FinalSummary.Present, studentID) {
			attended++
		}
	}
	return total, attended, nil
}
