package statistics

import (
	"context"
	"time"

	"github.com/smartclass/attendance/core/user"
)

type (
	// Dashboard is the landing-page counter block; teachers see their own
	// courses and sessions, admins see everything.
	Dashboard struct {
		TotalStudents   int `json:"total_students"`
		TotalTeachers   int `json:"total_teachers"`
		TotalCourses    int `json:"total_courses"`
		TotalClassrooms int `json:"total_classrooms"`
		SessionsToday   int `json:"sessions_today"`
		SessionsWeek    int `json:"sessions_this_week"`
	}

	ClassroomStats struct {
		ClassroomID   string `json:"classroom_id"`
		TotalSessions int    `json:"total_sessions"`
		ActiveSession bool   `json:"active_session"`
	}

	// StudentStats is one student's attendance rate over their closed
	// sessions.
	StudentStats struct {
		StudentID      string  `json:"student_id"`
		TotalSessions  int     `json:"total_sessions"`
		Attended       int     `json:"attended"`
		AttendanceRate float64 `json:"attendance_rate"`
	}

	Store interface {
		CountStudents(ctx context.Context) (int, error)
		CountTeachers(ctx context.Context) (int, error)
		CountCourses(ctx context.Context, teacherID string) (int, error)
		CountClassrooms(ctx context.Context) (int, error)
		CountSessions(ctx context.Context, teacherID string, since time.Time) (int, error)
		CountClassroomSessions(ctx context.Context, classroomID string) (int, error)
		HasActiveSession(ctx context.Context, classroomID string) (bool, error)
		// StudentAttendance counts the closed sessions whose roster
		// snapshot includes the student, and how many marked them
		// present.
		StudentAttendance(ctx context.Context, studentID string) (total, attended int, err error)
	}

	Service struct {
		store Store
	}
)

func NewService(store Store) *Service { return &Service{store: store} }

func (svc *Service) Dashboard(ctx context.Context, op user.Operator) (Dashboard, error) {
	teacherID := ""
	if !op.IsAdmin() {
		teacherID = op.TeacherID
	}

	var db Dashboard
	var err error
	if db.TotalStudents, err = svc.store.CountStudents(ctx); err != nil {
		return Dashboard{}, err
	}
	if db.TotalTeachers, err = svc.store.CountTeachers(ctx); err != nil {
		return Dashboard{}, err
	}
	if db.TotalCourses, err = svc.store.CountCourses(ctx, teacherID); err != nil {
		return Dashboard{}, err
	}
	if db.TotalClassrooms, err = svc.store.CountClassrooms(ctx); err != nil {
		return Dashboard{}, err
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -int(dayStart.Weekday()))
	if db.SessionsToday, err = svc.store.CountSessions(ctx, teacherID, dayStart); err != nil {
		return Dashboard{}, err
	}
	if db.SessionsWeek, err = svc.store.CountSessions(ctx, teacherID, weekStart); err != nil {
		return Dashboard{}, err
	}
	return db, nil
}

func (svc *Service) Classroom(ctx context.Context, classroomID string) (ClassroomStats, error) {
	total, err := svc.store.CountClassroomSessions(ctx, classroomID)
	if err != nil {
		return ClassroomStats{}, err
	}
	active, err := svc.store.HasActiveSession(ctx, classroomID)
	if err != nil {
		return ClassroomStats{}, err
	}
	return ClassroomStats{ClassroomID: classroomID, TotalSessions: total, ActiveSession: active}, nil
}

func (svc *Service) Student(ctx context.Context, studentID string) (StudentStats, error) {
	total, attended, err := svc.store.StudentAttendance(ctx, studentID)
	if err != nil {
		return StudentStats{}, err
	}
	stats := StudentStats{StudentID: studentID, TotalSessions: total, Attended: attended}
	if total > 0 {
		stats.AttendanceRate = float64(attended) / float64(total)
	}
	return stats, nil
}
