package statistics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/attendance/core/classroom"
	"github.com/smartclass/attendance/core/course"
	"github.com/smartclass/attendance/core/session"
	"github.com/smartclass/attendance/core/statistics"
	"github.com/smartclass/attendance/core/student"
	"github.com/smartclass/attendance/core/user"
	dummydb "github.com/smartclass/attendance/storage/dummy"
)

func seed(t *testing.T) *statistics.Service {
	t.Helper()
	ctx := context.Background()

	db, err := dummydb.Open()
	require.NoError(t, err)

	usrRepo := dummydb.NewUserRepository(db)
	for _, usr := range []user.User{
		{Name: "Alice", Email: "alice@test.cd", Role: user.RoleTeacher, TeacherID: "T1", IsActive: true},
		{Name: "Bob", Email: "bob@test.cd", Role: user.RoleTeacher, TeacherID: "T2", IsActive: true},
		{Name: "Zed", Email: "zed@test.cd", Role: user.RoleTeacher, TeacherID: "T3", IsActive: false},
		{Name: "Root", Email: "root@test.cd", Role: user.RoleAdmin, IsActive: true},
	} {
		_, err = usrRepo.CreateUser(ctx, usr)
		require.NoError(t, err)
	}

	stRepo := dummydb.NewStudentRepository(db)
	for _, sid := range []string{"S1", "S2", "S3"} {
		_, err = stRepo.CreateStudent(ctx, student.Student{StudentID: sid, Name: "Student " + sid, Batch: "2026"})
		require.NoError(t, err)
	}

	clsRepo := dummydb.NewClassroomRepository(db)
	_, err = clsRepo.CreateClassroom(ctx, classroom.Classroom{ClassroomID: "room-101", Name: "Room 101"})
	require.NoError(t, err)

	crsRepo := dummydb.NewCourseRepository(db)
	_, err = crsRepo.CreateCourse(ctx, course.Course{Code: "CS101", Title: "Databases", TeacherID: "T1"})
	require.NoError(t, err)
	_, err = crsRepo.CreateCourse(ctx, course.Course{Code: "CS201", Title: "Networks", TeacherID: "T2"})
	require.NoError(t, err)

	now := time.Now().UTC()
	sessRepo := dummydb.NewSessionRepository(db)
	sessions := []session.Session{
		{
			ID: "session_aaaaaaaaaaaa", CourseID: "c1", ClassroomID: "room-101", StartedBy: "T1",
			StartedAt: now, Status: session.StatusCompleted,
			EnrolledStudents: []string{"S1", "S2"},
			FinalSummary:     &session.Reconciliation{Present: []string{"S1"}, Absent: []string{"S2"}, TotalEnrolled: 2},
		},
		{
			ID: "session_bbbbbbbbbbbb", CourseID: "c1", ClassroomID: "room-101", StartedBy: "T1",
			StartedAt: now.Add(-30 * 24 * time.Hour), Status: session.StatusCompleted,
			EnrolledStudents: []string{"S1", "S2"},
			FinalSummary:     &session.Reconciliation{Present: []string{"S1", "S2"}, Absent: []string{}, TotalEnrolled: 2},
		},
		{
			ID: "session_cccccccccccc", CourseID: "c2", ClassroomID: "room-101", StartedBy: "T2",
			StartedAt: now, Status: session.StatusActive,
			EnrolledStudents: []string{"S3"},
		},
	}
	for _, sess := range sessions {
		require.NoError(t, sessRepo.CreateSession(ctx, sess))
	}

	return statistics.NewService(dummydb.NewStatisticsStore(db))
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()
	svc := seed(t)

	admin := user.Operator{ID: "u1", Role: user.RoleAdmin}
	db, err := svc.Dashboard(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, db.TotalStudents)
	assert.Equal(t, 2, db.TotalTeachers) // inactive teachers not counted
	assert.Equal(t, 2, db.TotalCourses)
	assert.Equal(t, 1, db.TotalClassrooms)
	assert.Equal(t, 2, db.SessionsToday)

	// teachers only see their own courses and sessions
	teacher := user.Operator{ID: "u2", Role: user.RoleTeacher, TeacherID: "T1"}
	db, err = svc.Dashboard(ctx, teacher)
	require.NoError(t, err)
	assert.Equal(t, 1, db.TotalCourses)
	assert.Equal(t, 1, db.SessionsToday)
}

func TestService_Classroom(t *testing.T) {
	ctx := context.Background()
	svc := seed(t)

	stats, err := svc.Classroom(ctx, "room-101")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSessions)
	assert.True(t, stats.ActiveSession)

	stats, err = svc.Classroom(ctx, "room-202")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSessions)
	assert.False(t, stats.ActiveSession)
}

func TestService_Student(t *testing.T) {
	ctx := context.Background()
	svc := seed(t)

	stats, err := svc.Student(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 2, stats.Attended)
	assert.Equal(t, 1.0, stats.AttendanceRate)

	stats, err = svc.Student(ctx, "S2")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.Attended)
	assert.Equal(t, 0.5, stats.AttendanceRate)

	// S3's only session is still active; no rate yet
	stats, err = svc.Student(ctx, "S3")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSessions)
	assert.Equal(t, 0.0, stats.AttendanceRate)
}
