package course_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/command"
	"github.com/smartclass/attendance/core/course"
	"github.com/smartclass/attendance/core/student"
	dummydb "github.com/smartclass/attendance/storage/dummy"
)

type fakeChannel struct {
	sync.Mutex
	accept    bool
	published []publishedCmd
}

type publishedCmd struct {
	classroomID string
	kind        string
	params      command.Params
}

func (ch *fakeChannel) Publish(classroomID, kind string, params command.Params) bool {
	ch.Lock()
	defer ch.Unlock()
	ch.published = append(ch.published, publishedCmd{classroomID, kind, params})
	return ch.accept
}

type fixture struct {
	svc     *course.Service
	channel *fakeChannel
	crs     course.Course
}

func newFixture(t *testing.T, studentIDs ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := dummydb.Open()
	require.NoError(t, err)
	crsRepo := dummydb.NewCourseRepository(db)
	stuRepo := dummydb.NewStudentRepository(db)

	for _, sid := range studentIDs {
		_, err = stuRepo.CreateStudent(ctx, student.Student{StudentID: sid, Name: "Student " + sid, Batch: "2026"})
		require.NoError(t, err)
	}

	channel := &fakeChannel{accept: true}
	logger := core.NewStdLogger(log.New(io.Discard, "", 0))
	svc := course.NewService(crsRepo, student.NewService(stuRepo), channel, logger)

	crs, err := svc.Create(ctx, course.NewCourse{Code: "CS101", Title: "Algorithms", Year: 2, TeacherID: "T1"})
	require.NoError(t, err)
	crs, err = svc.AssignClassroom(ctx, crs.ID, "room-101")
	require.NoError(t, err)

	return &fixture{svc: svc, channel: channel, crs: crs}
}

func TestService_Enroll(t *testing.T) {
	f := newFixture(t, "S1", "S2")
	ctx := context.Background()

	enr, err := f.svc.Enroll(ctx, course.NewEnrollment{CourseID: f.crs.ID, StudentID: "S1"})
	require.NoError(t, err)
	assert.Equal(t, f.crs.ID, enr.CourseID)
	assert.Equal(t, "Student S1", enr.StudentName)
	assert.Equal(t, "Algorithms", enr.CourseTitle)

	// the assigned classroom is told to refresh its embeddings
	f.channel.Lock()
	require.Len(t, f.channel.published, 1)
	cmd := f.channel.published[0]
	f.channel.Unlock()
	assert.Equal(t, "room-101", cmd.classroomID)
	assert.Equal(t, command.SyncEmbeddings, cmd.kind)
	assert.Equal(t, []string{"S1"}, cmd.params["updated_students"])

	// re-enrolling is a conflict
	_, err = f.svc.Enroll(ctx, course.NewEnrollment{CourseID: f.crs.ID, StudentID: "S1"})
	assert.ErrorIs(t, err, course.ErrAlreadyEnrolled)

	// unknown student
	_, err = f.svc.Enroll(ctx, course.NewEnrollment{CourseID: f.crs.ID, StudentID: "S9"})
	assert.ErrorIs(t, err, student.ErrNotFound)

	// unknown course
	_, err = f.svc.Enroll(ctx, course.NewEnrollment{CourseID: "deadbeefdeadbeefdeadbeef", StudentID: "S2"})
	assert.ErrorIs(t, err, course.ErrNotFound)
}

func TestService_Enroll_publishFailureStillEnrolls(t *testing.T) {
	f := newFixture(t, "S1")
	f.channel.accept = false

	_, err := f.svc.Enroll(context.Background(), course.NewEnrollment{CourseID: f.crs.ID, StudentID: "S1"})
	require.NoError(t, err)

	roster, err := f.svc.ResolveRoster(context.Background(), f.crs.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, roster)
}

func TestService_BulkEnroll(t *testing.T) {
	f := newFixture(t, "S1", "S2", "S3")
	ctx := context.Background()

	_, err := f.svc.Enroll(ctx, course.NewEnrollment{CourseID: f.crs.ID, StudentID: "S2"})
	require.NoError(t, err)

	// already-enrolled S2 is skipped, not an error
	enrolled, err := f.svc.BulkEnroll(ctx, course.BulkEnrollment{CourseID: f.crs.ID, StudentIDs: []string{"S1", "S2", "S3"}})
	require.NoError(t, err)
	require.Len(t, enrolled, 2)

	f.channel.Lock()
	last := f.channel.published[len(f.channel.published)-1]
	f.channel.Unlock()
	assert.Equal(t, command.SyncEmbeddings, last.kind)
	assert.Equal(t, []string{"S1", "S3"}, last.params["updated_students"])

	roster, err := f.svc.ResolveRoster(ctx, f.crs.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S1", "S2", "S3"}, roster)
}

func TestService_ResolveRoster_empty(t *testing.T) {
	f := newFixture(t)

	roster, err := f.svc.ResolveRoster(context.Background(), f.crs.ID)
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestService_AssignRemoveClassroom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	crs, err := f.svc.AssignClassroom(ctx, "CS101", "room-102")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"room-101", "room-102"}, crs.ClassroomIDs)
	assert.True(t, crs.HasClassroom("room-102"))

	// assigning twice is idempotent
	crs, err = f.svc.AssignClassroom(ctx, "CS101", "room-102")
	require.NoError(t, err)
	assert.Len(t, crs.ClassroomIDs, 2)

	crs, err = f.svc.RemoveClassroom(ctx, "CS101", "room-101")
	require.NoError(t, err)
	assert.Equal(t, []string{"room-102"}, crs.ClassroomIDs)
	assert.False(t, crs.HasClassroom("room-101"))
}

func TestService_Get_byRef(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	byID, err := f.svc.Get(ctx, f.crs.ID)
	require.NoError(t, err)
	byCode, err := f.svc.Get(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, byCode.ID)
}
