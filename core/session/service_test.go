package session_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/classroom"
	"github.com/smartclass/attendance/core/command"
	"github.com/smartclass/attendance/core/course"
	"github.com/smartclass/attendance/core/session"
	"github.com/smartclass/attendance/core/user"
	dummydb "github.com/smartclass/attendance/storage/dummy"
)

// fakeChannel records published commands; Publish returns `accept`.
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

func (ch *fakeChannel) last() (publishedCmd, bool) {
	ch.Lock()
	defer ch.Unlock()
	if len(ch.published) == 0 {
		return publishedCmd{}, false
	}
	return ch.published[len(ch.published)-1], true
}

type fixture struct {
	svc     *session.Service
	repo    session.Repository
	crsRepo course.Repository
	channel *fakeChannel
	crs     course.Course
	cls     classroom.Classroom
	teacher user.Operator
	admin   user.Operator
}

func newFixture(t *testing.T, enrolled ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := dummydb.Open()
	require.NoError(t, err)

	channel := &fakeChannel{accept: true}
	logger := core.NewStdLogger(log.New(io.Discard, "", 0))

	clsRepo := dummydb.NewClassroomRepository(db)
	cls, err := clsRepo.CreateClassroom(ctx, classroom.Classroom{ClassroomID: "room-101", Name: "Room 101"})
	require.NoError(t, err)

	crsRepo := dummydb.NewCourseRepository(db)
	crs, err := crsRepo.CreateCourse(ctx, course.Course{
		Code: "CS101", Title: "Databases", Year: 2, TeacherID: "T1", TeacherName: "Alice Teacher",
	})
	require.NoError(t, err)
	crs, err = crsRepo.AssignClassroom(ctx, crs.ID, cls.ClassroomID)
	require.NoError(t, err)
	for _, sid := range enrolled {
		_, err = crsRepo.CreateEnrollment(ctx, course.Enrollment{CourseID: crs.ID, StudentID: sid})
		require.NoError(t, err)
	}

	crsSvc := course.NewService(crsRepo, nil, channel, logger)
	clsSvc := classroom.NewService(clsRepo, channel)
	repo := dummydb.NewSessionRepository(db)
	svc := session.NewService(repo, crsSvc, crsSvc, clsSvc, channel, nil, logger)

	return &fixture{
		svc:     svc,
		repo:    repo,
		crsRepo: crsRepo,
		channel: channel,
		crs:     crs,
		cls:     cls,
		teacher: user.Operator{ID: "u1", Name: "Alice Teacher", Email: "alice@test.cd", Role: user.RoleTeacher, TeacherID: "T1"},
		admin:   user.Operator{ID: "u2", Name: "Admin", Email: "admin@test.cd", Role: user.RoleAdmin},
	}
}

func (f *fixture) open(t *testing.T) session.Session {
	t.Helper()
	sess, err := f.svc.Open(context.Background(), f.teacher, session.NewSession{
		CourseID:    f.crs.ID,
		ClassroomID: f.cls.ClassroomID,
	})
	require.NoError(t, err)
	return sess
}

func upload(sessionID string, studentIDs ...string) session.Upload {
	faces := make([]session.RecognizedFace, len(studentIDs))
	for i, sid := range studentIDs {
		faces[i] = session.RecognizedFace{StudentID: sid, StudentName: "Student " + sid, Confidence: 0.9}
	}
	return session.Upload{
		SessionID:       sessionID,
		ClassroomID:     "room-101",
		DeviceID:        "dev-1",
		RecognizedFaces: faces,
	}
}

func TestService_Open(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1", "S2")

	sess := f.open(t)

	assert.Equal(t, session.StatusActive, sess.Status)
	assert.Equal(t, f.crs.ID, sess.CourseID)
	assert.Equal(t, "Databases", sess.CourseTitle)
	assert.Equal(t, "T1", sess.StartedBy)
	assert.ElementsMatch(t, []string{"S1", "S2"}, sess.EnrolledStudents)
	assert.Empty(t, sess.RecognizedStudents)
	assert.True(t, sess.DeviceNotified)
	assert.Contains(t, sess.Name, "Databases - ") // default name

	// everyone starts absent until recognized
	assert.Equal(t, 0, sess.PresentCount)
	assert.Equal(t, 2, sess.AbsentCount)
	got, err := f.repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.PresentCount)
	assert.Equal(t, 2, got.AbsentCount)

	cmd, ok := f.channel.last()
	require.True(t, ok)
	assert.Equal(t, command.StartSession, cmd.kind)
	assert.Equal(t, "room-101", cmd.classroomID)
	assert.Equal(t, sess.ID, cmd.params["session_id"])

	// second open on the same (course, classroom) slot
	_, err = f.svc.Open(ctx, f.teacher, session.NewSession{CourseID: f.crs.ID, ClassroomID: f.cls.ClassroomID})
	assert.Equal(t, session.ErrActiveExists, err)
	assert.True(t, core.IsConflict(err))
}

func TestService_Open_preconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1")

	tests := []struct {
		name    string
		op      user.Operator
		ns      session.NewSession
		wantErr error
		check   func(error) bool
	}{
		{
			name:    "students cannot open",
			op:      user.Operator{ID: "u3", Role: user.RoleStudent},
			ns:      session.NewSession{CourseID: f.crs.ID, ClassroomID: f.cls.ClassroomID},
			wantErr: session.ErrTeachersOnly,
			check:   core.IsPermissionDenied,
		},
		{
			name:    "unknown course",
			op:      f.teacher,
			ns:      session.NewSession{CourseID: "nope", ClassroomID: f.cls.ClassroomID},
			wantErr: course.ErrNotFound,
			check:   core.IsNotFound,
		},
		{
			name:    "not the course owner",
			op:      user.Operator{ID: "u4", Role: user.RoleTeacher, TeacherID: "T2"},
			ns:      session.NewSession{CourseID: f.crs.ID, ClassroomID: f.cls.ClassroomID},
			wantErr: session.ErrNotCourseOwner,
			check:   core.IsPermissionDenied,
		},
		{
			name:    "classroom not assigned to course",
			op:      f.teacher,
			ns:      session.NewSession{CourseID: f.crs.ID, ClassroomID: "room-202"},
			wantErr: session.ErrClassroomNotAssigned,
			check:   core.IsInvalidAssignment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Open(ctx, tt.op, tt.ns)
			assert.Equal(t, tt.wantErr, err)
			assert.True(t, tt.check(err))
		})
	}

	// assigned but unregistered classroom
	crsRepo := f.crsRepo
	_, err := crsRepo.AssignClassroom(ctx, f.crs.ID, "ghost-room")
	require.NoError(t, err)
	_, err = f.svc.Open(ctx, f.teacher, session.NewSession{CourseID: f.crs.ID, ClassroomID: "ghost-room"})
	assert.Equal(t, classroom.ErrNotFound, err)

	// ownership outranks assignment when both fail
	_, err = f.svc.Open(ctx, user.Operator{ID: "u4", Role: user.RoleTeacher, TeacherID: "T2"},
		session.NewSession{CourseID: f.crs.ID, ClassroomID: "room-202"})
	assert.Equal(t, session.ErrNotCourseOwner, err)

	// admins may open any course
	sess, err := f.svc.Open(ctx, f.admin, session.NewSession{CourseID: f.crs.ID, ClassroomID: f.cls.ClassroomID})
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, sess.Status)
}

func TestService_Open_concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1")

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Open(ctx, f.teacher, session.NewSession{
				CourseID:    f.crs.ID,
				ClassroomID: f.cls.ClassroomID,
			})
		}(i)
	}
	wg.Wait()

	var opened, conflicts int
	for _, err := range errs {
		switch err {
		case nil:
			opened++
		case session.ErrActiveExists:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, opened)
	assert.Equal(t, n-1, conflicts)
}

func TestService_Open_publishFailureStillOpens(t *testing.T) {
	f := newFixture(t, "S1")
	f.channel.accept = false

	sess := f.open(t)
	assert.False(t, sess.DeviceNotified)

	// the session is durably open despite the failed publish
	got, err := f.repo.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, got.Status)
}

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1", "S2", "S3")
	sess := f.open(t)

	res, err := f.svc.Ingest(ctx, upload(sess.ID, "S1", "S2"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecognizedCount)
	assert.Equal(t, 2, res.TotalRecognized)
	assert.False(t, res.AuditOnly)

	// duplicate recognitions accumulate records but not set members
	res, err = f.svc.Ingest(ctx, upload(sess.ID, "S2", "X9"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRecognized) // S1, S2, X9

	got, err := f.repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalCaptures)
	assert.ElementsMatch(t, []string{"S1", "S2", "X9"}, got.RecognizedStudents)

	records, err := f.repo.RecordsBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, records, 4) // every report is audited, duplicates included

	// faces without a student ID are counted as unknown, not recorded
	up := upload(sess.ID)
	up.RecognizedFaces = []session.RecognizedFace{{StudentName: "???", Confidence: 0.4}}
	up.UnknownFacesCount = 1
	res, err = f.svc.Ingest(ctx, up)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RecognizedCount)
	assert.Equal(t, 1, res.UnknownCount)

	_, err = f.svc.Ingest(ctx, upload("session_missing", "S1"))
	assert.True(t, core.IsNotFound(err))
}

func TestService_Ingest_concurrent(t *testing.T) {
	ctx := context.Background()
	ids := []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8"}
	f := newFixture(t, ids...)
	sess := f.open(t)

	var wg sync.WaitGroup
	wg.Add(len(ids))
	for _, sid := range ids {
		go func(sid string) {
			defer wg.Done()
			if _, err := f.svc.Ingest(ctx, upload(sess.ID, sid)); err != nil {
				t.Errorf("Ingest(%s) failed: %v", sid, err)
			}
		}(sid)
	}
	wg.Wait()

	got, err := f.repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, len(ids), got.TotalCaptures)
	assert.ElementsMatch(t, ids, got.RecognizedStudents)
}

func TestService_Close(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1", "S2", "S3")
	sess := f.open(t)

	_, err := f.svc.Ingest(ctx, upload(sess.ID, "S1", "S3", "X9"))
	require.NoError(t, err)

	summary, err := f.svc.Close(ctx, f.teacher, sess.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S3"}, summary.Present)
	assert.Equal(t, []string{"S2"}, summary.Absent)
	assert.Equal(t, 2, summary.PresentCount)
	assert.Equal(t, 1, summary.AbsentCount)
	assert.Equal(t, 3, summary.TotalRecognized) // X9 stays in the raw set
	assert.Equal(t, 1, summary.TotalCaptures)
	assert.True(t, summary.DeviceNotified)

	// the split is exhaustive over the snapshot
	assert.Equal(t, len(sess.EnrolledStudents), summary.PresentCount+summary.AbsentCount)

	cmd, ok := f.channel.last()
	require.True(t, ok)
	assert.Equal(t, command.EndSession, cmd.kind)

	got, err := f.repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, got.Status)
	require.NotNil(t, got.FinalSummary)
	assert.Equal(t, 3, got.FinalSummary.TotalEnrolled)
	require.NotNil(t, got.EndedAt)
}

func TestService_Close_permissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1")
	sess := f.open(t)

	otherTeacher := user.Operator{ID: "u4", Role: user.RoleTeacher, TeacherID: "T2"}
	_, err := f.svc.Close(ctx, otherTeacher, sess.ID)
	assert.Equal(t, session.ErrNotInitiator, err)

	// admins may close anyone's session
	_, err = f.svc.Close(ctx, f.admin, sess.ID)
	assert.NoError(t, err)
}

func TestService_Close_alreadyCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1", "S2")
	sess := f.open(t)

	_, err := f.svc.Ingest(ctx, upload(sess.ID, "S1"))
	require.NoError(t, err)

	first, err := f.svc.Close(ctx, f.teacher, sess.ID)
	require.NoError(t, err)

	_, err = f.svc.Close(ctx, f.teacher, sess.ID)
	assert.Equal(t, session.ErrNotActive, err)
	assert.True(t, core.IsInvalidState(err))

	// state is checked before initiator, so a non-initiator sees the
	// same invalid-state error on a completed session
	otherTeacher := user.Operator{ID: "u4", Role: user.RoleTeacher, TeacherID: "T2"}
	_, err = f.svc.Close(ctx, otherTeacher, sess.ID)
	assert.Equal(t, session.ErrNotActive, err)

	// summary unchanged by the failed second close
	got, err := f.repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FinalSummary)
	assert.Equal(t, first.Present, got.FinalSummary.Present)
	assert.Equal(t, first.Absent, got.FinalSummary.Absent)
}

func TestService_Close_zeroUploads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1", "S2")
	sess := f.open(t)

	summary, err := f.svc.Close(ctx, f.teacher, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Present)
	assert.Equal(t, []string{"S1", "S2"}, summary.Absent)
	assert.Equal(t, 0, summary.TotalCaptures)
}

func TestService_Ingest_afterClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1", "S2")
	sess := f.open(t)

	_, err := f.svc.Ingest(ctx, upload(sess.ID, "S1"))
	require.NoError(t, err)
	_, err = f.svc.Close(ctx, f.teacher, sess.ID)
	require.NoError(t, err)

	// a straggler batch arrives after close
	res, err := f.svc.Ingest(ctx, upload(sess.ID, "S2"))
	require.NoError(t, err)
	assert.True(t, res.AuditOnly)
	assert.Equal(t, 1, res.TotalRecognized) // frozen

	got, err := f.repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, got.RecognizedStudents)
	assert.Equal(t, 1, got.TotalCaptures)
	require.NotNil(t, got.FinalSummary)
	assert.Equal(t, []string{"S2"}, got.FinalSummary.Absent)

	// but the audit trail kept the record
	records, err := f.repo.RecordsBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestService_Filter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1")
	sess := f.open(t)
	_, err := f.svc.Close(ctx, f.teacher, sess.ID)
	require.NoError(t, err)

	sess2 := f.open(t)

	active, err := f.svc.Filter(ctx, session.QueryFilter{Status: session.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, sess2.ID, active[0].ID)

	all, err := f.svc.Filter(ctx, session.QueryFilter{TeacherID: "T1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.svc.Filter(ctx, session.QueryFilter{TeacherID: "T2"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReconcile(t *testing.T) {
	present, absent := session.Reconcile([]string{"S3", "S1", "S2"}, []string{"S2", "X9", "S3"})
	assert.Equal(t, []string{"S2", "S3"}, present)
	assert.Equal(t, []string{"S1"}, absent)

	present, absent = session.Reconcile(nil, []string{"S1"})
	assert.Empty(t, present)
	assert.Empty(t, absent)
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "S1")
	sess := f.open(t)

	ts := time.Now().UTC().Format(time.RFC3339)
	up := upload(sess.ID, "S1")
	up.Timestamp = ts
	_, err := f.svc.Ingest(ctx, up)
	require.NoError(t, err)

	got, records, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	require.Len(t, records, 1)
	assert.Equal(t, "S1", records[0].StudentID)

	_, _, err = f.svc.Get(ctx, "session_missing")
	assert.True(t, core.IsNotFound(err))
}
