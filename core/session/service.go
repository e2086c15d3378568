package session

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/classroom"
	"github.com/smartclass/attendance/core/command"
	"github.com/smartclass/attendance/core/course"
	"github.com/smartclass/attendance/core/user"
)

var (
	ErrNotFound     = core.NotFoundError("session not found")
	ErrNotActive    = core.InvalidStateError("session is not active")
	ErrActiveExists = core.ConflictError("there is already an active session for this course in this classroom")

	ErrTeachersOnly   = core.PermissionDeniedError("only teachers can manage attendance sessions")
	ErrNotCourseOwner = core.PermissionDeniedError("you do not teach this course")
	ErrNotInitiator   = core.PermissionDeniedError("only the session initiator can end this session")

	ErrClassroomNotAssigned = core.InvalidAssignmentError("classroom is not assigned to this course")
)

type (
	// Closure carries the close-time writes applied in one conditional
	// update; the repository must reject it when the session is no longer
	// active.
	Closure struct {
		EndedAt      time.Time
		PresentCount int
		AbsentCount  int
		Summary      Reconciliation
	}

	Repository interface {
		// CreateSession inserts an active session; it returns
		// ErrActiveExists when an active session already occupies the
		// (course, classroom) slot. Uniqueness is enforced at insert
		// time, not by a prior read.
		CreateSession(ctx context.Context, sess Session) error
		GetSession(ctx context.Context, id string) (Session, error)
		FilterSessions(ctx context.Context, filter QueryFilter) ([]Session, error)
		// CloseSession applies cl iff the session is still active;
		// returns ErrNotActive otherwise.
		CloseSession(ctx context.Context, id string, cl Closure) (Session, error)
		// ApplyUpload unions studentIDs into the recognized set and
		// increments the capture counter in one atomic update, iff the
		// session is still active; returns ErrNotActive otherwise.
		ApplyUpload(ctx context.Context, id string, studentIDs []string) (Session, error)
		AppendRecords(ctx context.Context, records []Record) error
		RecordsBySession(ctx context.Context, sessionID string) ([]Record, error)
	}

	// RosterResolver yields the distinct student IDs enrolled in a course;
	// the session snapshots the result at open time.
	RosterResolver interface {
		ResolveRoster(ctx context.Context, courseID string) ([]string, error)
	}

	CourseGetter interface {
		GetCourse(ctx context.Context, ref string) (course.Course, error)
	}

	ClassroomGetter interface {
		GetClassroom(ctx context.Context, id string) (classroom.Classroom, error)
	}

	Service struct {
		repo       Repository
		roster     RosterResolver
		courses    CourseGetter
		classrooms ClassroomGetter
		channel    command.Channel
		mail       core.EmailService
		log        core.Logger
	}
)

func NewService(
	repo Repository,
	roster RosterResolver,
	courses CourseGetter,
	classrooms ClassroomGetter,
	channel command.Channel,
	mailSvc core.EmailService,
	log core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		roster:     roster,
		courses:    courses,
		classrooms: classrooms,
		channel:    channel,
		mail:       mailSvc,
		log:        log,
	}
}

// Open starts a new attendance session for op. The roster snapshot is taken
// here and frozen; the device is told to start capturing only after the
// session is durably recorded.
func (svc *Service) Open(ctx context.Context, op user.Operator, ns NewSession) (Session, error) {
	if !op.IsTeacher() && !op.IsAdmin() {
		return Session{}, ErrTeachersOnly
	}

	crs, err := svc.courses.GetCourse(ctx, ns.CourseID)
	if err != nil {
		return Session{}, err
	}
	if !op.IsAdmin() && crs.TeacherID != op.TeacherID {
		return Session{}, ErrNotCourseOwner
	}
	if !crs.HasClassroom(ns.ClassroomID) {
		return Session{}, ErrClassroomNotAssigned
	}
	if _, err = svc.classrooms.GetClassroom(ctx, ns.ClassroomID); err != nil {
		return Session{}, err
	}

	enrolled, err := svc.roster.ResolveRoster(ctx, crs.ID)
	if err != nil {
		return Session{}, err
	}

	now := time.Now().UTC()
	name := ns.Name
	if name == "" {
		name = crs.Title + " - " + now.Format("2006-01-02 15:04")
	}
	startedBy := op.TeacherID
	if startedBy == "" {
		startedBy = op.ID
	}
	sess := Session{
		ID:                 NewSessionID(),
		CourseID:           crs.ID,
		CourseTitle:        crs.Title,
		ClassroomID:        ns.ClassroomID,
		Name:               name,
		StartedBy:          startedBy,
		TeacherName:        op.Name,
		StartedAt:          now,
		Status:             StatusActive,
		RecognizedStudents: []string{},
		EnrolledStudents:   enrolled,
		AbsentCount:        len(enrolled),
	}
	if err = svc.repo.CreateSession(ctx, sess); err != nil {
		return Session{}, err
	}

	sess.DeviceNotified = svc.channel.Publish(sess.ClassroomID, command.StartSession, command.Params{
		"session_id":   sess.ID,
		"course_id":    sess.CourseID,
		"session_name": sess.Name,
	})
	if !sess.DeviceNotified {
		svc.log.Warn(fmt.Sprintf("session %s opened but start_session could not be published to %s", sess.ID, sess.ClassroomID))
	}
	return sess, nil
}

// Close ends an active session, computing the present/absent reconciliation
// from the frozen roster snapshot and the accumulated recognized set.
func (svc *Service) Close(ctx context.Context, op user.Operator, sessionID string) (Summary, error) {
	sess, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	if !sess.IsActive() {
		return Summary{}, ErrNotActive
	}
	if !op.IsAdmin() && sess.StartedBy != op.TeacherID {
		return Summary{}, ErrNotInitiator
	}

	present, absent := Reconcile(sess.EnrolledStudents, sess.RecognizedStudents)
	cl := Closure{
		EndedAt:      time.Now().UTC(),
		PresentCount: len(present),
		AbsentCount:  len(absent),
		Summary: Reconciliation{
			Present:       present,
			Absent:        absent,
			TotalEnrolled: len(sess.EnrolledStudents),
		},
	}
	closed, err := svc.repo.CloseSession(ctx, sessionID, cl)
	if err != nil {
		return Summary{}, err
	}

	notified := svc.channel.Publish(closed.ClassroomID, command.EndSession, command.Params{
		"session_id": closed.ID,
	})
	if !notified {
		svc.log.Warn(fmt.Sprintf("session %s closed but end_session could not be published to %s", closed.ID, closed.ClassroomID))
	}

	summary := Summary{
		SessionID:       closed.ID,
		EndedAt:         *closed.EndedAt,
		TotalCaptures:   closed.TotalCaptures,
		PresentCount:    closed.PresentCount,
		AbsentCount:     closed.AbsentCount,
		TotalRecognized: len(closed.RecognizedStudents),
		Present:         present,
		Absent:          absent,
		DeviceNotified:  notified,
	}
	svc.emailSummary(op, closed, summary)
	return summary, nil
}

// Ingest processes one device upload batch. Audit records are always
// appended, even for uploads that arrive after close; only active sessions
// accumulate into the recognized set and capture counter.
func (svc *Service) Ingest(ctx context.Context, up Upload) (IngestResult, error) {
	sess, err := svc.repo.GetSession(ctx, up.SessionID)
	if err != nil {
		return IngestResult{}, err
	}

	now := time.Now().UTC()
	capturedAt := up.CapturedAt(now)
	var records []Record
	var studentIDs []string
	for _, face := range up.RecognizedFaces {
		if face.StudentID == "" {
			continue
		}
		records = append(records, Record{
			SessionID:   sess.ID,
			ClassroomID: up.ClassroomID,
			DeviceID:    up.DeviceID,
			StudentID:   face.StudentID,
			StudentName: face.StudentName,
			Timestamp:   capturedAt,
			Confidence:  face.Confidence,
			CreatedAt:   now,
		})
		studentIDs = append(studentIDs, face.StudentID)
	}
	if len(records) > 0 {
		if err = svc.repo.AppendRecords(ctx, records); err != nil {
			return IngestResult{}, err
		}
	}

	res := IngestResult{
		SessionID:       sess.ID,
		RecognizedCount: len(studentIDs),
		UnknownCount:    up.UnknownFacesCount,
		TotalRecognized: len(sess.RecognizedStudents),
	}
	updated, err := svc.repo.ApplyUpload(ctx, sess.ID, studentIDs)
	switch {
	case err == nil:
		res.TotalRecognized = len(updated.RecognizedStudents)
	case core.IsInvalidState(err):
		// The session closed between the device's capture and this
		// upload. The audit trail keeps the records; the summary stays
		// frozen.
		res.AuditOnly = true
	default:
		return IngestResult{}, err
	}
	return res, nil
}

// Get returns a session together with its audit records.
func (svc *Service) Get(ctx context.Context, id string) (Session, []Record, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, nil, err
	}
	records, err := svc.repo.RecordsBySession(ctx, id)
	if err != nil {
		return Session{}, nil, err
	}
	return sess, records, nil
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Session, error) {
	return svc.repo.FilterSessions(ctx, filter)
}

func (svc *Service) emailSummary(op user.Operator, sess Session, summary Summary) {
	if svc.mail == nil || op.Email == "" {
		return
	}
	body := fmt.Sprintf(
		"Session %q ended at %s.\n\nPresent: %d\nAbsent: %d\nTotal enrolled: %d\nCaptures received: %d\n",
		sess.Name, summary.EndedAt.Format(time.RFC1123),
		summary.PresentCount, summary.AbsentCount,
		len(sess.EnrolledStudents), summary.TotalCaptures,
	)
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: op.Name, Address: op.Email}},
		Subject: "Attendance summary: " + sess.Name,
		BodyStr: body,
	})
}

// Reconcile splits the enrolled snapshot into present and absent by
// membership in the recognized set. Recognized IDs outside the snapshot are
// ignored; both slices come back sorted and the split is exhaustive.
func Reconcile(enrolled, recognized []string) (present, absent []string) {
	seen := make(map[string]bool, len(recognized))
	for _, id := range recognized {
		seen[id] = true
	}
	present = make([]string, 0, len(enrolled))
	absent = make([]string, 0, len(enrolled))
	for _, id := range enrolled {
		if seen[id] {
			present = append(present, id)
		} else {
			absent = append(absent, id)
		}
	}
	sort.Strings(present)
	sort.Strings(absent)
	return present, absent
}
