package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartclass/attendance/core"
)

// Lifecycle states
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Session is one open-to-close attendance-capture window for one course in
// one physical classroom. At most one session may be active per
// (course, classroom) pair; the storage layer enforces this at insert time.
type Session struct {
	ID                 string     `json:"session_id" bson:"session_id"`
	CourseID           string     `json:"course_id" bson:"course_id"`
	CourseTitle        string     `json:"course_title" bson:"course_title"`
	ClassroomID        string     `json:"classroom_id" bson:"classroom_id"`
	Name               string     `json:"session_name" bson:"session_name"`
	StartedBy          string     `json:"started_by" bson:"started_by"`
	TeacherName        string     `json:"teacher_name" bson:"teacher_name"`
	StartedAt          time.Time  `json:"started_at" bson:"started_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	Status             string     `json:"status" bson:"status"`
	TotalCaptures      int        `json:"total_captures" bson:"total_captures"`
	RecognizedStudents []string   `json:"recognized_students" bson:"recognized_students"`
	// EnrolledStudents is the roster snapshot captured at open time and
	// frozen for the session's lifetime; late enrollment changes do not
	// retroactively affect an open session.
	EnrolledStudents []string        `json:"enrolled_students" bson:"enrolled_students"`
	PresentCount     int             `json:"present_count" bson:"present_count"`
	AbsentCount      int             `json:"absent_count" bson:"absent_count"`
	FinalSummary     *Reconciliation `json:"final_summary,omitempty" bson:"final_summary,omitempty"`

	// DeviceNotified reports whether the lifecycle command reached the
	// transport; never persisted. False means degraded success: the session
	// state stands but the device may not have heard about it.
	DeviceNotified bool `json:"device_notified" bson:"-"`
}

func (s Session) IsActive() bool { return s.Status == StatusActive }

// Reconciliation is the immutable present/absent outcome computed at close.
type Reconciliation struct {
	Present       []string `json:"present" bson:"present"`
	Absent        []string `json:"absent" bson:"absent"`
	TotalEnrolled int      `json:"total_enrolled" bson:"total_enrolled"`
}

// Record is one durable audit entry per device-reported recognition event;
// append-only, never updated or deleted.
type Record struct {
	SessionID   string    `json:"session_id" bson:"session_id"`
	ClassroomID string    `json:"classroom_id" bson:"classroom_id"`
	DeviceID    string    `json:"device_id" bson:"device_id"`
	StudentID   string    `json:"student_id" bson:"student_id"`
	StudentName string    `json:"student_name" bson:"student_name"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	Confidence  float64   `json:"confidence" bson:"confidence"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// NewSession contains information needed to open a Session.
type NewSession struct {
	CourseID    string `json:"course_id" validate:"required"`
	ClassroomID string `json:"classroom_id" validate:"required,alphanum_"`
	Name        string `json:"session_name"`
}

func (ns *NewSession) Validate() error {
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.ClassroomID = core.CleanString(ns.ClassroomID)
	ns.Name = core.CleanString(ns.Name)
	return core.Validate.Struct(ns)
}

// RecognizedFace is one matched face in an upload batch.
type RecognizedFace struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Confidence  float64 `json:"confidence"`
}

// Upload is one batch submission from an edge device.
type Upload struct {
	SessionID         string           `json:"session_id" validate:"required"`
	ClassroomID       string           `json:"classroom_id" validate:"required"`
	DeviceID          string           `json:"device_id" validate:"required"`
	Timestamp         string           `json:"timestamp"`
	RecognizedFaces   []RecognizedFace `json:"recognized_faces"`
	UnknownFacesCount int              `json:"unknown_faces_count" validate:"omitempty,min=0"`
}

func (u *Upload) Validate() error {
	u.SessionID = core.CleanString(u.SessionID)
	u.ClassroomID = core.CleanString(u.ClassroomID)
	u.DeviceID = core.CleanString(u.DeviceID)
	return core.Validate.Struct(u)
}

// CapturedAt parses the device-supplied batch timestamp, falling back to
// `received` when it is absent or unparsable (device clocks drift).
func (u *Upload) CapturedAt(received time.Time) time.Time {
	if u.Timestamp == "" {
		return received
	}
	ts, err := time.Parse(time.RFC3339, u.Timestamp)
	if err != nil {
		return received
	}
	return ts.UTC()
}

// IngestResult reports what one upload batch did.
type IngestResult struct {
	SessionID       string `json:"session_id"`
	RecognizedCount int    `json:"recognized_count"`
	UnknownCount    int    `json:"unknown_count"`
	TotalRecognized int    `json:"total_recognized_students"`
	// AuditOnly is set when the batch arrived after close: records were
	// written for the audit trail but the frozen recognized-set and
	// counters were left untouched.
	AuditOnly bool `json:"audit_only,omitempty"`
}

// Summary is the immutable close-time outcome returned to the operator.
type Summary struct {
	SessionID       string    `json:"session_id"`
	EndedAt         time.Time `json:"ended_at"`
	TotalCaptures   int       `json:"total_captures"`
	PresentCount    int       `json:"present_count"`
	AbsentCount     int       `json:"absent_count"`
	TotalRecognized int       `json:"total_recognized_students"`
	Present         []string  `json:"present"`
	Absent          []string  `json:"absent"`
	DeviceNotified  bool      `json:"device_notified"`
}

type QueryFilter struct {
	TeacherID   string `query:"teacher_id"`
	ClassroomID string `query:"classroom_id"`
	Status      string `query:"status" validate:"omitempty,oneof=active completed"`
	Limit       int    `query:"limit" validate:"omitempty,min=1,max=500"`
}

func (qf *QueryFilter) Validate() error { return core.Validate.Struct(qf) }

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TeacherID == "" && qf.ClassroomID == "" && qf.Status == ""
}

// NewSessionID generates a new globally unique session identifier.
func NewSessionID() string {
	return "session_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
