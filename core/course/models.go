package course

import (
	"time"

	"github.com/smartclass/attendance/core"
)

type Course struct {
	ID           string    `json:"course_id" bson:"-"`
	Code         string    `json:"course_code" bson:"course_code"`
	Title        string    `json:"title" bson:"title"`
	Year         int       `json:"year" bson:"year"`
	ClassCode    string    `json:"class_code,omitempty" bson:"class_code,omitempty"`
	Department   string    `json:"department,omitempty" bson:"department,omitempty"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	TeacherID    string    `json:"teacher_id" bson:"teacher_id"`
	TeacherName  string    `json:"teacher_name,omitempty" bson:"teacher_name,omitempty"`
	ClassroomIDs []string  `json:"classroom_ids" bson:"classroom_ids"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

func (c Course) HasClassroom(classroomID string) bool {
	for _, id := range c.ClassroomIDs {
		if id == classroomID {
			return true
		}
	}
	return false
}

// Enrollment links one student to one course; the (course, student) pair is
// unique, enforced by the storage layer.
type Enrollment struct {
	ID          string    `json:"enrollment_id" bson:"-"`
	CourseID    string    `json:"course_id" bson:"course_id"`
	StudentID   string    `json:"student_id" bson:"student_id"`
	StudentName string    `json:"student_name,omitempty" bson:"student_name,omitempty"`
	CourseTitle string    `json:"course_title,omitempty" bson:"course_title,omitempty"`
	EnrolledAt  time.Time `json:"enrolled_at" bson:"enrolled_at"`
}

type NewCourse struct {
	Code        string `json:"course_code" validate:"required,alphanum_"`
	Title       string `json:"title" validate:"required"`
	Year        int    `json:"year" validate:"required,min=1"`
	ClassCode   string `json:"class_code"`
	Department  string `json:"department"`
	Description string `json:"description"`
	TeacherID   string `json:"teacher_id" validate:"required,alphanum_"`
}

func (nc *NewCourse) Validate() error {
	nc.Code = core.CleanString(nc.Code)
	nc.Title = core.CleanString(nc.Title)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	return core.Validate.Struct(nc)
}

type UpdateCourse struct {
	Title       string `json:"title"`
	Year        int    `json:"year" validate:"omitempty,min=1"`
	ClassCode   string `json:"class_code"`
	Department  string `json:"department"`
	Description string `json:"description"`
	TeacherID   string `json:"teacher_id" validate:"omitempty,alphanum_"`
}

func (uc *UpdateCourse) Validate() error {
	uc.Title = core.CleanString(uc.Title)
	uc.TeacherID = core.CleanString(uc.TeacherID)
	return core.Validate.Struct(uc)
}

type NewEnrollment struct {
	CourseID  string `json:"course_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required,alphanum_"`
}

func (ne *NewEnrollment) Validate() error {
	ne.CourseID = core.CleanString(ne.CourseID)
	ne.StudentID = core.CleanString(ne.StudentID)
	return core.Validate.Struct(ne)
}

type BulkEnrollment struct {
	CourseID   string   `json:"course_id" validate:"required"`
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,alphanum_"`
}

func (be *BulkEnrollment) Validate() error {
	be.CourseID = core.CleanString(be.CourseID)
	for i, id := range be.StudentIDs {
		be.StudentIDs[i] = core.CleanString(id)
	}
	return core.Validate.Struct(be)
}

type EnrollmentFilter struct {
	CourseID  string `query:"course_id"`
	StudentID string `query:"student_id"`
}
