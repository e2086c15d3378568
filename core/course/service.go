package course

import (
	"context"
	"fmt"
	"time"

	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/command"
	"github.com/smartclass/attendance/core/student"
)

var (
	ErrNotFound           = core.NotFoundError("course not found")
	ErrCodeExists         = core.ConflictError("a course with this code already exists")
	ErrEnrollmentNotFound = core.NotFoundError("enrollment not found")
	ErrAlreadyEnrolled    = core.ConflictError("student is already enrolled in this course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// GetCourse resolves `ref` as either the course's document ID or its course code.
		GetCourse(ctx context.Context, ref string) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
		// AssignClassroom/RemoveClassroom mutate the classroom set atomically
		// (set-add / set-remove at the storage layer).
		AssignClassroom(ctx context.Context, courseID, classroomID string) (Course, error)
		RemoveClassroom(ctx context.Context, courseID, classroomID string) (Course, error)

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id string) error
		FilterEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
	}

	// StudentGetter resolves student identity for enrollment checks.
	StudentGetter interface {
		Get(ctx context.Context, studentID string) (student.Student, error)
	}

	Service struct {
		repo     Repository
		students StudentGetter
		channel  command.Channel
		log      core.Logger
	}
)

func NewService(repo Repository, students StudentGetter, channel command.Channel, log core.Logger) *Service {
	return &Service{repo: repo, students: students, channel: channel, log: log}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		Code:         nc.Code,
		Title:        nc.Title,
		Year:         nc.Year,
		ClassCode:    nc.ClassCode,
		Department:   nc.Department,
		Description:  nc.Description,
		TeacherID:    nc.TeacherID,
		ClassroomIDs: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) Get(ctx context.Context, ref string) (Course, error) {
	return svc.repo.GetCourse(ctx, ref)
}

// GetCourse satisfies the session lifecycle manager's course lookup.
func (svc *Service) GetCourse(ctx context.Context, ref string) (Course, error) {
	return svc.repo.GetCourse(ctx, ref)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *Service) Update(ctx context.Context, ref string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, ref)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != "" {
		crs.Title = uc.Title
	}
	if uc.Year != 0 {
		crs.Year = uc.Year
	}
	if uc.ClassCode != "" {
		crs.ClassCode = uc.ClassCode
	}
	if uc.Department != "" {
		crs.Department = uc.Department
	}
	if uc.Description != "" {
		crs.Description = uc.Description
	}
	if uc.TeacherID != "" {
		crs.TeacherID = uc.TeacherID
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) Delete(ctx context.Context, ref string) error {
	crs, err := svc.repo.GetCourse(ctx, ref)
	if err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, crs.ID)
}

func (svc *Service) AssignClassroom(ctx context.Context, courseRef, classroomID string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, courseRef)
	if err != nil {
		return Course{}, err
	}
	return svc.repo.AssignClassroom(ctx, crs.ID, classroomID)
}

func (svc *Service) RemoveClassroom(ctx context.Context, courseRef, classroomID string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, courseRef)
	if err != nil {
		return Course{}, err
	}
	return svc.repo.RemoveClassroom(ctx, crs.ID, classroomID)
}

// Enroll links a student to a course and nudges the course's devices to
// refresh their embedding caches. The nudge is best effort; enrollment
// stands even if no device hears it.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	crs, err := svc.repo.GetCourse(ctx, ne.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	st, err := svc.students.Get(ctx, ne.StudentID)
	if err != nil {
		return Enrollment{}, err
	}

	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		CourseID:    crs.ID,
		StudentID:   st.StudentID,
		StudentName: st.Name,
		CourseTitle: crs.Title,
		EnrolledAt:  time.Now().UTC(),
	})
	if err != nil {
		return Enrollment{}, err
	}

	svc.syncEmbeddings(crs, []string{st.StudentID})
	return enr, nil
}

// BulkEnroll enrolls many students at once; already-enrolled students are
// skipped, not errors.
func (svc *Service) BulkEnroll(ctx context.Context, be BulkEnrollment) ([]Enrollment, error) {
	crs, err := svc.repo.GetCourse(ctx, be.CourseID)
	if err != nil {
		return nil, err
	}

	enrolled := make([]Enrollment, 0, len(be.StudentIDs))
	updated := make([]string, 0, len(be.StudentIDs))
	for _, sid := range be.StudentIDs {
		st, err := svc.students.Get(ctx, sid)
		if err != nil {
			return nil, err
		}
		enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
			CourseID:    crs.ID,
			StudentID:   st.StudentID,
			StudentName: st.Name,
			CourseTitle: crs.Title,
			EnrolledAt:  time.Now().UTC(),
		})
		if err == ErrAlreadyEnrolled {
			continue
		}
		if err != nil {
			return nil, err
		}
		enrolled = append(enrolled, enr)
		updated = append(updated, st.StudentID)
	}

	if len(updated) > 0 {
		svc.syncEmbeddings(crs, updated)
	}
	return enrolled, nil
}

func (svc *Service) Unenroll(ctx context.Context, enrollmentID string) error {
	return svc.repo.DeleteEnrollment(ctx, enrollmentID)
}

func (svc *Service) FilterEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error) {
	return svc.repo.FilterEnrollments(ctx, filter)
}

// ResolveRoster returns the current enrolled-student set for a course.
// No caching: it always reflects enrollment at call time; the session
// lifecycle manager snapshots it at open only.
func (svc *Service) ResolveRoster(ctx context.Context, courseID string) ([]string, error) {
	enrs, err := svc.repo.FilterEnrollments(ctx, EnrollmentFilter{CourseID: courseID})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(enrs))
	roster := make([]string, 0, len(enrs))
	for _, enr := range enrs {
		if _, ok := seen[enr.StudentID]; ok {
			continue
		}
		seen[enr.StudentID] = struct{}{}
		roster = append(roster, enr.StudentID)
	}
	return roster, nil
}

func (svc *Service) syncEmbeddings(crs Course, studentIDs []string) {
	params := command.Params{"updated_students": studentIDs}
	for _, cid := range crs.ClassroomIDs {
		if ok := svc.channel.Publish(cid, command.SyncEmbeddings, params); !ok {
			svc.log.Warn(fmt.Sprintf("sync_embeddings not delivered to classroom %s", cid))
		}
	}
}
