package dummydb

import (
	"context"
	"sort"

	"github.com/smartclass/attendance/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

// resolve looks up a course by ID first, then by code. Callers must hold
// at least a read lock.
func (repo *courseRepository) resolve(ref string) *course.Course {
	if crs, ok := repo.db.table[ref]; ok {
		return crs
	}
	for _, crs := range repo.db.table {
		if crs.Code == ref {
			return crs
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.table {
		if c.Code == crs.Code {
			return course.Course{}, course.ErrCodeExists
		}
	}
	crs.ID = nextID()
	if crs.ClassroomIDs == nil {
		crs.ClassroomIDs = []string{}
	}
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, ref string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs := repo.resolve(ref); crs != nil {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryAllCourses(_ context.Context) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.table))
	for _, crs := range repo.db.table {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs.ClassroomIDs = existing.ClassroomIDs
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.table, id)
	for enrID, enr := range repo.db.enrollments {
		if enr.CourseID == id {
			delete(repo.db.enrollments, enrID)
		}
	}
	return nil
}

func (repo *courseRepository) AssignClassroom(_ context.Context, courseID, classroomID string) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if !crs.HasClassroom(classroomID) {
		crs.ClassroomIDs = append(crs.ClassroomIDs, classroomID)
	}
	return *crs, nil
}

func (repo *courseRepository) RemoveClassroom(_ context.Context, courseID, classroomID string) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	kept := crs.ClassroomIDs[:0]
	for _, id := range crs.ClassroomIDs {
		if id != classroomID {
			kept = append(kept, id)
		}
	}
	crs.ClassroomIDs = kept
	return *crs, nil
}

func (repo *courseRepository) CreateEnrollment(_ context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, e := range repo.db.enrollments {
		if e.CourseID == enr.CourseID && e.StudentID == enr.StudentID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}
	enr.ID = nextID()
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) DeleteEnrollment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[id]; !ok {
		return course.ErrEnrollmentNotFound
	}
	delete(repo.db.enrollments, id)
	return nil
}

func (repo *courseRepository) FilterEnrollments(_ context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if filter.CourseID != "" && enr.CourseID != filter.CourseID {
			continue
		}
		if filter.StudentID != "" && enr.StudentID != filter.StudentID {
			continue
		}
		enrollments = append(enrollments, *enr)
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
	return enrollments, nil
}
