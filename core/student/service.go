package student

import (
	"context"
	"time"

	"github.com/smartclass/attendance/core"
)

var (
	ErrNotFound = core.NotFoundError("student not found")
	ErrExists   = core.ConflictError("a student with this ID already exists")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudent(ctx context.Context, studentID string) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudent(ctx context.Context, studentID string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	return svc.repo.CreateStudent(ctx, Student{
		StudentID:  ns.StudentID,
		Name:       ns.Name,
		Email:      ns.Email,
		Phone:      ns.Phone,
		Batch:      ns.Batch,
		Department: ns.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *Service) Get(ctx context.Context, studentID string) (Student, error) {
	return svc.repo.GetStudent(ctx, studentID)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) Update(ctx context.Context, studentID string, us UpdateStudent) (Student, error) {
	st, err := svc.repo.GetStudent(ctx, studentID)
	if err != nil {
		return Student{}, err
	}
	if us.Name != "" {
		st.Name = us.Name
	}
	if us.Email != "" {
		st.Email = us.Email
	}
	if us.Phone != "" {
		st.Phone = us.Phone
	}
	if us.Batch != "" {
		st.Batch = us.Batch
	}
	if us.Department != "" {
		st.Department = us.Department
	}
	st.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, st)
}

func (svc *Service) Delete(ctx context.Context, studentID string) error {
	return svc.repo.DeleteStudent(ctx, studentID)
}
