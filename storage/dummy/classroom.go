package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/smartclass/attendance/core/classroom"
)

type classroomRepository struct {
	db *classroomTable
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db.classroom}
}

func (repo *classroomRepository) CreateClassroom(_ context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[cls.ClassroomID]; ok {
		return classroom.Classroom{}, classroom.ErrExists
	}
	repo.db.table[cls.ClassroomID] = &cls
	return cls, nil
}

func (repo *classroomRepository) GetClassroom(_ context.Context, classroomID string) (classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.table[classroomID]; ok {
		return *cls, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryAllClassrooms(_ context.Context) ([]classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classrooms := make([]classroom.Classroom, 0, len(repo.db.table))
	for _, cls := range repo.db.table {
		classrooms = append(classrooms, *cls)
	}
	sort.Slice(classrooms, func(i, j int) bool { return classrooms[i].ClassroomID < classrooms[j].ClassroomID })
	return classrooms, nil
}

func (repo *classroomRepository) UpdateClassroom(_ context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[cls.ClassroomID]; !ok {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	repo.db.table[cls.ClassroomID] = &cls
	return cls, nil
}

func (repo *classroomRepository) DeleteClassroom(_ context.Context, classroomID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[classroomID]; !ok {
		return classroom.ErrNotFound
	}
	delete(repo.db.table, classroomID)
	return nil
}

func (repo *classroomRepository) SetDeviceStatus(
	_ context.Context,
	classroomID string,
	report classroom.StatusReport,
	seenAt time.Time,
) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls, ok := repo.db.table[classroomID]
	if !ok {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	if report.Status != "" {
		cls.Status = report.Status
	}
	if report.MQTTConnected != nil {
		cls.MQTTConnected = *report.MQTTConnected
	}
	if report.CameraStatus != "" {
		cls.CameraStatus = report.CameraStatus
	}
	cls.LastSeen = &seenAt
	cls.UpdatedAt = seenAt
	return *cls, nil
}
