package classroom

import (
	"context"
	"time"

	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/command"
)

var (
	ErrNotFound      = core.NotFoundError("classroom not found")
	ErrExists        = core.ConflictError("a classroom with this ID already exists")
	ErrPublishFailed = core.TransportFailureError("failed to send command to device")
)

type (
	Repository interface {
		CreateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		GetClassroom(ctx context.Context, classroomID string) (Classroom, error)
		QueryAllClassrooms(ctx context.Context) ([]Classroom, error)
		UpdateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		DeleteClassroom(ctx context.Context, classroomID string) error
		// SetDeviceStatus overwrites the reported health fields and bumps last_seen.
		SetDeviceStatus(ctx context.Context, classroomID string, report StatusReport, seenAt time.Time) (Classroom, error)
	}

	Service struct {
		repo    Repository
		channel command.Channel
	}
)

func NewService(repo Repository, channel command.Channel) *Service {
	return &Service{repo: repo, channel: channel}
}

func (svc *Service) Create(ctx context.Context, nc NewClassroom) (Classroom, error) {
	now := time.Now().UTC()
	return svc.repo.CreateClassroom(ctx, Classroom{
		ClassroomID: nc.ClassroomID,
		Name:        nc.Name,
		Building:    nc.Building,
		Floor:       nc.Floor,
		Capacity:    nc.Capacity,
		Location:    nc.Location,
		DeviceIP:    nc.DeviceIP,
		Status:      StatusOffline,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Get(ctx context.Context, classroomID string) (Classroom, error) {
	return svc.repo.GetClassroom(ctx, classroomID)
}

// GetClassroom is an alias of Get, matching the lookup interfaces other
// services declare.
func (svc *Service) GetClassroom(ctx context.Context, classroomID string) (Classroom, error) {
	return svc.Get(ctx, classroomID)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Classroom, error) {
	return svc.repo.QueryAllClassrooms(ctx)
}

func (svc *Service) Update(ctx context.Context, classroomID string, uc UpdateClassroom) (Classroom, error) {
	cls, err := svc.repo.GetClassroom(ctx, classroomID)
	if err != nil {
		return Classroom{}, err
	}
	if uc.Name != "" {
		cls.Name = uc.Name
	}
	if uc.Building != "" {
		cls.Building = uc.Building
	}
	if uc.Floor != "" {
		cls.Floor = uc.Floor
	}
	if uc.Capacity != 0 {
		cls.Capacity = uc.Capacity
	}
	if uc.Location != "" {
		cls.Location = uc.Location
	}
	if uc.DeviceIP != "" {
		cls.DeviceIP = uc.DeviceIP
	}
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClassroom(ctx, cls)
}

func (svc *Service) Delete(ctx context.Context, classroomID string) error {
	return svc.repo.DeleteClassroom(ctx, classroomID)
}

// ReportStatus applies a device-pushed status overwrite.
func (svc *Service) ReportStatus(ctx context.Context, classroomID string, report StatusReport) (Classroom, error) {
	return svc.repo.SetDeviceStatus(ctx, classroomID, report, time.Now().UTC())
}

// CheckStatus asks the device to report its current status; the device
// answers out of band by pushing a StatusReport.
func (svc *Service) CheckStatus(ctx context.Context, classroomID string) error {
	if _, err := svc.repo.GetClassroom(ctx, classroomID); err != nil {
		return err
	}
	if ok := svc.channel.Publish(classroomID, command.ReportStatus, nil); !ok {
		return ErrPublishFailed
	}
	return nil
}
