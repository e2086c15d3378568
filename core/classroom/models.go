package classroom

import (
	"time"

	"github.com/smartclass/attendance/core"
)

// Device statuses
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusIdle    = "idle"
)

// Camera health codes
const (
	CameraOK          = "OK"
	CameraError       = "ERROR"
	CameraNotDetected = "NOT_DETECTED"
)

// Classroom is a physical room with one registered edge device (camera).
// The classroom ID doubles as the device address on the command channel.
type Classroom struct {
	ClassroomID   string     `json:"classroom_id" bson:"classroom_id"`
	Name          string     `json:"name" bson:"name"`
	Building      string     `json:"building,omitempty" bson:"building,omitempty"`
	Floor         string     `json:"floor,omitempty" bson:"floor,omitempty"`
	Capacity      int        `json:"capacity,omitempty" bson:"capacity,omitempty"`
	Location      string     `json:"location,omitempty" bson:"location,omitempty"`
	DeviceIP      string     `json:"device_ip,omitempty" bson:"device_ip,omitempty"`
	Status        string     `json:"status" bson:"status"`
	LastSeen      *time.Time `json:"last_seen,omitempty" bson:"last_seen,omitempty"`
	MQTTConnected bool       `json:"mqtt_connected" bson:"mqtt_connected"`
	CameraStatus  string     `json:"camera_status,omitempty" bson:"camera_status,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

type NewClassroom struct {
	ClassroomID string `json:"classroom_id" validate:"required,alphanum_"`
	Name        string `json:"name" validate:"required"`
	Building    string `json:"building"`
	Floor       string `json:"floor"`
	Capacity    int    `json:"capacity" validate:"omitempty,min=0"`
	Location    string `json:"location"`
	DeviceIP    string `json:"device_ip" validate:"omitempty,ip"`
}

func (nc *NewClassroom) Validate() error {
	nc.ClassroomID = core.CleanString(nc.ClassroomID)
	nc.Name = core.CleanString(nc.Name)
	return core.Validate.Struct(nc)
}

type UpdateClassroom struct {
	Name     string `json:"name"`
	Building string `json:"building"`
	Floor    string `json:"floor"`
	Capacity int    `json:"capacity" validate:"omitempty,min=0"`
	Location string `json:"location"`
	DeviceIP string `json:"device_ip" validate:"omitempty,ip"`
}

func (uc *UpdateClassroom) Validate() error {
	uc.Name = core.CleanString(uc.Name)
	return core.Validate.Struct(uc)
}

// StatusReport is the device-pushed health overwrite; it carries no
// lifecycle semantics.
type StatusReport struct {
	Status        string `json:"status" validate:"omitempty,oneof=online offline idle"`
	MQTTConnected *bool  `json:"mqtt_connected"`
	CameraStatus  string `json:"camera_status" validate:"omitempty,oneof=OK ERROR NOT_DETECTED"`
}

func (sr *StatusReport) Validate() error { return core.Validate.Struct(sr) }
