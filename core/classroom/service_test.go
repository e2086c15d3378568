package classroom_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/attendance/core/classroom"
	"github.com/smartclass/attendance/core/command"
	dummydb "github.com/smartclass/attendance/storage/dummy"
)

type fakeChannel struct {
	accept    bool
	published []string // "<classroomID>/<kind>"
}

func (ch *fakeChannel) Publish(classroomID, kind string, _ command.Params) bool {
	ch.published = append(ch.published, classroomID+"/"+kind)
	return ch.accept
}

func newService(t *testing.T) (*classroom.Service, *fakeChannel) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	channel := &fakeChannel{accept: true}
	return classroom.NewService(dummydb.NewClassroomRepository(db), channel), channel
}

func TestService_ReportStatus(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cls, err := svc.Create(ctx, classroom.NewClassroom{ClassroomID: "room-101", Name: "Lab"})
	require.NoError(t, err)
	assert.Equal(t, classroom.StatusOffline, cls.Status)
	assert.Nil(t, cls.LastSeen)

	up := true
	cls, err = svc.ReportStatus(ctx, "room-101", classroom.StatusReport{
		Status:        classroom.StatusOnline,
		MQTTConnected: &up,
		CameraStatus:  classroom.CameraOK,
	})
	require.NoError(t, err)
	assert.Equal(t, classroom.StatusOnline, cls.Status)
	assert.True(t, cls.MQTTConnected)
	assert.Equal(t, classroom.CameraOK, cls.CameraStatus)
	require.NotNil(t, cls.LastSeen)

	// omitted fields keep their previous value; last_seen still bumps
	prevSeen := *cls.LastSeen
	cls, err = svc.ReportStatus(ctx, "room-101", classroom.StatusReport{CameraStatus: classroom.CameraError})
	require.NoError(t, err)
	assert.Equal(t, classroom.StatusOnline, cls.Status)
	assert.True(t, cls.MQTTConnected)
	assert.Equal(t, classroom.CameraError, cls.CameraStatus)
	assert.False(t, cls.LastSeen.Before(prevSeen))

	_, err = svc.ReportStatus(ctx, "room-999", classroom.StatusReport{Status: classroom.StatusOnline})
	assert.ErrorIs(t, err, classroom.ErrNotFound)
}

func TestService_CheckStatus(t *testing.T) {
	svc, channel := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, classroom.NewClassroom{ClassroomID: "room-101", Name: "Lab"})
	require.NoError(t, err)

	require.NoError(t, svc.CheckStatus(ctx, "room-101"))
	assert.Equal(t, []string{"room-101/" + command.ReportStatus}, channel.published)

	// unknown classroom is rejected before anything is published
	err = svc.CheckStatus(ctx, "room-999")
	assert.ErrorIs(t, err, classroom.ErrNotFound)
	assert.Len(t, channel.published, 1)

	channel.accept = false
	err = svc.CheckStatus(ctx, "room-101")
	assert.ErrorIs(t, err, classroom.ErrPublishFailed)
}
