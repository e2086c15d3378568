package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/attendance/core/classroom"
	"github.com/smartclass/attendance/core/user"
)

func Test_classroomApi_crud(t *testing.T) {
	admin := user.User{ID: "u41", Name: "Root", Email: "root41@test.cd", Role: user.RoleAdmin, IsActive: true}
	teacher := user.User{ID: "u42", Name: "Alice", Email: "alice42@test.cd", Role: user.RoleTeacher, TeacherID: "T41", IsActive: true}
	adminToken := getToken(t, admin)

	body := marchallObj(t, map[string]interface{}{
		"classroom_id": "room-401",
		"name":         "Lab 401",
		"building":     "B",
		"capacity":     40,
	})

	// only admins create classrooms
	req, rec := newAuthRequest(http.MethodPost, "/api/classrooms", getToken(t, teacher), body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/api/classrooms", adminToken, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cls classroom.Classroom
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))
	assert.Equal(t, "room-401", cls.ClassroomID)
	assert.Equal(t, classroom.StatusOffline, cls.Status)

	// duplicate ID conflicts
	req, rec = newAuthRequest(http.MethodPost, "/api/classrooms", adminToken, body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// retrieve
	req, rec = newAuthRequest(http.MethodGet, "/api/classrooms/room-401", getToken(t, teacher))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// update
	req, rec = newAuthRequest(http.MethodPut, "/api/classrooms/room-401", adminToken,
		marchallObj(t, map[string]string{"name": "Lab 401 (renovated)"}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))
	assert.Equal(t, "Lab 401 (renovated)", cls.Name)

	// destroy
	req, rec = newAuthRequest(http.MethodDelete, "/api/classrooms/room-401", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/api/classrooms/room-401", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_classroomApi_deviceStatus(t *testing.T) {
	createClassroom(t, "room-402")
	teacher := user.User{ID: "u43", Name: "Bob", Email: "bob43@test.cd", Role: user.RoleTeacher, TeacherID: "T42", IsActive: true}

	// devices push status without a JWT
	body := marchallObj(t, map[string]interface{}{
		"status":         "online",
		"mqtt_connected": true,
		"camera_status":  "OK",
	})
	req, rec := newRequest(http.MethodPost, "/api/classrooms/room-402/status", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cls classroom.Classroom
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))
	assert.Equal(t, classroom.StatusOnline, cls.Status)
	assert.True(t, cls.MQTTConnected)
	assert.Equal(t, classroom.CameraOK, cls.CameraStatus)
	assert.NotNil(t, cls.LastSeen)

	// bad status value
	req, rec = newRequest(http.MethodPost, "/api/classrooms/room-402/status",
		marchallObj(t, map[string]string{"status": "sleeping"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown classroom
	req, rec = newRequest(http.MethodPost, "/api/classrooms/room-999/status", body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// check-status asks the device to report back
	req, rec = newAuthRequest(http.MethodPost, "/api/classrooms/room-402/check-status", getToken(t, teacher))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func Test_classroomApi_checkStatusBrokerDown(t *testing.T) {
	createClassroom(t, "room-403")
	teacher := user.User{ID: "u44", Name: "Carol", Email: "carol44@test.cd", Role: user.RoleTeacher, TeacherID: "T43", IsActive: true}

	channel.Lock()
	channel.accept = false
	channel.Unlock()
	defer func() {
		channel.Lock()
		channel.accept = true
		channel.Unlock()
	}()

	req, rec := newAuthRequest(http.MethodPost, "/api/classrooms/room-403/check-status", getToken(t, teacher))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
