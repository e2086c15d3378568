package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/smartclass/attendance/apps/api/echo"
	"github.com/smartclass/attendance/core/classroom"
	"github.com/smartclass/attendance/core/command"
	"github.com/smartclass/attendance/core/course"
	"github.com/smartclass/attendance/core/user"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// fakeChannel records published commands; Publish returns `accept`.
type fakeChannel struct {
	sync.Mutex
	accept    bool
	published []publishedCmd
}

type publishedCmd struct {
	classroomID string
	kind        string
	params      command.Params
}

func (ch *fakeChannel) Publish(classroomID, kind string, params command.Params) bool {
	ch.Lock()
	defer ch.Unlock()
	ch.published = append(ch.published, publishedCmd{classroomID, kind, params})
	return ch.accept
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	var got, want interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshalling response %q: %v", rec.Body.String(), err)
	}
	if err := json.Unmarshal(tt.wantData, &want); err != nil {
		t.Fatalf("unmarshalling wantData: %v", err)
	}
	require.Equal(t, want, got)
}

// createCourse seeds a course assigned to classroomID with the given roster.
func createCourse(t *testing.T, code, teacherID, classroomID string, roster ...string) course.Course {
	t.Helper()
	ctx := context.Background()

	crs, err := crsRepo.CreateCourse(ctx, course.Course{
		Code: code, Title: "Course " + code, Year: 1, TeacherID: teacherID,
	})
	require.NoError(t, err)
	crs, err = crsRepo.AssignClassroom(ctx, crs.ID, classroomID)
	require.NoError(t, err)
	for _, sid := range roster {
		_, err = crsRepo.CreateEnrollment(ctx, course.Enrollment{CourseID: crs.ID, StudentID: sid})
		require.NoError(t, err)
	}
	return crs
}

func createClassroom(t *testing.T, id string) classroom.Classroom {
	t.Helper()
	cls, err := clsRepo.CreateClassroom(context.Background(), classroom.Classroom{ClassroomID: id, Name: "Room " + id})
	require.NoError(t, err)
	return cls
}
