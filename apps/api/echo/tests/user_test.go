package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/smartclass/attendance/apps/api/echo"
	"github.com/smartclass/attendance/core/user"
)

func createUser(t *testing.T, name, email, role, teacherID, pwd string, active bool) user.User {
	t.Helper()
	usr := user.User{Name: name, Email: email, Role: role, TeacherID: teacherID, IsActive: active}
	require.NoError(t, usr.SetPassword(pwd))
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func Test_userApi_login(t *testing.T) {
	usr := createUser(t, "Divine", "divine@test.cd", user.RoleTeacher, "T51", "s3cr3tpwd", true)
	createUser(t, "Gone", "gone@test.cd", user.RoleTeacher, "T52", "s3cr3tpwd", false)

	errAuthFailed := httpErr{Error: "authentication failed"}

	tests := []httpTest{
		{
			name:     "OK",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "divine@test.cd", Password: "s3cr3tpwd"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "Email is case-insensitive",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "Divine@Test.CD", Password: "s3cr3tpwd"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "Wrong password",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "divine@test.cd", Password: "nope-nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, errAuthFailed),
		},
		{
			name:     "Unknown email",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "ghost@test.cd", Password: "s3cr3tpwd"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, errAuthFailed),
		},
		{
			name:     "Deactivated account",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "gone@test.cd", Password: "s3cr3tpwd"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "Missing fields",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "divine@test.cd"}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the issued token authenticates follow-up requests
	req, rec := newRequest(http.MethodPost, "/api/users/login",
		marchallObj(t, echoapi.LoginRequest{Email: "divine@test.cd", Password: "s3cr3tpwd"}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	req, rec = newAuthRequest(http.MethodGet, "/api/users/me", resp.Token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var me user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, usr.ID, me.ID)
	assert.Equal(t, "divine@test.cd", me.Email)
	assert.Empty(t, me.PasswordHash)
}

func Test_userApi_tokenRefresh(t *testing.T) {
	usr := createUser(t, "Ref", "ref@test.cd", user.RoleTeacher, "T53", "s3cr3tpwd", true)

	req, rec := newAuthRequest(http.MethodPost, "/api/users/token-refresh", getToken(t, usr))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func Test_userApi_register(t *testing.T) {
	admin := createUser(t, "Root", "root54@test.cd", user.RoleAdmin, "", "s3cr3tpwd", true)
	teacher := createUser(t, "Teach", "teach54@test.cd", user.RoleTeacher, "T54", "s3cr3tpwd", true)

	body := marchallObj(t, user.NewUser{
		Name:            "New Teacher",
		Email:           "newteach@test.cd",
		Role:            user.RoleTeacher,
		TeacherID:       "T55",
		Password:        "s3cr3tpwd",
		PasswordConfirm: "s3cr3tpwd",
	})

	tests := []httpTest{
		{
			name:     "Unauthenticated",
			method:   http.MethodPost,
			path:     "/api/users/register",
			body:     body,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "Teachers may not register users",
			method:   http.MethodPost,
			path:     "/api/users/register",
			body:     body,
			token:    getToken(t, teacher),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "OK",
			method:   http.MethodPost,
			path:     "/api/users/register",
			body:     body,
			token:    getToken(t, admin),
			wantCode: http.StatusCreated,
		},
		{
			name:     "Duplicate email",
			method:   http.MethodPost,
			path:     "/api/users/register",
			body:     body,
			token:    getToken(t, admin),
			wantCode: http.StatusConflict,
		},
		{
			name:   "Password mismatch",
			method: http.MethodPost,
			path:   "/api/users/register",
			body: marchallObj(t, user.NewUser{
				Name:            "Typo",
				Email:           "typo@test.cd",
				Role:            user.RoleTeacher,
				TeacherID:       "T56",
				Password:        "s3cr3tpwd",
				PasswordConfirm: "s3cr3tpwX",
			}),
			token:    getToken(t, admin),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
