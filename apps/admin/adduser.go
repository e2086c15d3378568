package main

import (
	"context"
	"fmt"
	"time"

	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, pwd, role, teacherID string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	if role != user.RoleAdmin && role != user.RoleTeacher {
		return fmt.Errorf("unsupported role %q", role)
	}

	now := time.Now().UTC()
	usr := user.User{
		Name:      core.CleanString(name),
		Email:     email,
		Role:      role,
		TeacherID: core.CleanString(teacherID),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	logger.Printf("user %s saved", email)
	return nil
}
