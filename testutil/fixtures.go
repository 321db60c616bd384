package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/school"
	"github.com/trezcool/utulivu/core/student"
	"github.com/trezcool/utulivu/core/user"
)

// Password is the password of every user created by the fixtures.
const Password = "Calm-Waters-42"

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email string,
	roles []string,
	schoolID string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := core.NowFunc().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		SchoolID:  schoolID,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSuperAdmin(t *testing.T, repo user.Repository, uname string) user.User {
	t.Helper()
	return CreateUser(t, repo, "Super "+uname, uname, uname+"@utulivu.test", []string{user.RoleAdminSuper}, "", true)
}

func CreateSchoolAdmin(t *testing.T, repo user.Repository, uname, schoolID string) user.User {
	t.Helper()
	return CreateUser(t, repo, "Admin "+uname, uname, uname+"@utulivu.test", []string{user.RoleAdmin}, schoolID, true)
}

func CreateSchool(t *testing.T, repo school.Repository, name, code string) school.School {
	t.Helper()
	now := core.NowFunc().UTC()
	sch, err := repo.CreateSchool(context.Background(), school.School{
		ID:        uuid.New().String(),
		Name:      name,
		Code:      strings.ToUpper(code),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

// CreateStudent enrols a student and creates their login (username = lower-cased number).
func CreateStudent(t *testing.T, svc *student.Service, name, number, schoolID string) student.Student {
	t.Helper()
	st, err := svc.Create(context.Background(), student.NewStudent{
		Name:            name,
		StudentNumber:   number,
		SchoolID:        schoolID,
		Password:        Password,
		PasswordConfirm: Password,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}
