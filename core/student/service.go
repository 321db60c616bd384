package student

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/school"
	"github.com/trezcool/utulivu/core/user"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("student")
	ErrStudentNumberExists  = errors.New("a student with this student ID already exists")
	errStudentNumberField   = "student_number"
	errClassNotInSchoolText = "class does not belong to this school"
)

type (
	Repository interface {
		// StudentNumberExists reports whether a student other than excludedID uses number.
		StudentNumberExists(ctx context.Context, number, excludedID string) (bool, error)
		// CreateStudent returns ErrStudentNumberExists when the student number is taken.
		CreateStudent(ctx context.Context, st Student) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo       Repository
		usrRepo    user.Repository
		schoolRepo school.Repository
		tx         core.Transactor
	}
)

var allowedOrderings = []string{"name", "student_number", "gender", "created_at"}

func NewService(repo Repository, usrRepo user.Repository, schoolRepo school.Repository, tx core.Transactor) *Service {
	return &Service{
		repo:       repo,
		usrRepo:    usrRepo,
		schoolRepo: schoolRepo,
		tx:         tx,
	}
}

func studentNumberError() error {
	return core.NewValidationError(
		ErrStudentNumberExists,
		core.FieldError{Field: errStudentNumberField, Error: ErrStudentNumberExists.Error()},
	)
}

func (svc *Service) checkUniqueness(ctx context.Context, number, uname, email string, orig *Student) error {
	var exclID string
	var exclUsers []user.User
	if orig != nil {
		exclID = orig.ID
		exclUsers = append(exclUsers, user.User{ID: orig.UserID})
	}

	exists, err := svc.repo.StudentNumberExists(ctx, number, exclID)
	if err != nil {
		return errors.Wrap(err, "checking student number")
	}
	if exists {
		return studentNumberError()
	}

	if uname == "" && email == "" {
		return nil
	}
	if err = svc.usrRepo.CheckUniqueness(ctx, uname, email, exclUsers...); err != nil {
		switch errors.Cause(err) {
		case user.ErrUsernameExists:
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: user.ErrUsernameExists.Error()})
		case user.ErrEmailExists:
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	return nil
}

func (svc *Service) checkClass(ctx context.Context, schoolID, classID string) error {
	if classID == "" {
		return nil
	}
	cls, err := svc.schoolRepo.GetClass(ctx, classID)
	if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "finding class")
	}
	if err != nil || cls.SchoolID != schoolID {
		return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: errClassNotInSchoolText})
	}
	return nil
}

// Create enrols a student: the student's login user and the Student are created in one transaction.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if _, err := svc.schoolRepo.GetSchool(ctx, ns.SchoolID); err != nil {
		if core.IsNotFound(err) {
			return Student{}, core.NewValidationError(err, core.FieldError{Field: "school_id", Error: err.Error()})
		}
		return Student{}, errors.Wrap(err, "finding school")
	}
	if err := svc.checkClass(ctx, ns.SchoolID, ns.ClassID); err != nil {
		return Student{}, err
	}

	now := core.NowFunc().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		Username:  ns.LoginUsername(),
		Email:     ns.Email,
		IsActive:  true,
		Roles:     []string{user.RoleStudent},
		SchoolID:  ns.SchoolID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(ns.Password); err != nil {
		return Student{}, errors.Wrap(err, "setting password")
	}

	var st Student
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := svc.usrRepo.CreateUser(ctx, usr)
		if err != nil {
			return errors.Wrap(err, "creating student user")
		}
		st, err = svc.repo.CreateStudent(ctx, Student{
			ID:            uuid.New().String(),
			UserID:        created.ID,
			SchoolID:      ns.SchoolID,
			ClassID:       ns.ClassID,
			StudentNumber: ns.StudentNumber,
			Name:          ns.Name,
			Email:         ns.Email,
			Gender:        ns.Gender,
			DateOfBirth:   ns.DateOfBirth,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return err
	})
	if err != nil {
		if errors.Cause(err) == ErrStudentNumberExists {
			return Student{}, studentNumberError()
		}
		return Student{}, errors.Wrap(err, "creating student")
	}
	return st, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, core.FilterOrderings(ordering, allowedOrderings...))
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{UserID: userID})
}

// Update saves the changes to st and keeps the student's login user in sync.
func (svc *Service) Update(ctx context.Context, st Student, us UpdateStudent) (Student, error) {
	if us.ClassID != nil {
		if err := svc.checkClass(ctx, st.SchoolID, *us.ClassID); err != nil {
			return Student{}, err
		}
		st.ClassID = *us.ClassID
	}
	st.Name = us.Name
	st.StudentNumber = us.StudentNumber
	st.Email = us.Email
	st.Gender = us.Gender
	if us.DateOfBirth != nil {
		st.DateOfBirth = us.DateOfBirth
	}
	st.UpdatedAt = core.NowFunc().UTC()

	var updated Student
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: st.UserID})
		if err != nil {
			return errors.Wrap(err, "finding student user")
		}
		usr.Name = st.Name
		usr.Email = st.Email
		usr.UpdatedAt = st.UpdatedAt
		if _, err = svc.usrRepo.UpdateUser(ctx, usr); err != nil {
			return errors.Wrap(err, "updating student user")
		}
		updated, err = svc.repo.UpdateStudent(ctx, st)
		return err
	})
	if err != nil {
		if errors.Cause(err) == ErrStudentNumberExists {
			return Student{}, studentNumberError()
		}
		return Student{}, errors.Wrap(err, "updating student")
	}
	return updated, nil
}

// Delete removes the student and their login user.
func (svc *Service) Delete(ctx context.Context, st Student) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := svc.repo.DeleteStudent(ctx, st.ID); err != nil {
			return errors.Wrap(err, "deleting student")
		}
		return errors.Wrap(svc.usrRepo.DeleteUsers(ctx, st.UserID), "deleting student user")
	})
}
