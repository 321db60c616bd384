package student

import (
	"context"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/user"
)

type Student struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	SchoolID      string     `json:"school_id"`
	ClassID       string     `json:"class_id,omitempty"`
	StudentNumber string     `json:"student_number"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Gender        string     `json:"gender"`
	DateOfBirth   *time.Time `json:"date_of_birth"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewStudent contains information needed to enrol a Student and create their login.
// SchoolID is ignored for school admins, who can only enrol students in their own school.
type NewStudent struct {
	Name            string     `json:"name" validate:"required,max=200"`
	StudentNumber   string     `json:"student_number" validate:"required,max=32,alphanum_"`
	Email           string     `json:"email" validate:"omitempty,email"`
	Username        string     `json:"username" validate:"omitempty,min=6,alphanum_"`
	Gender          string     `json:"gender" validate:"omitempty,oneof=female male other"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	SchoolID        string     `json:"school_id" validate:"required,uuid"`
	ClassID         string     `json:"class_id" validate:"omitempty,uuid"`
	Password        string     `json:"password" validate:"required"`
	PasswordConfirm string     `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.StudentNumber = core.CleanString(ns.StudentNumber)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	ns.Gender = core.CleanString(ns.Gender, true /* lower */)
	ns.SchoolID = core.CleanString(ns.SchoolID, true /* lower */)
	ns.ClassID = core.CleanString(ns.ClassID, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, ns.StudentNumber, ns.LoginUsername(), ns.Email, nil)
}

// LoginUsername is the username the student logs in with: the one provided,
// or the lower-cased student number.
func (ns *NewStudent) LoginUsername() string {
	if ns.Username != "" {
		return ns.Username
	}
	return strings.ToLower(ns.StudentNumber)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name          string     `json:"name" validate:"max=200"`
	StudentNumber string     `json:"student_number" validate:"omitempty,max=32,alphanum_"`
	Email         string     `json:"email" validate:"omitempty,email"`
	Gender        string     `json:"gender" validate:"omitempty,oneof=female male other"`
	DateOfBirth   *time.Time `json:"date_of_birth"`
	ClassID       *string    `json:"class_id" validate:"omitempty"`
}

func (us *UpdateStudent) Validate(ctx context.Context, orig Student, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if num := core.CleanString(us.StudentNumber); num != "" {
		us.StudentNumber = num
	} else {
		us.StudentNumber = orig.StudentNumber
	}
	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}
	if gender := core.CleanString(us.Gender, true /* lower */); gender != "" {
		us.Gender = gender
	} else {
		us.Gender = orig.Gender
	}
	if us.ClassID != nil {
		id := core.CleanString(*us.ClassID, true /* lower */)
		us.ClassID = &id
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, us.StudentNumber, "", us.Email, &orig)
}

type QueryFilter struct {
	Search   string `query:"search"`
	SchoolID string `query:"school_id"`
	ClassID  string `query:"class_id"`
	Gender   string `query:"gender"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SchoolID = core.CleanString(qf.SchoolID, true /* lower */)
	qf.ClassID = core.CleanString(qf.ClassID, true /* lower */)
	qf.Gender = core.CleanString(qf.Gender, true /* lower */)
}

// GetFilter selects a single Student. The first non-empty field wins.
type GetFilter struct {
	ID            string
	UserID        string
	StudentNumber string
}

// InitValidators registers the student validators.
func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(newStudentStructValidation, NewStudent{})
}

func newStudentStructValidation(sl validator.StructLevel) {
	ns, ok := sl.Current().Interface().(NewStudent)
	if !ok || ns.Password == "" {
		return
	}
	if tag := user.PasswordPolicyViolation(ns.Password, ns.Name, ns.StudentNumber, ns.Username, ns.Email); tag != "" {
		sl.ReportError(ns.Password, "password", "Password", tag, "")
	}
}
