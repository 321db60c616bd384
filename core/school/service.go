package school

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("school")
	ErrClassNotFound = core.NewNotFoundError("class")
	ErrCodeExists    = errors.New("a school with this code already exists")
	ErrClassExists   = errors.New("a class with this name already exists in this school")
	ErrHasStudents   = core.NewConflictError("school still has students")
)

type (
	Repository interface {
		// CodeExists reports whether a school other than excludedID uses code.
		CodeExists(ctx context.Context, code, excludedID string) (bool, error)
		CreateSchool(ctx context.Context, sch School) (School, error)
		QuerySchools(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]School, error)
		GetSchool(ctx context.Context, id string) (School, error)
		UpdateSchool(ctx context.Context, sch School) (School, error)
		// DeleteSchool returns ErrHasStudents if students are still enrolled.
		DeleteSchool(ctx context.Context, id string) error

		ClassNameExists(ctx context.Context, schoolID, name string) (bool, error)
		CreateClass(ctx context.Context, cls Class) (Class, error)
		QueryClasses(ctx context.Context, schoolID string) ([]Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		DeleteClass(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

var allowedOrderings = []string{"name", "code", "is_active", "created_at"}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkCode(ctx context.Context, code, excludedID string) error {
	exists, err := svc.repo.CodeExists(ctx, code, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking school code")
	}
	if exists {
		return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	if err := svc.checkCode(ctx, ns.Code, ""); err != nil {
		return School{}, err
	}
	now := core.NowFunc().UTC()
	return svc.repo.CreateSchool(ctx, School{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		Code:      ns.Code,
		Address:   ns.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]School, error) {
	return svc.repo.QuerySchools(ctx, filter, core.FilterOrderings(ordering, allowedOrderings...))
}

func (svc *Service) GetByID(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

func (svc *Service) Update(ctx context.Context, sch School, us UpdateSchool) (School, error) {
	if us.Code != sch.Code {
		if err := svc.checkCode(ctx, us.Code, sch.ID); err != nil {
			return School{}, err
		}
	}
	sch.Name = us.Name
	sch.Code = us.Code
	sch.Address = us.Address
	if us.IsActive != nil {
		sch.IsActive = *us.IsActive
	}
	sch.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSchool(ctx, id)
}

func (svc *Service) CreateClass(ctx context.Context, sch School, nc NewClass) (Class, error) {
	exists, err := svc.repo.ClassNameExists(ctx, sch.ID, nc.Name)
	if err != nil {
		return Class{}, errors.Wrap(err, "checking class name")
	}
	if exists {
		return Class{}, core.NewValidationError(ErrClassExists, core.FieldError{Field: "name", Error: ErrClassExists.Error()})
	}
	return svc.repo.CreateClass(ctx, Class{
		ID:        uuid.New().String(),
		SchoolID:  sch.ID,
		Name:      nc.Name,
		Grade:     nc.Grade,
		CreatedAt: core.NowFunc().UTC(),
	})
}

func (svc *Service) QueryClasses(ctx context.Context, schoolID string) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, schoolID)
}

// GetClass returns the class only if it belongs to schoolID.
func (svc *Service) GetClass(ctx context.Context, schoolID, id string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if cls.SchoolID != schoolID {
		return Class{}, ErrClassNotFound
	}
	return cls, nil
}

func (svc *Service) DeleteClass(ctx context.Context, schoolID, id string) error {
	if _, err := svc.GetClass(ctx, schoolID, id); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, id)
}
