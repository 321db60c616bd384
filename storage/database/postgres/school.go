package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/school"
)

const (
	schoolColumns = `id, name, code, address, is_active, created_at, updated_at`
	classColumns  = `id, school_id, name, grade, created_at`
)

type schoolRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	Address   string    `db:"address"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row schoolRow) school() school.School {
	return school.School{
		ID:        row.ID,
		Name:      row.Name,
		Code:      row.Code,
		Address:   row.Address,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type classRow struct {
	ID        string    `db:"id"`
	SchoolID  string    `db:"school_id"`
	Name      string    `db:"name"`
	Grade     string    `db:"grade"`
	CreatedAt time.Time `db:"created_at"`
}

func (row classRow) class() school.Class {
	return school.Class{
		ID:        row.ID,
		SchoolID:  row.SchoolID,
		Name:      row.Name,
		Grade:     row.Grade,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type schoolRepository struct {
	repo
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db core.DBExecutor) *schoolRepository {
	return &schoolRepository{repo{db: db}}
}

func (r *schoolRepository) CodeExists(ctx context.Context, code, excludedID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.exec(ctx), &exists,
		`SELECT EXISTS (SELECT 1 FROM schools WHERE code = $1 AND id::text <> $2)`, code, excludedID)
	return exists, errors.Wrap(err, "checking school code")
}

func (r *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	_, err := r.exec(ctx).ExecContext(ctx,
		`INSERT INTO schools (`+schoolColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sch.ID, sch.Name, sch.Code, sch.Address, sch.IsActive, sch.CreatedAt.UTC(), sch.UpdatedAt.UTC())
	if err != nil {
		if isConstraintViolation(err, uniqueViolation, "schools_code_key") {
			return school.School{}, school.ErrCodeExists
		}
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (r *schoolRepository) QuerySchools(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	var cond conditions
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			cond.add("name ILIKE ? OR code ILIKE ?", val, val)
		}
		if filter.IsActive != nil {
			cond.add("is_active = ?", *filter.IsActive)
		}
	}

	exec := r.exec(ctx)
	q := exec.Rebind(`SELECT ` + schoolColumns + ` FROM schools` + cond.String() + orderClause(ordering, "name ASC"))
	var rows []schoolRow
	if err := sqlx.SelectContext(ctx, exec, &rows, q, cond.args...); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.school())
	}
	return schools, nil
}

func (r *schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	var row schoolRow
	if err := sqlx.GetContext(ctx, r.exec(ctx), &row, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id); err != nil {
		return school.School{}, trapNoRows(err, school.ErrNotFound, "getting school")
	}
	return row.school(), nil
}

func (r *schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	res, err := r.exec(ctx).ExecContext(ctx,
		`UPDATE schools SET name = $2, code = $3, address = $4, is_active = $5, updated_at = $6 WHERE id = $1`,
		sch.ID, sch.Name, sch.Code, sch.Address, sch.IsActive, sch.UpdatedAt.UTC())
	if err != nil {
		if isConstraintViolation(err, uniqueViolation, "schools_code_key") {
			return school.School{}, school.ErrCodeExists
		}
		return school.School{}, errors.Wrap(err, "updating school")
	}
	if err = mustAffect(res, school.ErrNotFound); err != nil {
		return school.School{}, err
	}
	return sch, nil
}

func (r *schoolRepository) DeleteSchool(ctx context.Context, id string) error {
	res, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		if isConstraintViolation(err, foreignKeyViolation, "") {
			return school.ErrHasStudents
		}
		return errors.Wrap(err, "deleting school")
	}
	return mustAffect(res, school.ErrNotFound)
}

func (r *schoolRepository) ClassNameExists(ctx context.Context, schoolID, name string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.exec(ctx), &exists,
		`SELECT EXISTS (SELECT 1 FROM classes WHERE school_id = $1 AND name = $2)`, schoolID, name)
	return exists, errors.Wrap(err, "checking class name")
}

func (r *schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	_, err := r.exec(ctx).ExecContext(ctx,
		`INSERT INTO classes (`+classColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		cls.ID, cls.SchoolID, cls.Name, cls.Grade, cls.CreatedAt.UTC())
	if err != nil {
		switch {
		case isConstraintViolation(err, uniqueViolation, "classes_school_name_key"):
			return school.Class{}, school.ErrClassExists
		case isConstraintViolation(err, foreignKeyViolation, ""):
			return school.Class{}, school.ErrNotFound
		}
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (r *schoolRepository) QueryClasses(ctx context.Context, schoolID string) ([]school.Class, error) {
	var rows []classRow
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &rows,
		`SELECT `+classColumns+` FROM classes WHERE school_id = $1 ORDER BY name`, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.class())
	}
	return classes, nil
}

func (r *schoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	var row classRow
	if err := sqlx.GetContext(ctx, r.exec(ctx), &row, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id); err != nil {
		return school.Class{}, trapNoRows(err, school.ErrClassNotFound, "getting class")
	}
	return row.class(), nil
}

func (r *schoolRepository) DeleteClass(ctx context.Context, id string) error {
	res, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return mustAffect(res, school.ErrClassNotFound)
}
