package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/student"
)

const studentColumns = `id, user_id, school_id, class_id, student_number, name, email, gender, date_of_birth, created_at, updated_at`

type studentRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	SchoolID      string      `db:"school_id"`
	ClassID       null.String `db:"class_id"`
	StudentNumber string      `db:"student_number"`
	Name          string      `db:"name"`
	Email         string      `db:"email"`
	Gender        string      `db:"gender"`
	DateOfBirth   null.Time   `db:"date_of_birth"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func toStudentRow(st student.Student) studentRow {
	return studentRow{
		ID:            st.ID,
		UserID:        st.UserID,
		SchoolID:      st.SchoolID,
		ClassID:       null.NewString(st.ClassID, st.ClassID != ""),
		StudentNumber: st.StudentNumber,
		Name:          st.Name,
		Email:         st.Email,
		Gender:        st.Gender,
		DateOfBirth:   null.TimeFromPtr(st.DateOfBirth),
		CreatedAt:     st.CreatedAt.UTC(),
		UpdatedAt:     st.UpdatedAt.UTC(),
	}
}

func (row studentRow) student() student.Student {
	return student.Student{
		ID:            row.ID,
		UserID:        row.UserID,
		SchoolID:      row.SchoolID,
		ClassID:       row.ClassID.String,
		StudentNumber: row.StudentNumber,
		Name:          row.Name,
		Email:         row.Email,
		Gender:        row.Gender,
		DateOfBirth:   datePtr(row.DateOfBirth),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

// datePtr returns a DATE column as a UTC midnight.
func datePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	d := time.Date(t.Time.Year(), t.Time.Month(), t.Time.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

type studentRepository struct {
	repo
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DBExecutor) *studentRepository {
	return &studentRepository{repo{db: db}}
}

func (r *studentRepository) StudentNumberExists(ctx context.Context, number, excludedID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.exec(ctx), &exists,
		`SELECT EXISTS (SELECT 1 FROM students WHERE student_number = $1 AND id::text <> $2)`, number, excludedID)
	return exists, errors.Wrap(err, "checking student number")
}

func (r *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	row := toStudentRow(st)
	_, err := sqlx.NamedExecContext(ctx, r.exec(ctx), `
		INSERT INTO students (`+studentColumns+`)
		VALUES (:id, :user_id, :school_id, :class_id, :student_number, :name, :email, :gender, :date_of_birth, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isConstraintViolation(err, uniqueViolation, "students_student_number_key") {
			return student.Student{}, student.ErrStudentNumberExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return row.student(), nil
}

func (r *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var cond conditions
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			cond.add("name ILIKE ? OR student_number ILIKE ? OR email ILIKE ?", val, val, val)
		}
		if filter.SchoolID != "" {
			cond.add("school_id = ?", filter.SchoolID)
		}
		if filter.ClassID != "" {
			cond.add("class_id = ?", filter.ClassID)
		}
		if filter.Gender != "" {
			cond.add("gender = ?", filter.Gender)
		}
	}

	exec := r.exec(ctx)
	q := exec.Rebind(`SELECT ` + studentColumns + ` FROM students` + cond.String() + orderClause(ordering, "name ASC"))
	var rows []studentRow
	if err := sqlx.SelectContext(ctx, exec, &rows, q, cond.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (r *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var where, arg string
	switch {
	case filter.ID != "":
		where, arg = "id = $1", filter.ID
	case filter.UserID != "":
		where, arg = "user_id = $1", filter.UserID
	case filter.StudentNumber != "":
		where, arg = "student_number = $1", filter.StudentNumber
	default:
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	if err := sqlx.GetContext(ctx, r.exec(ctx), &row, `SELECT `+studentColumns+` FROM students WHERE `+where, arg); err != nil {
		return student.Student{}, trapNoRows(err, student.ErrNotFound, "getting student")
	}
	return row.student(), nil
}

func (r *studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	row := toStudentRow(st)
	res, err := sqlx.NamedExecContext(ctx, r.exec(ctx), `
		UPDATE students SET
			class_id = :class_id, student_number = :student_number, name = :name, email = :email,
			gender = :gender, date_of_birth = :date_of_birth, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		if isConstraintViolation(err, uniqueViolation, "students_student_number_key") {
			return student.Student{}, student.ErrStudentNumberExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = mustAffect(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return row.student(), nil
}

func (r *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return mustAffect(res, student.ErrNotFound)
}
