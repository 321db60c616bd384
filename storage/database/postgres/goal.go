package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/goal"
)

const goalColumns = `id, student_id, title, description, target_date, is_completed, completed_at, created_at, updated_at`

type goalRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	TargetDate  null.Time `db:"target_date"`
	IsCompleted bool      `db:"is_completed"`
	CompletedAt null.Time `db:"completed_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toGoalRow(g goal.Goal) goalRow {
	return goalRow{
		ID:          g.ID,
		StudentID:   g.StudentID,
		Title:       g.Title,
		Description: g.Description,
		TargetDate:  null.TimeFromPtr(g.TargetDate),
		IsCompleted: g.IsCompleted,
		CompletedAt: null.TimeFromPtr(g.CompletedAt),
		CreatedAt:   g.CreatedAt.UTC(),
		UpdatedAt:   g.UpdatedAt.UTC(),
	}
}

func (row goalRow) goal() goal.Goal {
	return goal.Goal{
		ID:          row.ID,
		StudentID:   row.StudentID,
		Title:       row.Title,
		Description: row.Description,
		TargetDate:  datePtr(row.TargetDate),
		IsCompleted: row.IsCompleted,
		CompletedAt: utcPtr(row.CompletedAt),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type goalRepository struct {
	repo
}

var _ goal.Repository = (*goalRepository)(nil) // interface compliance check

func NewGoalRepository(db core.DBExecutor) *goalRepository {
	return &goalRepository{repo{db: db}}
}

func (r *goalRepository) CreateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	row := toGoalRow(g)
	_, err := sqlx.NamedExecContext(ctx, r.exec(ctx), `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (:id, :student_id, :title, :description, :target_date, :is_completed, :completed_at, :created_at, :updated_at)`,
		row)
	if err != nil {
		return goal.Goal{}, errors.Wrap(err, "inserting goal")
	}
	return row.goal(), nil
}

func (r *goalRepository) QueryGoals(ctx context.Context, filter *goal.QueryFilter) ([]goal.Goal, error) {
	var cond conditions
	if filter != nil {
		if filter.StudentID != "" {
			cond.add("student_id = ?", filter.StudentID)
		}
		if filter.IsCompleted != nil {
			cond.add("is_completed = ?", *filter.IsCompleted)
		}
	}

	exec := r.exec(ctx)
	q := exec.Rebind(`SELECT ` + goalColumns + ` FROM goals` + cond.String() + ` ORDER BY created_at DESC`)
	var rows []goalRow
	if err := sqlx.SelectContext(ctx, exec, &rows, q, cond.args...); err != nil {
		return nil, errors.Wrap(err, "querying goals")
	}
	goals := make([]goal.Goal, 0, len(rows))
	for _, row := range rows {
		goals = append(goals, row.goal())
	}
	return goals, nil
}

func (r *goalRepository) GetGoal(ctx context.Context, id string) (goal.Goal, error) {
	var row goalRow
	if err := sqlx.GetContext(ctx, r.exec(ctx), &row, `SELECT `+goalColumns+` FROM goals WHERE id = $1`, id); err != nil {
		return goal.Goal{}, trapNoRows(err, goal.ErrNotFound, "getting goal")
	}
	return row.goal(), nil
}

func (r *goalRepository) UpdateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	row := toGoalRow(g)
	res, err := sqlx.NamedExecContext(ctx, r.exec(ctx), `
		UPDATE goals SET title = :title, description = :description, target_date = :target_date,
			is_completed = :is_completed, completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return goal.Goal{}, errors.Wrap(err, "updating goal")
	}
	if err = mustAffect(res, goal.ErrNotFound); err != nil {
		return goal.Goal{}, err
	}
	return row.goal(), nil
}

func (r *goalRepository) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting goal")
	}
	return mustAffect(res, goal.ErrNotFound)
}
