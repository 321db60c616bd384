package goal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
)

var ErrNotFound = core.NewNotFoundError("goal")

type (
	Repository interface {
		CreateGoal(ctx context.Context, g Goal) (Goal, error)
		// QueryGoals returns the goals newest first.
		QueryGoals(ctx context.Context, filter *QueryFilter) ([]Goal, error)
		GetGoal(ctx context.Context, id string) (Goal, error)
		UpdateGoal(ctx context.Context, g Goal) (Goal, error)
		DeleteGoal(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func (svc *Service) Create(ctx context.Context, studentID string, ng NewGoal) (Goal, error) {
	now := core.NowFunc().UTC()
	return svc.repo.CreateGoal(ctx, Goal{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		Title:       ng.Title,
		Description: ng.Description,
		TargetDate:  dateOnly(ng.TargetDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, studentID string, filter QueryFilter) ([]Goal, error) {
	filter.StudentID = studentID
	return svc.repo.QueryGoals(ctx, &filter)
}

// Get returns the goal only to the student who set it.
func (svc *Service) Get(ctx context.Context, studentID, id string) (Goal, error) {
	g, err := svc.repo.GetGoal(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if g.StudentID != studentID {
		return Goal{}, ErrNotFound
	}
	return g, nil
}

func (svc *Service) Update(ctx context.Context, g Goal, ug UpdateGoal) (Goal, error) {
	if ug.Title != "" {
		g.Title = ug.Title
	}
	if ug.Description != nil {
		g.Description = *ug.Description
	}
	if ug.TargetDate != nil {
		g.TargetDate = dateOnly(ug.TargetDate)
	}
	g.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateGoal(ctx, g)
}

// ToggleComplete flips the completion of a goal, setting or clearing CompletedAt.
func (svc *Service) ToggleComplete(ctx context.Context, g Goal) (Goal, error) {
	now := core.NowFunc().UTC()
	g.IsCompleted = !g.IsCompleted
	if g.IsCompleted {
		g.CompletedAt = &now
	} else {
		g.CompletedAt = nil
	}
	g.UpdatedAt = now
	return svc.repo.UpdateGoal(ctx, g)
}

func (svc *Service) Delete(ctx context.Context, g Goal) error {
	return svc.repo.DeleteGoal(ctx, g.ID)
}

func (svc *Service) Counts(ctx context.Context, studentID string) (Counts, error) {
	goals, err := svc.repo.QueryGoals(ctx, &QueryFilter{StudentID: studentID})
	if err != nil {
		return Counts{}, errors.Wrap(err, "querying goals")
	}
	var c Counts
	for _, g := range goals {
		if g.IsCompleted {
			c.Completed++
		} else {
			c.Active++
		}
	}
	return c, nil
}
