package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/utulivu/core/goal"
)

type goalRepository struct {
	db *DB
}

var _ goal.Repository = (*goalRepository)(nil) // interface compliance check

func NewGoalRepository(db *DB) *goalRepository {
	return &goalRepository{db: db}
}

func (repo *goalRepository) CreateGoal(_ context.Context, g goal.Goal) (goal.Goal, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.goals[g.ID] = g
	return g, nil
}

func (repo *goalRepository) QueryGoals(_ context.Context, filter *goal.QueryFilter) ([]goal.Goal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	goals := make([]goal.Goal, 0)
	for _, g := range repo.db.goals {
		if filter != nil {
			if (filter.StudentID != "" && g.StudentID != filter.StudentID) ||
				(filter.IsCompleted != nil && g.IsCompleted != *filter.IsCompleted) {
				continue
			}
		}
		goals = append(goals, g)
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].CreatedAt.After(goals[j].CreatedAt) })
	return goals, nil
}

func (repo *goalRepository) GetGoal(_ context.Context, id string) (goal.Goal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if g, ok := repo.db.goals[id]; ok {
		return g, nil
	}
	return goal.Goal{}, goal.ErrNotFound
}

func (repo *goalRepository) UpdateGoal(_ context.Context, g goal.Goal) (goal.Goal, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.goals[g.ID]; !ok {
		return goal.Goal{}, goal.ErrNotFound
	}
	repo.db.goals[g.ID] = g
	return g, nil
}

func (repo *goalRepository) DeleteGoal(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.goals[id]; !ok {
		return goal.ErrNotFound
	}
	delete(repo.db.goals, id)
	return nil
}
