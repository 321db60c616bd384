package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
	"github.com/trezcool/utulivu/core/goal"
	"github.com/trezcool/utulivu/core/mood"
)

const averageDays = 7

// Dashboard is the overview a student lands on.
type Dashboard struct {
	TodayCheckin   *mood.Checkin `json:"today_checkin"`
	Streak         int           `json:"streak"`
	WeeklyAverage  float64       `json:"weekly_average"`
	ActiveGoals    int           `json:"active_goals"`
	CompletedGoals int           `json:"completed_goals"`
	LastSummary    *chat.Summary `json:"last_summary"`
}

type Service struct {
	moodSvc *mood.Service
	goalSvc *goal.Service
	chatSvc *chat.Service
}

func NewService(moodSvc *mood.Service, goalSvc *goal.Service, chatSvc *chat.Service) *Service {
	return &Service{moodSvc: moodSvc, goalSvc: goalSvc, chatSvc: chatSvc}
}

func (svc *Service) Get(ctx context.Context, studentID string) (Dashboard, error) {
	var d Dashboard

	today, err := svc.moodSvc.GetToday(ctx, studentID)
	switch {
	case err == nil:
		d.TodayCheckin = &today
	case !core.IsNotFound(err):
		return Dashboard{}, errors.Wrap(err, "finding today's check-in")
	}

	if d.Streak, err = svc.moodSvc.Streak(ctx, studentID); err != nil {
		return Dashboard{}, err
	}
	if d.WeeklyAverage, err = svc.moodSvc.AverageScore(ctx, studentID, averageDays); err != nil {
		return Dashboard{}, err
	}

	counts, err := svc.goalSvc.Counts(ctx, studentID)
	if err != nil {
		return Dashboard{}, err
	}
	d.ActiveGoals = counts.Active
	d.CompletedGoals = counts.Completed

	sum, err := svc.chatSvc.LatestSummary(ctx, studentID)
	switch {
	case err == nil:
		d.LastSummary = &sum
	case !core.IsNotFound(err):
		return Dashboard{}, errors.Wrap(err, "finding latest summary")
	}
	return d, nil
}
