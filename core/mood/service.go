package mood

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("mood check-in")
	ErrAlreadyCheckedIn = core.NewConflictError("you have already checked in today")
)

type (
	Repository interface {
		// CreateCheckin returns ErrAlreadyCheckedIn if the student already has a check-in on that day.
		CreateCheckin(ctx context.Context, c Checkin) (Checkin, error)
		GetCheckin(ctx context.Context, studentID string, date time.Time) (Checkin, error)
		// QueryCheckins returns the student's check-ins between from and to (inclusive, zero means unbounded),
		// newest first.
		QueryCheckins(ctx context.Context, studentID string, from, to time.Time) ([]Checkin, error)
		// CheckinDates returns the calendar days of the student's latest check-ins on or after since.
		CheckinDates(ctx context.Context, studentID string, since time.Time) ([]time.Time, error)

		DailyStats(ctx context.Context, filter StatsFilter) ([]DailyStat, error)
		TriggerStats(ctx context.Context, filter StatsFilter) ([]TriggerStat, error)
		// Participation counts the distinct students with at least one check-in.
		Participation(ctx context.Context, filter StatsFilter) (int, error)
	}

	Service struct {
		repo Repository
		loc  *time.Location
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{
		repo: repo,
		loc:  conf.Location(),
	}
}

// Today is the current calendar day in the configured timezone.
func (svc *Service) Today() time.Time {
	return core.CalendarDate(core.NowFunc(), svc.loc)
}

// Checkin records today's mood of a student. There can only be one check-in per day.
func (svc *Service) Checkin(ctx context.Context, studentID, schoolID string, nc NewCheckin) (Checkin, error) {
	today := svc.Today()

	if _, err := svc.repo.GetCheckin(ctx, studentID, today); err == nil {
		return Checkin{}, ErrAlreadyCheckedIn
	} else if !core.IsNotFound(err) {
		return Checkin{}, errors.Wrap(err, "finding today's check-in")
	}

	trigs := nc.Triggers
	if trigs == nil {
		trigs = []string{}
	}
	return svc.repo.CreateCheckin(ctx, Checkin{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		SchoolID:    schoolID,
		Mood:        nc.Mood,
		Score:       Score(nc.Mood),
		Note:        nc.Note,
		Triggers:    trigs,
		CheckinDate: today,
		CreatedAt:   core.NowFunc().UTC(),
	})
}

func (svc *Service) GetToday(ctx context.Context, studentID string) (Checkin, error) {
	return svc.repo.GetCheckin(ctx, studentID, svc.Today())
}

func (svc *Service) History(ctx context.Context, studentID string, filter HistoryFilter) ([]Checkin, error) {
	var from, to time.Time
	if !filter.From.IsZero() {
		from = core.CalendarDate(filter.From, svc.loc)
	}
	if !filter.To.IsZero() {
		to = core.CalendarDate(filter.To, svc.loc)
	}
	return svc.repo.QueryCheckins(ctx, studentID, from, to)
}

func (svc *Service) window(days int) (from, to time.Time) {
	to = svc.Today()
	from = to.AddDate(0, 0, -(WindowDays(days) - 1))
	return from, to
}

// Streak counts the consecutive days the student checked in, ending today or yesterday.
func (svc *Service) Streak(ctx context.Context, studentID string) (int, error) {
	today := svc.Today()
	dates, err := svc.repo.CheckinDates(ctx, studentID, today.AddDate(0, 0, -streakLookbackDays))
	if err != nil {
		return 0, errors.Wrap(err, "querying check-in dates")
	}
	return Streak(dates, today), nil
}

func (svc *Service) StudentAnalytics(ctx context.Context, studentID string, days int) (StudentAnalytics, error) {
	from, to := svc.window(days)
	filter := StatsFilter{StudentID: studentID, From: from, To: to}

	an, err := svc.analytics(ctx, filter)
	if err != nil {
		return StudentAnalytics{}, err
	}
	streak, err := svc.Streak(ctx, studentID)
	if err != nil {
		return StudentAnalytics{}, err
	}
	return StudentAnalytics{Analytics: an, Streak: streak}, nil
}

func (svc *Service) SchoolAnalytics(ctx context.Context, schoolID string, days int) (SchoolAnalytics, error) {
	from, to := svc.window(days)
	filter := StatsFilter{SchoolID: schoolID, From: from, To: to}

	an, err := svc.analytics(ctx, filter)
	if err != nil {
		return SchoolAnalytics{}, err
	}
	participation, err := svc.repo.Participation(ctx, filter)
	if err != nil {
		return SchoolAnalytics{}, errors.Wrap(err, "counting participation")
	}
	return SchoolAnalytics{Analytics: an, Participation: participation}, nil
}

func (svc *Service) analytics(ctx context.Context, filter StatsFilter) (Analytics, error) {
	daily, err := svc.repo.DailyStats(ctx, filter)
	if err != nil {
		return Analytics{}, errors.Wrap(err, "querying daily stats")
	}
	trigs, err := svc.repo.TriggerStats(ctx, filter)
	if err != nil {
		return Analytics{}, errors.Wrap(err, "querying trigger stats")
	}
	return BuildAnalytics(filter.From, filter.To, daily, trigs), nil
}

// AverageScore returns the average score of the student over the last days, 0 without check-ins.
func (svc *Service) AverageScore(ctx context.Context, studentID string, days int) (float64, error) {
	from, to := svc.window(days)
	daily, err := svc.repo.DailyStats(ctx, StatsFilter{StudentID: studentID, From: from, To: to})
	if err != nil {
		return 0, errors.Wrap(err, "querying daily stats")
	}
	return BuildAnalytics(from, to, daily, nil).AverageScore, nil
}
