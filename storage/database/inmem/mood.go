package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/utulivu/core/mood"
)

type moodRepository struct {
	db *DB
}

var _ mood.Repository = (*moodRepository)(nil) // interface compliance check

func NewMoodRepository(db *DB) *moodRepository {
	return &moodRepository{db: db}
}

func copyCheckin(c mood.Checkin) mood.Checkin {
	c.Triggers = cloneStrings(c.Triggers)
	return c
}

func (repo *moodRepository) CreateCheckin(_ context.Context, c mood.Checkin) (mood.Checkin, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.checkins {
		if existing.StudentID == c.StudentID && existing.CheckinDate.Equal(c.CheckinDate) {
			return mood.Checkin{}, mood.ErrAlreadyCheckedIn
		}
	}
	repo.db.checkins = append(repo.db.checkins, copyCheckin(c))
	return copyCheckin(c), nil
}

func (repo *moodRepository) GetCheckin(_ context.Context, studentID string, date time.Time) (mood.Checkin, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, c := range repo.db.checkins {
		if c.StudentID == studentID && c.CheckinDate.Equal(date) {
			return copyCheckin(c), nil
		}
	}
	return mood.Checkin{}, mood.ErrNotFound
}

func (repo *moodRepository) QueryCheckins(_ context.Context, studentID string, from, to time.Time) ([]mood.Checkin, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	checkins := make([]mood.Checkin, 0)
	for _, c := range repo.db.checkins {
		if c.StudentID == studentID && inRange(c.CheckinDate, from, to) {
			checkins = append(checkins, copyCheckin(c))
		}
	}
	sort.SliceStable(checkins, func(i, j int) bool { return checkins[i].CheckinDate.After(checkins[j].CheckinDate) })
	return checkins, nil
}

func (repo *moodRepository) CheckinDates(_ context.Context, studentID string, since time.Time) ([]time.Time, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	dates := make([]time.Time, 0)
	for _, c := range repo.db.checkins {
		if c.StudentID == studentID && !c.CheckinDate.Before(since) {
			dates = append(dates, c.CheckinDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

// filtered returns the check-ins selected by filter. db.mu must be held.
func (repo *moodRepository) filtered(filter mood.StatsFilter) []mood.Checkin {
	res := make([]mood.Checkin, 0)
	for _, c := range repo.db.checkins {
		if (filter.StudentID != "" && c.StudentID != filter.StudentID) ||
			(filter.SchoolID != "" && c.SchoolID != filter.SchoolID) ||
			!inRange(c.CheckinDate, filter.From, filter.To) {
			continue
		}
		res = append(res, c)
	}
	return res
}

func (repo *moodRepository) DailyStats(_ context.Context, filter mood.StatsFilter) ([]mood.DailyStat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	type key struct {
		date time.Time
		mood string
	}
	counts := make(map[key]int)
	for _, c := range repo.filtered(filter) {
		counts[key{date: c.CheckinDate, mood: c.Mood}]++
	}

	stats := make([]mood.DailyStat, 0, len(counts))
	for k, n := range counts {
		stats = append(stats, mood.DailyStat{Date: k.date, Mood: k.mood, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if !stats[i].Date.Equal(stats[j].Date) {
			return stats[i].Date.Before(stats[j].Date)
		}
		return stats[i].Mood < stats[j].Mood
	})
	return stats, nil
}

func (repo *moodRepository) TriggerStats(_ context.Context, filter mood.StatsFilter) ([]mood.TriggerStat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range repo.filtered(filter) {
		for _, t := range c.Triggers {
			counts[t]++
		}
	}

	stats := make([]mood.TriggerStat, 0, len(counts))
	for t, n := range counts {
		stats = append(stats, mood.TriggerStat{Trigger: t, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Trigger < stats[j].Trigger
	})
	return stats, nil
}

func (repo *moodRepository) Participation(_ context.Context, filter mood.StatsFilter) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make(map[string]bool)
	for _, c := range repo.filtered(filter) {
		students[c.StudentID] = true
	}
	return len(students), nil
}
