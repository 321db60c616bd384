package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/mood"
)

const checkinColumns = `id, student_id, school_id, mood, score, note, triggers, checkin_date, created_at`

type checkinRow struct {
	ID          string         `db:"id"`
	StudentID   string         `db:"student_id"`
	SchoolID    string         `db:"school_id"`
	Mood        string         `db:"mood"`
	Score       int            `db:"score"`
	Note        string         `db:"note"`
	Triggers    pq.StringArray `db:"triggers"`
	CheckinDate time.Time      `db:"checkin_date"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (row checkinRow) checkin() mood.Checkin {
	trigs := []string(row.Triggers)
	if trigs == nil {
		trigs = []string{}
	}
	return mood.Checkin{
		ID:          row.ID,
		StudentID:   row.StudentID,
		SchoolID:    row.SchoolID,
		Mood:        row.Mood,
		Score:       row.Score,
		Note:        row.Note,
		Triggers:    trigs,
		CheckinDate: utcDate(row.CheckinDate),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

func utcDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dailyStatRow and triggerStatRow are bound by sqlboiler, which maps columns with the boil tag.
type dailyStatRow struct {
	Day   time.Time `boil:"day"`
	Mood  string    `boil:"mood"`
	Count int       `boil:"count"`
}

type triggerStatRow struct {
	Trigger string `boil:"trigger"`
	Count   int    `boil:"count"`
}

type moodRepository struct {
	repo
}

var _ mood.Repository = (*moodRepository)(nil) // interface compliance check

func NewMoodRepository(db core.DBExecutor) *moodRepository {
	return &moodRepository{repo{db: db}}
}

func (r *moodRepository) CreateCheckin(ctx context.Context, c mood.Checkin) (mood.Checkin, error) {
	_, err := r.exec(ctx).ExecContext(ctx,
		`INSERT INTO mood_checkins (`+checkinColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.StudentID, c.SchoolID, c.Mood, c.Score, c.Note, pq.StringArray(c.Triggers), c.CheckinDate, c.CreatedAt.UTC())
	if err != nil {
		if isConstraintViolation(err, uniqueViolation, "mood_checkins_student_day_key") {
			return mood.Checkin{}, mood.ErrAlreadyCheckedIn
		}
		return mood.Checkin{}, errors.Wrap(err, "inserting check-in")
	}
	return c, nil
}

func (r *moodRepository) GetCheckin(ctx context.Context, studentID string, date time.Time) (mood.Checkin, error) {
	var row checkinRow
	err := sqlx.GetContext(ctx, r.exec(ctx), &row,
		`SELECT `+checkinColumns+` FROM mood_checkins WHERE student_id = $1 AND checkin_date = $2`, studentID, date)
	if err != nil {
		return mood.Checkin{}, trapNoRows(err, mood.ErrNotFound, "getting check-in")
	}
	return row.checkin(), nil
}

func (r *moodRepository) QueryCheckins(ctx context.Context, studentID string, from, to time.Time) ([]mood.Checkin, error) {
	var cond conditions
	cond.add("student_id = ?", studentID)
	if !from.IsZero() {
		cond.add("checkin_date >= ?", from)
	}
	if !to.IsZero() {
		cond.add("checkin_date <= ?", to)
	}

	exec := r.exec(ctx)
	var rows []checkinRow
	q := exec.Rebind(`SELECT ` + checkinColumns + ` FROM mood_checkins` + cond.String() + ` ORDER BY checkin_date DESC`)
	if err := sqlx.SelectContext(ctx, exec, &rows, q, cond.args...); err != nil {
		return nil, errors.Wrap(err, "querying check-ins")
	}
	checkins := make([]mood.Checkin, 0, len(rows))
	for _, row := range rows {
		checkins = append(checkins, row.checkin())
	}
	return checkins, nil
}

func (r *moodRepository) CheckinDates(ctx context.Context, studentID string, since time.Time) ([]time.Time, error) {
	var days []time.Time
	err := sqlx.SelectContext(ctx, r.exec(ctx), &days,
		`SELECT checkin_date FROM mood_checkins WHERE student_id = $1 AND checkin_date >= $2 ORDER BY checkin_date DESC`,
		studentID, since)
	if err != nil {
		return nil, errors.Wrap(err, "querying check-in dates")
	}
	for i, d := range days {
		days[i] = utcDate(d)
	}
	return days, nil
}

// statsConditions scopes the aggregate queries; placeholders are numbered from $1.
func statsConditions(filter mood.StatsFilter) (string, []interface{}) {
	var cond conditions
	if filter.StudentID != "" {
		cond.add("student_id = ?", filter.StudentID)
	}
	if filter.SchoolID != "" {
		cond.add("school_id = ?", filter.SchoolID)
	}
	if !filter.From.IsZero() {
		cond.add("checkin_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		cond.add("checkin_date <= ?", filter.To)
	}
	return sqlx.Rebind(sqlx.DOLLAR, cond.String()), cond.args
}

func (r *moodRepository) DailyStats(ctx context.Context, filter mood.StatsFilter) ([]mood.DailyStat, error) {
	where, args := statsConditions(filter)
	var rows []dailyStatRow
	err := queries.Raw(`
		SELECT checkin_date AS day, mood, COUNT(*) AS count
		FROM mood_checkins`+where+`
		GROUP BY checkin_date, mood
		ORDER BY checkin_date, mood`, args...).Bind(ctx, r.exec(ctx), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying daily stats")
	}
	stats := make([]mood.DailyStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, mood.DailyStat{Date: utcDate(row.Day), Mood: row.Mood, Count: row.Count})
	}
	return stats, nil
}

func (r *moodRepository) TriggerStats(ctx context.Context, filter mood.StatsFilter) ([]mood.TriggerStat, error) {
	where, args := statsConditions(filter)
	var rows []triggerStatRow
	err := queries.Raw(`
		SELECT t.trigger, COUNT(*) AS count
		FROM mood_checkins, UNNEST(triggers) AS t(trigger)`+where+`
		GROUP BY t.trigger
		ORDER BY count DESC, t.trigger`, args...).Bind(ctx, r.exec(ctx), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying trigger stats")
	}
	stats := make([]mood.TriggerStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, mood.TriggerStat{Trigger: row.Trigger, Count: row.Count})
	}
	return stats, nil
}

func (r *moodRepository) Participation(ctx context.Context, filter mood.StatsFilter) (int, error) {
	where, args := statsConditions(filter)
	var n int
	err := sqlx.GetContext(ctx, r.exec(ctx), &n, `SELECT COUNT(DISTINCT student_id) FROM mood_checkins`+where, args...)
	return n, errors.Wrap(err, "counting participation")
}
