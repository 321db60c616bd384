package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/journal"
)

const entryColumns = `id, student_id, kind, title, content, media_url, mood, created_at, updated_at, deleted_at`

type entryRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	Kind      string    `db:"kind"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	MediaURL  string    `db:"media_url"`
	Mood      string    `db:"mood"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	DeletedAt null.Time `db:"deleted_at"`
}

func toEntryRow(e journal.Entry) entryRow {
	return entryRow{
		ID:        e.ID,
		StudentID: e.StudentID,
		Kind:      e.Kind,
		Title:     e.Title,
		Content:   e.Content,
		MediaURL:  e.MediaURL,
		Mood:      e.Mood,
		CreatedAt: e.CreatedAt.UTC(),
		UpdatedAt: e.UpdatedAt.UTC(),
		DeletedAt: null.TimeFromPtr(e.DeletedAt),
	}
}

func (row entryRow) entry() journal.Entry {
	return journal.Entry{
		ID:        row.ID,
		StudentID: row.StudentID,
		Kind:      row.Kind,
		Title:     row.Title,
		Content:   row.Content,
		MediaURL:  row.MediaURL,
		Mood:      row.Mood,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
		DeletedAt: utcPtr(row.DeletedAt),
	}
}

type journalRepository struct {
	repo
}

var _ journal.Repository = (*journalRepository)(nil) // interface compliance check

func NewJournalRepository(db core.DBExecutor) *journalRepository {
	return &journalRepository{repo{db: db}}
}

func (r *journalRepository) CreateEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	row := toEntryRow(e)
	_, err := sqlx.NamedExecContext(ctx, r.exec(ctx), `
		INSERT INTO journal_entries (`+entryColumns+`)
		VALUES (:id, :student_id, :kind, :title, :content, :media_url, :mood, :created_at, :updated_at, :deleted_at)`,
		row)
	if err != nil {
		return journal.Entry{}, errors.Wrap(err, "inserting journal entry")
	}
	return row.entry(), nil
}

func (r *journalRepository) QueryEntries(ctx context.Context, filter *journal.QueryFilter) ([]journal.Entry, error) {
	var cond conditions
	cond.add("deleted_at IS NULL")
	if filter != nil {
		if filter.StudentID != "" {
			cond.add("student_id = ?", filter.StudentID)
		}
		if filter.Kind != "" {
			cond.add("kind = ?", filter.Kind)
		}
		if filter.Search != "" {
			val := likePattern(filter.Search)
			cond.add("title ILIKE ? OR content ILIKE ?", val, val)
		}
	}

	exec := r.exec(ctx)
	q := exec.Rebind(`SELECT ` + entryColumns + ` FROM journal_entries` + cond.String() + ` ORDER BY created_at DESC`)
	var rows []entryRow
	if err := sqlx.SelectContext(ctx, exec, &rows, q, cond.args...); err != nil {
		return nil, errors.Wrap(err, "querying journal entries")
	}
	entries := make([]journal.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (r *journalRepository) GetEntry(ctx context.Context, id string) (journal.Entry, error) {
	var row entryRow
	err := sqlx.GetContext(ctx, r.exec(ctx), &row,
		`SELECT `+entryColumns+` FROM journal_entries WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return journal.Entry{}, trapNoRows(err, journal.ErrNotFound, "getting journal entry")
	}
	return row.entry(), nil
}

func (r *journalRepository) UpdateEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	row := toEntryRow(e)
	res, err := sqlx.NamedExecContext(ctx, r.exec(ctx), `
		UPDATE journal_entries SET title = :title, content = :content, media_url = :media_url, mood = :mood,
			updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		return journal.Entry{}, errors.Wrap(err, "updating journal entry")
	}
	if err = mustAffect(res, journal.ErrNotFound); err != nil {
		return journal.Entry{}, err
	}
	return row.entry(), nil
}

func (r *journalRepository) SoftDeleteEntry(ctx context.Context, e journal.Entry) error {
	res, err := r.exec(ctx).ExecContext(ctx,
		`UPDATE journal_entries SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		e.ID, null.TimeFromPtr(e.DeletedAt))
	if err != nil {
		return errors.Wrap(err, "deleting journal entry")
	}
	return mustAffect(res, journal.ErrNotFound)
}
