package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/utulivu/core/journal"
)

type journalRepository struct {
	db *DB
}

var _ journal.Repository = (*journalRepository)(nil) // interface compliance check

func NewJournalRepository(db *DB) *journalRepository {
	return &journalRepository{db: db}
}

func (repo *journalRepository) CreateEntry(_ context.Context, e journal.Entry) (journal.Entry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.entries[e.ID] = e
	return e, nil
}

func (repo *journalRepository) QueryEntries(_ context.Context, filter *journal.QueryFilter) ([]journal.Entry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	entries := make([]journal.Entry, 0)
	for _, e := range repo.db.entries {
		if e.DeletedAt != nil {
			continue
		}
		if filter != nil {
			if (filter.StudentID != "" && e.StudentID != filter.StudentID) ||
				(filter.Kind != "" && e.Kind != filter.Kind) {
				continue
			}
			if filter.Search != "" && !containsFold(e.Title, filter.Search) && !containsFold(e.Content, filter.Search) {
				continue
			}
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

func (repo *journalRepository) GetEntry(_ context.Context, id string) (journal.Entry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.entries[id]; ok && e.DeletedAt == nil {
		return e, nil
	}
	return journal.Entry{}, journal.ErrNotFound
}

func (repo *journalRepository) UpdateEntry(_ context.Context, e journal.Entry) (journal.Entry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if orig, ok := repo.db.entries[e.ID]; !ok || orig.DeletedAt != nil {
		return journal.Entry{}, journal.ErrNotFound
	}
	repo.db.entries[e.ID] = e
	return e, nil
}

func (repo *journalRepository) SoftDeleteEntry(_ context.Context, e journal.Entry) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if orig, ok := repo.db.entries[e.ID]; !ok || orig.DeletedAt != nil {
		return journal.ErrNotFound
	}
	repo.db.entries[e.ID] = e
	return nil
}
