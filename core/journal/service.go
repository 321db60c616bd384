package journal

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/utulivu/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("journal entry")

	errContentRequired = core.NewValidationError(nil, core.FieldError{Field: "content", Error: contentRequiredText})
	errMediaRequired   = core.NewValidationError(nil, core.FieldError{Field: "media_url", Error: mediaRequiredText})
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry) (Entry, error)
		// QueryEntries returns the entries that are not deleted, newest first.
		QueryEntries(ctx context.Context, filter *QueryFilter) ([]Entry, error)
		// GetEntry ignores deleted entries.
		GetEntry(ctx context.Context, id string) (Entry, error)
		UpdateEntry(ctx context.Context, e Entry) (Entry, error)
		SoftDeleteEntry(ctx context.Context, e Entry) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, studentID string, ne NewEntry) (Entry, error) {
	now := core.NowFunc().UTC()
	e := Entry{
		ID:        uuid.New().String(),
		StudentID: studentID,
		Kind:      ne.Kind,
		Title:     ne.Title,
		Content:   ne.Content,
		Mood:      ne.Mood,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if e.Kind != KindWriting {
		e.MediaURL = ne.MediaURL
	}
	return svc.repo.CreateEntry(ctx, e)
}

func (svc *Service) Query(ctx context.Context, studentID string, filter QueryFilter) ([]Entry, error) {
	filter.StudentID = studentID
	return svc.repo.QueryEntries(ctx, &filter)
}

// Get returns the entry only to the student who wrote it.
func (svc *Service) Get(ctx context.Context, studentID, id string) (Entry, error) {
	e, err := svc.repo.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if e.StudentID != studentID {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (svc *Service) Update(ctx context.Context, e Entry, ue UpdateEntry) (Entry, error) {
	if ue.Title != "" {
		e.Title = ue.Title
	}
	if ue.Content != nil {
		if e.Kind == KindWriting && *ue.Content == "" {
			return Entry{}, errContentRequired
		}
		e.Content = *ue.Content
	}
	if ue.MediaURL != "" {
		if e.Kind == KindWriting {
			return Entry{}, core.NewValidationError(nil, core.FieldError{Field: "media_url", Error: "writing entries have no media"})
		}
		e.MediaURL = ue.MediaURL
	}
	if e.Kind != KindWriting && e.MediaURL == "" {
		return Entry{}, errMediaRequired
	}
	if ue.Mood != nil {
		e.Mood = *ue.Mood
	}
	e.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateEntry(ctx, e)
}

// Delete hides the entry. Deleted entries are kept but never returned.
func (svc *Service) Delete(ctx context.Context, e Entry) error {
	now := core.NowFunc().UTC()
	e.DeletedAt = &now
	return svc.repo.SoftDeleteEntry(ctx, e)
}
