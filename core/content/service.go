package content

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
)

var (
	// errors
	ErrCategoryNotFound = core.NewNotFoundError("category")
	ErrResourceNotFound = core.NewNotFoundError("resource")
	ErrCategoryExists   = errors.New("a category with this name already exists")
	ErrCategoryInUse    = core.NewConflictError("category still has resources")

	errCategoryKindText = "category does not exist for this kind"
)

const defaultRecommendations = 6

type (
	Repository interface {
		// CategoryExists reports whether a category other than excludedID has this kind and name.
		CategoryExists(ctx context.Context, kind, name, excludedID string) (bool, error)
		CreateCategory(ctx context.Context, c Category) (Category, error)
		QueryCategories(ctx context.Context, kind string) ([]Category, error)
		GetCategory(ctx context.Context, id string) (Category, error)
		UpdateCategory(ctx context.Context, c Category) (Category, error)
		// DeleteCategory returns ErrCategoryInUse if resources still belong to it.
		DeleteCategory(ctx context.Context, id string) error

		CreateResource(ctx context.Context, r Resource) (Resource, error)
		// QueryResources returns the resources newest first.
		QueryResources(ctx context.Context, filter *QueryFilter) ([]Resource, error)
		GetResource(ctx context.Context, id string) (Resource, error)
		UpdateResource(ctx context.Context, r Resource) (Resource, error)
		DeleteResource(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkCategoryName(ctx context.Context, kind, name, excludedID string) error {
	exists, err := svc.repo.CategoryExists(ctx, kind, name, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking category name")
	}
	if exists {
		return core.NewValidationError(ErrCategoryExists, core.FieldError{Field: "name", Error: ErrCategoryExists.Error()})
	}
	return nil
}

func (svc *Service) checkCategory(ctx context.Context, kind, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	cat, err := svc.repo.GetCategory(ctx, categoryID)
	if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "finding category")
	}
	if err != nil || cat.Kind != kind {
		return core.NewValidationError(nil, core.FieldError{Field: "category_id", Error: errCategoryKindText})
	}
	return nil
}

func (svc *Service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	if err := svc.checkCategoryName(ctx, nc.Kind, nc.Name, ""); err != nil {
		return Category{}, err
	}
	return svc.repo.CreateCategory(ctx, Category{
		ID:        uuid.New().String(),
		Name:      nc.Name,
		Kind:      nc.Kind,
		CreatedAt: core.NowFunc().UTC(),
	})
}

func (svc *Service) QueryCategories(ctx context.Context, kind string) ([]Category, error) {
	return svc.repo.QueryCategories(ctx, core.CleanString(kind, true /* lower */))
}

func (svc *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	return svc.repo.GetCategory(ctx, id)
}

func (svc *Service) UpdateCategory(ctx context.Context, cat Category, uc UpdateCategory) (Category, error) {
	if err := svc.checkCategoryName(ctx, cat.Kind, uc.Name, cat.ID); err != nil {
		return Category{}, err
	}
	cat.Name = uc.Name
	return svc.repo.UpdateCategory(ctx, cat)
}

func (svc *Service) DeleteCategory(ctx context.Context, id string) error {
	return svc.repo.DeleteCategory(ctx, id)
}

func (svc *Service) CreateResource(ctx context.Context, nr NewResource) (Resource, error) {
	if err := svc.checkCategory(ctx, nr.Kind, nr.CategoryID); err != nil {
		return Resource{}, err
	}
	tags := nr.MoodTags
	if tags == nil {
		tags = []string{}
	}
	now := core.NowFunc().UTC()
	return svc.repo.CreateResource(ctx, Resource{
		ID:              uuid.New().String(),
		Kind:            nr.Kind,
		Title:           nr.Title,
		Description:     nr.Description,
		CategoryID:      nr.CategoryID,
		URL:             nr.URL,
		ImageURL:        nr.ImageURL,
		Artist:          nr.Artist,
		DurationSeconds: nr.DurationSeconds,
		MoodTags:        tags,
		IsPublished:     nr.IsPublished,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *Service) QueryResources(ctx context.Context, filter QueryFilter) ([]Resource, error) {
	return svc.repo.QueryResources(ctx, &filter)
}

// GetResource hides unpublished resources unless withUnpublished is set.
func (svc *Service) GetResource(ctx context.Context, id string, withUnpublished bool) (Resource, error) {
	r, err := svc.repo.GetResource(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	if !r.IsPublished && !withUnpublished {
		return Resource{}, ErrResourceNotFound
	}
	return r, nil
}

func (svc *Service) UpdateResource(ctx context.Context, r Resource, ur UpdateResource) (Resource, error) {
	if ur.CategoryID != nil {
		catID := core.CleanString(*ur.CategoryID, true /* lower */)
		if err := svc.checkCategory(ctx, r.Kind, catID); err != nil {
			return Resource{}, err
		}
		r.CategoryID = catID
	}
	if ur.Title != "" {
		r.Title = ur.Title
	}
	if ur.Description != nil {
		r.Description = core.CleanString(*ur.Description)
	}
	if ur.URL != "" {
		r.URL = ur.URL
	}
	if ur.ImageURL != nil {
		r.ImageURL = core.CleanString(*ur.ImageURL)
	}
	if ur.Artist != nil {
		r.Artist = core.CleanString(*ur.Artist)
	}
	if ur.DurationSeconds != nil {
		r.DurationSeconds = *ur.DurationSeconds
	}
	if ur.MoodTags != nil {
		r.MoodTags = ur.MoodTags
	}
	if ur.IsPublished != nil {
		r.IsPublished = *ur.IsPublished
	}
	r.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateResource(ctx, r)
}

func (svc *Service) DeleteResource(ctx context.Context, id string) error {
	return svc.repo.DeleteResource(ctx, id)
}

// Recommend returns published resources suited to mood, falling back to the latest published ones.
func (svc *Service) Recommend(ctx context.Context, mood string) ([]Resource, error) {
	if mood != "" {
		res, err := svc.repo.QueryResources(ctx, &QueryFilter{Mood: mood, PublishedOnly: true, Limit: defaultRecommendations})
		if err != nil {
			return nil, errors.Wrap(err, "querying resources by mood")
		}
		if len(res) > 0 {
			return res, nil
		}
	}
	res, err := svc.repo.QueryResources(ctx, &QueryFilter{PublishedOnly: true, Limit: defaultRecommendations})
	if err != nil {
		return nil, errors.Wrap(err, "querying latest resources")
	}
	return res, nil
}
