package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/utulivu/core/content"
)

type contentRepository struct {
	db *DB
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *DB) *contentRepository {
	return &contentRepository{db: db}
}

func copyResource(r content.Resource) content.Resource {
	r.MoodTags = cloneStrings(r.MoodTags)
	return r
}

func (repo *contentRepository) categoryExists(kind, name, excludedID string) bool {
	for _, cat := range repo.db.categories {
		if cat.Kind == kind && cat.Name == name && cat.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *contentRepository) CategoryExists(_ context.Context, kind, name, excludedID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.categoryExists(kind, name, excludedID), nil
}

func (repo *contentRepository) CreateCategory(_ context.Context, cat content.Category) (content.Category, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.categoryExists(cat.Kind, cat.Name, "") {
		return content.Category{}, content.ErrCategoryExists
	}
	repo.db.categories[cat.ID] = cat
	return cat, nil
}

func (repo *contentRepository) QueryCategories(_ context.Context, kind string) ([]content.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cats := make([]content.Category, 0)
	for _, cat := range repo.db.categories {
		if kind == "" || cat.Kind == kind {
			cats = append(cats, cat)
		}
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Kind != cats[j].Kind {
			return cats[i].Kind < cats[j].Kind
		}
		return cats[i].Name < cats[j].Name
	})
	return cats, nil
}

func (repo *contentRepository) GetCategory(_ context.Context, id string) (content.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cat, ok := repo.db.categories[id]; ok {
		return cat, nil
	}
	return content.Category{}, content.ErrCategoryNotFound
}

func (repo *contentRepository) UpdateCategory(_ context.Context, cat content.Category) (content.Category, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.categories[cat.ID]; !ok {
		return content.Category{}, content.ErrCategoryNotFound
	}
	if repo.categoryExists(cat.Kind, cat.Name, cat.ID) {
		return content.Category{}, content.ErrCategoryExists
	}
	repo.db.categories[cat.ID] = cat
	return cat, nil
}

func (repo *contentRepository) DeleteCategory(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.categories[id]; !ok {
		return content.ErrCategoryNotFound
	}
	for _, r := range repo.db.resources {
		if r.CategoryID == id {
			return content.ErrCategoryInUse
		}
	}
	delete(repo.db.categories, id)
	return nil
}

func (repo *contentRepository) CreateResource(_ context.Context, r content.Resource) (content.Resource, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.resources[r.ID] = copyResource(r)
	return copyResource(r), nil
}

func (repo *contentRepository) QueryResources(_ context.Context, filter *content.QueryFilter) ([]content.Resource, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	res := make([]content.Resource, 0)
	for _, r := range repo.db.resources {
		if filter != nil {
			if (filter.Kind != "" && r.Kind != filter.Kind) ||
				(filter.CategoryID != "" && r.CategoryID != filter.CategoryID) ||
				(filter.Mood != "" && !r.HasMoodTag(filter.Mood)) ||
				(filter.PublishedOnly && !r.IsPublished) {
				continue
			}
			if filter.Search != "" && !containsFold(r.Title, filter.Search) &&
				!containsFold(r.Description, filter.Search) && !containsFold(r.Artist, filter.Search) {
				continue
			}
		}
		res = append(res, copyResource(r))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if filter != nil && filter.Limit > 0 && len(res) > filter.Limit {
		res = res[:filter.Limit]
	}
	return res, nil
}

func (repo *contentRepository) GetResource(_ context.Context, id string) (content.Resource, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.resources[id]; ok {
		return copyResource(r), nil
	}
	return content.Resource{}, content.ErrResourceNotFound
}

func (repo *contentRepository) UpdateResource(_ context.Context, r content.Resource) (content.Resource, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.resources[r.ID]; !ok {
		return content.Resource{}, content.ErrResourceNotFound
	}
	repo.db.resources[r.ID] = copyResource(r)
	return copyResource(r), nil
}

func (repo *contentRepository) DeleteResource(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.resources[id]; !ok {
		return content.ErrResourceNotFound
	}
	delete(repo.db.resources, id)
	return nil
}
