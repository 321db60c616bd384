package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/content"
)

const (
	categoryColumns = `id, name, kind, created_at`
	resourceColumns = `id, kind, title, description, category_id, url, image_url, artist, duration_seconds, ` +
		`mood_tags, is_published, created_at, updated_at`
)

type categoryRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Kind      string    `db:"kind"`
	CreatedAt time.Time `db:"created_at"`
}

func (row categoryRow) category() content.Category {
	return content.Category{ID: row.ID, Name: row.Name, Kind: row.Kind, CreatedAt: row.CreatedAt.UTC()}
}

type resourceRow struct {
	ID              string         `db:"id"`
	Kind            string         `db:"kind"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	CategoryID      null.String    `db:"category_id"`
	URL             string         `db:"url"`
	ImageURL        string         `db:"image_url"`
	Artist          string         `db:"artist"`
	DurationSeconds int            `db:"duration_seconds"`
	MoodTags        pq.StringArray `db:"mood_tags"`
	IsPublished     bool           `db:"is_published"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func toResourceRow(r content.Resource) resourceRow {
	return resourceRow{
		ID:              r.ID,
		Kind:            r.Kind,
		Title:           r.Title,
		Description:     r.Description,
		CategoryID:      null.NewString(r.CategoryID, r.CategoryID != ""),
		URL:             r.URL,
		ImageURL:        r.ImageURL,
		Artist:          r.Artist,
		DurationSeconds: r.DurationSeconds,
		MoodTags:        pq.StringArray(stringsOrEmpty(r.MoodTags)),
		IsPublished:     r.IsPublished,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func (row resourceRow) resource() content.Resource {
	return content.Resource{
		ID:              row.ID,
		Kind:            row.Kind,
		Title:           row.Title,
		Description:     row.Description,
		CategoryID:      row.CategoryID.String,
		URL:             row.URL,
		ImageURL:        row.ImageURL,
		Artist:          row.Artist,
		DurationSeconds: row.DurationSeconds,
		MoodTags:        stringsOrEmpty(row.MoodTags),
		IsPublished:     row.IsPublished,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

type contentRepository struct {
	repo
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db core.DBExecutor) *contentRepository {
	return &contentRepository{repo{db: db}}
}

func (r *contentRepository) CategoryExists(ctx context.Context, kind, name, excludedID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.exec(ctx), &exists,
		`SELECT EXISTS (SELECT 1 FROM content_categories WHERE kind = $1 AND name = $2 AND id::text <> $3)`,
		kind, name, excludedID)
	return exists, errors.Wrap(err, "checking category name")
}

func (r *contentRepository) CreateCategory(ctx context.Context, cat content.Category) (content.Category, error) {
	_, err := r.exec(ctx).ExecContext(ctx,
		`INSERT INTO content_categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4)`,
		cat.ID, cat.Name, cat.Kind, cat.CreatedAt.UTC())
	if err != nil {
		if isConstraintViolation(err, uniqueViolation, "content_categories_kind_name_key") {
			return content.Category{}, content.ErrCategoryExists
		}
		return content.Category{}, errors.Wrap(err, "inserting category")
	}
	return cat, nil
}

func (r *contentRepository) QueryCategories(ctx context.Context, kind string) ([]content.Category, error) {
	var cond conditions
	if kind != "" {
		cond.add("kind = ?", kind)
	}
	exec := r.exec(ctx)
	q := exec.Rebind(`SELECT ` + categoryColumns + ` FROM content_categories` + cond.String() + ` ORDER BY kind, name`)
	var rows []categoryRow
	if err := sqlx.SelectContext(ctx, exec, &rows, q, cond.args...); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	cats := make([]content.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, row.category())
	}
	return cats, nil
}

func (r *contentRepository) GetCategory(ctx context.Context, id string) (content.Category, error) {
	var row categoryRow
	err := sqlx.GetContext(ctx, r.exec(ctx), &row, `SELECT `+categoryColumns+` FROM content_categories WHERE id = $1`, id)
	if err != nil {
		return content.Category{}, trapNoRows(err, content.ErrCategoryNotFound, "getting category")
	}
	return row.category(), nil
}

func (r *contentRepository) UpdateCategory(ctx context.Context, cat content.Category) (content.Category, error) {
	res, err := r.exec(ctx).ExecContext(ctx, `UPDATE content_categories SET name = $2 WHERE id = $1`, cat.ID, cat.Name)
	if err != nil {
		if isConstraintViolation(err, uniqueViolation, "content_categories_kind_name_key") {
			return content.Category{}, content.ErrCategoryExists
		}
		return content.Category{}, errors.Wrap(err, "updating category")
	}
	if err = mustAffect(res, content.ErrCategoryNotFound); err != nil {
		return content.Category{}, err
	}
	return cat, nil
}

func (r *contentRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM content_categories WHERE id = $1`, id)
	if err != nil {
		if isConstraintViolation(err, foreignKeyViolation, "") {
			return content.ErrCategoryInUse
		}
		return errors.Wrap(err, "deleting category")
	}
	return mustAffect(res, content.ErrCategoryNotFound)
}

func (r *contentRepository) CreateResource(ctx context.Context, res content.Resource) (content.Resource, error) {
	row := toResourceRow(res)
	_, err := sqlx.NamedExecContext(ctx, r.exec(ctx), `
		INSERT INTO content_resources (`+resourceColumns+`)
		VALUES (:id, :kind, :title, :description, :category_id, :url, :image_url, :artist, :duration_seconds,
			:mood_tags, :is_published, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isConstraintViolation(err, foreignKeyViolation, "") {
			return content.Resource{}, content.ErrCategoryNotFound
		}
		return content.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return row.resource(), nil
}

func (r *contentRepository) QueryResources(ctx context.Context, filter *content.QueryFilter) ([]content.Resource, error) {
	var cond conditions
	limit := ""
	if filter != nil {
		if filter.Kind != "" {
			cond.add("kind = ?", filter.Kind)
		}
		if filter.CategoryID != "" {
			cond.add("category_id = ?", filter.CategoryID)
		}
		if filter.Mood != "" {
			cond.add("? = ANY(mood_tags)", filter.Mood)
		}
		if filter.Search != "" {
			val := likePattern(filter.Search)
			cond.add("title ILIKE ? OR description ILIKE ? OR artist ILIKE ?", val, val, val)
		}
		if filter.PublishedOnly {
			cond.add("is_published")
		}
		if filter.Limit > 0 {
			limit = " LIMIT ?"
			cond.args = append(cond.args, filter.Limit)
		}
	}

	exec := r.exec(ctx)
	q := exec.Rebind(`SELECT ` + resourceColumns + ` FROM content_resources` + cond.String() + ` ORDER BY created_at DESC` + limit)
	var rows []resourceRow
	if err := sqlx.SelectContext(ctx, exec, &rows, q, cond.args...); err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	res := make([]content.Resource, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.resource())
	}
	return res, nil
}

func (r *contentRepository) GetResource(ctx context.Context, id string) (content.Resource, error) {
	var row resourceRow
	err := sqlx.GetContext(ctx, r.exec(ctx), &row, `SELECT `+resourceColumns+` FROM content_resources WHERE id = $1`, id)
	if err != nil {
		return content.Resource{}, trapNoRows(err, content.ErrResourceNotFound, "getting resource")
	}
	return row.resource(), nil
}

func (r *contentRepository) UpdateResource(ctx context.Context, res content.Resource) (content.Resource, error) {
	row := toResourceRow(res)
	result, err := sqlx.NamedExecContext(ctx, r.exec(ctx), `
		UPDATE content_resources SET
			title = :title, description = :description, category_id = :category_id, url = :url,
			image_url = :image_url, artist = :artist, duration_seconds = :duration_seconds,
			mood_tags = :mood_tags, is_published = :is_published, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		if isConstraintViolation(err, foreignKeyViolation, "") {
			return content.Resource{}, content.ErrCategoryNotFound
		}
		return content.Resource{}, errors.Wrap(err, "updating resource")
	}
	if err = mustAffect(result, content.ErrResourceNotFound); err != nil {
		return content.Resource{}, err
	}
	return row.resource(), nil
}

func (r *contentRepository) DeleteResource(ctx context.Context, id string) error {
	res, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM content_resources WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	return mustAffect(res, content.ErrResourceNotFound)
}
