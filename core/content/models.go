package content

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/utulivu/core"
)

// Kinds
const (
	KindMeditation = "meditation"
	KindMusic      = "music"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Resource is a meditation or a music track.
type Resource struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	CategoryID      string    `json:"category_id,omitempty"`
	URL             string    `json:"url"`
	ImageURL        string    `json:"image_url"`
	Artist          string    `json:"artist"`
	DurationSeconds int       `json:"duration_seconds"`
	MoodTags        []string  `json:"mood_tags"`
	IsPublished     bool      `json:"is_published"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r *Resource) HasMoodTag(mood string) bool {
	for _, tag := range r.MoodTags {
		if tag == mood {
			return true
		}
	}
	return false
}

type NewCategory struct {
	Name string `json:"name" validate:"required,max=100"`
	Kind string `json:"kind" validate:"required,contentkind"`
}

func (nc *NewCategory) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Kind = core.CleanString(nc.Kind, true /* lower */)
	return validate.Struct(nc)
}

type UpdateCategory struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (uc *UpdateCategory) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	return validate.Struct(uc)
}

type NewResource struct {
	Kind            string   `json:"kind" validate:"required,contentkind"`
	Title           string   `json:"title" validate:"required,max=200"`
	Description     string   `json:"description" validate:"max=2000"`
	CategoryID      string   `json:"category_id" validate:"omitempty,uuid"`
	URL             string   `json:"url" validate:"required,httpurl"`
	ImageURL        string   `json:"image_url" validate:"omitempty,httpurl"`
	Artist          string   `json:"artist" validate:"max=200"`
	DurationSeconds int      `json:"duration_seconds" validate:"min=0"`
	MoodTags        []string `json:"mood_tags" validate:"unique,dive,moodlabel"`
	IsPublished     bool     `json:"is_published"`
}

func (nr *NewResource) Validate(validate *validator.Validate) error {
	nr.Kind = core.CleanString(nr.Kind, true /* lower */)
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.CategoryID = core.CleanString(nr.CategoryID, true /* lower */)
	nr.URL = core.CleanString(nr.URL)
	nr.ImageURL = core.CleanString(nr.ImageURL)
	nr.Artist = core.CleanString(nr.Artist)
	for i, tag := range nr.MoodTags {
		nr.MoodTags[i] = core.CleanString(tag, true /* lower */)
	}
	return validate.Struct(nr)
}

// UpdateResource defines what information may be provided to modify an existing Resource.
// The kind of a resource never changes.
type UpdateResource struct {
	Title           string   `json:"title" validate:"max=200"`
	Description     *string  `json:"description" validate:"omitempty,max=2000"`
	CategoryID      *string  `json:"category_id" validate:"omitempty"`
	URL             string   `json:"url" validate:"omitempty,httpurl"`
	ImageURL        *string  `json:"image_url" validate:"omitempty"`
	Artist          *string  `json:"artist" validate:"omitempty,max=200"`
	DurationSeconds *int     `json:"duration_seconds" validate:"omitempty,min=0"`
	MoodTags        []string `json:"mood_tags" validate:"omitempty,unique,dive,moodlabel"`
	IsPublished     *bool    `json:"is_published"`
}

func (ur *UpdateResource) Validate(validate *validator.Validate) error {
	ur.Title = core.CleanString(ur.Title)
	ur.URL = core.CleanString(ur.URL)
	for i, tag := range ur.MoodTags {
		ur.MoodTags[i] = core.CleanString(tag, true /* lower */)
	}
	return validate.Struct(ur)
}

type QueryFilter struct {
	Kind          string `query:"kind"`
	CategoryID    string `query:"category_id"`
	Mood          string `query:"mood"`
	Search        string `query:"search"`
	PublishedOnly bool   `query:"-"`
	Limit         int    `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
	qf.CategoryID = core.CleanString(qf.CategoryID, true /* lower */)
	qf.Mood = core.CleanString(qf.Mood, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

var (
	contentKindTag  = "contentkind"
	contentKindText = "kind must be one of meditation, music"
)

func IsKind(kind string) bool {
	return kind == KindMeditation || kind == KindMusic
}

// InitValidators registers the content validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(contentKindTag, func(fl validator.FieldLevel) bool {
		return IsKind(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, contentKindTag, contentKindText)
}
