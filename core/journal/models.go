package journal

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/utulivu/core"
)

// Kinds
const (
	KindWriting = "writing"
	KindAudio   = "audio"
	KindArt     = "art"
)

var Kinds = []string{KindWriting, KindAudio, KindArt}

type Entry struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	MediaURL  string     `json:"media_url"`
	Mood      string     `json:"mood"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

type NewEntry struct {
	Kind     string `json:"kind" validate:"required,journalkind"`
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"max=20000"`
	MediaURL string `json:"media_url" validate:"omitempty,httpurl"`
	Mood     string `json:"mood" validate:"omitempty,moodlabel"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Kind = core.CleanString(ne.Kind, true /* lower */)
	ne.Title = core.CleanString(ne.Title)
	ne.Content = core.CleanString(ne.Content)
	ne.MediaURL = core.CleanString(ne.MediaURL)
	ne.Mood = core.CleanString(ne.Mood, true /* lower */)
	return validate.Struct(ne)
}

// UpdateEntry defines what information may be provided to modify an existing Entry.
// The kind of an entry never changes.
type UpdateEntry struct {
	Title    string  `json:"title" validate:"max=200"`
	Content  *string `json:"content" validate:"omitempty,max=20000"`
	MediaURL string  `json:"media_url" validate:"omitempty,httpurl"`
	Mood     *string `json:"mood" validate:"omitempty,moodlabel"`
}

func (ue *UpdateEntry) Validate(validate *validator.Validate) error {
	ue.Title = core.CleanString(ue.Title)
	ue.MediaURL = core.CleanString(ue.MediaURL)
	if ue.Content != nil {
		content := core.CleanString(*ue.Content)
		ue.Content = &content
	}
	if ue.Mood != nil {
		mood := core.CleanString(*ue.Mood, true /* lower */)
		ue.Mood = &mood
	}
	return validate.Struct(ue)
}

type QueryFilter struct {
	StudentID string `query:"-"`
	Kind      string `query:"kind"`
	Search    string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

var (
	journalKindTag  = "journalkind"
	journalKindText = "kind must be one of writing, audio, art"

	contentRequiredTag  = "journalcontent"
	contentRequiredText = "writing entries need some content"

	mediaRequiredTag  = "journalmedia"
	mediaRequiredText = "audio and art entries need a media URL"
)

// InitValidators registers the journal validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(journalKindTag, func(fl validator.FieldLevel) bool {
		return IsKind(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, journalKindTag, journalKindText)

	validate.RegisterStructValidation(newEntryStructValidation, NewEntry{})
	core.RegisterCustomTranslation(validate, translator, contentRequiredTag, contentRequiredText)
	core.RegisterCustomTranslation(validate, translator, mediaRequiredTag, mediaRequiredText)
}

func IsKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// newEntryStructValidation requires content for writing entries and a media URL for the others.
func newEntryStructValidation(sl validator.StructLevel) {
	ne, ok := sl.Current().Interface().(NewEntry)
	if !ok {
		return
	}
	switch ne.Kind {
	case KindWriting:
		if ne.Content == "" {
			sl.ReportError(ne.Content, "content", "Content", contentRequiredTag, "")
		}
	case KindAudio, KindArt:
		if ne.MediaURL == "" {
			sl.ReportError(ne.MediaURL, "media_url", "MediaURL", mediaRequiredTag, "")
		}
	}
}
