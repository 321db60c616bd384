package mood

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/utulivu/core"
)

// Mood labels
const (
	Awful = "awful"
	Bad   = "bad"
	Okay  = "okay"
	Good  = "good"
	Great = "great"
)

// Triggers
const (
	TriggerSchool        = "school"
	TriggerExams         = "exams"
	TriggerFamily        = "family"
	TriggerFriends       = "friends"
	TriggerRelationships = "relationships"
	TriggerHealth        = "health"
	TriggerSleep         = "sleep"
	TriggerSocialMedia   = "social_media"
	TriggerMoney         = "money"
	TriggerLoneliness    = "loneliness"
	TriggerOther         = "other"
)

type Label struct {
	Value string `json:"value"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Emoji string `json:"emoji"`
}

type Trigger struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

var (
	Labels = []Label{
		{Value: Awful, Name: "Awful", Score: 1, Emoji: "😢"},
		{Value: Bad, Name: "Bad", Score: 2, Emoji: "😟"},
		{Value: Okay, Name: "Okay", Score: 3, Emoji: "😐"},
		{Value: Good, Name: "Good", Score: 4, Emoji: "🙂"},
		{Value: Great, Name: "Great", Score: 5, Emoji: "😄"},
	}

	Triggers = []Trigger{
		{Value: TriggerSchool, Name: "School"},
		{Value: TriggerExams, Name: "Exams"},
		{Value: TriggerFamily, Name: "Family"},
		{Value: TriggerFriends, Name: "Friends"},
		{Value: TriggerRelationships, Name: "Relationships"},
		{Value: TriggerHealth, Name: "Health"},
		{Value: TriggerSleep, Name: "Sleep"},
		{Value: TriggerSocialMedia, Name: "Social media"},
		{Value: TriggerMoney, Name: "Money"},
		{Value: TriggerLoneliness, Name: "Loneliness"},
		{Value: TriggerOther, Name: "Other"},
	}

	scores   = make(map[string]int, len(Labels))
	triggers = make(map[string]bool, len(Triggers))
)

func init() {
	for _, l := range Labels {
		scores[l.Value] = l.Score
	}
	for _, t := range Triggers {
		triggers[t.Value] = true
	}
}

// Score returns the 1-5 score of a mood label, 0 if unknown.
func Score(label string) int {
	return scores[label]
}

func IsLabel(label string) bool {
	return scores[label] > 0
}

func IsTrigger(trigger string) bool {
	return triggers[trigger]
}

type Checkin struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	SchoolID    string    `json:"-"`
	Mood        string    `json:"mood"`
	Score       int       `json:"score"`
	Note        string    `json:"note"`
	Triggers    []string  `json:"triggers"`
	CheckinDate time.Time `json:"checkin_date"` // calendar day, UTC midnight
	CreatedAt   time.Time `json:"created_at"`
}

type NewCheckin struct {
	Mood     string   `json:"mood" validate:"required,moodlabel"`
	Note     string   `json:"note" validate:"max=500"`
	Triggers []string `json:"triggers" validate:"max=5,unique,dive,moodtrigger"`
}

func (nc *NewCheckin) Validate(validate *validator.Validate) error {
	nc.Mood = core.CleanString(nc.Mood, true /* lower */)
	nc.Note = core.CleanString(nc.Note)
	for i, t := range nc.Triggers {
		nc.Triggers[i] = core.CleanString(t, true /* lower */)
	}
	return validate.Struct(nc)
}

type HistoryFilter struct {
	From time.Time `query:"from"`
	To   time.Time `query:"to"`
}

// StatsFilter scopes aggregate queries to one student or one school, between two calendar days (inclusive).
type StatsFilter struct {
	StudentID string
	SchoolID  string
	From      time.Time
	To        time.Time
}

// DailyStat counts the check-ins of one mood on one day.
type DailyStat struct {
	Date  time.Time
	Mood  string
	Count int
}

type TriggerStat struct {
	Trigger string
	Count   int
}

var (
	moodLabelTag    = "moodlabel"
	moodLabelText   = "invalid mood"
	moodTriggerTag  = "moodtrigger"
	moodTriggerText = "invalid trigger"
)

// InitValidators registers the mood validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(moodLabelTag, func(fl validator.FieldLevel) bool {
		return IsLabel(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, moodLabelTag, moodLabelText)

	_ = validate.RegisterValidation(moodTriggerTag, func(fl validator.FieldLevel) bool {
		return IsTrigger(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, moodTriggerTag, moodTriggerText)
}
