package goal

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/utulivu/core"
)

type Goal struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"target_date"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type NewGoal struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	TargetDate  *time.Time `json:"target_date"`
}

func (ng *NewGoal) Validate(validate *validator.Validate) error {
	ng.Title = core.CleanString(ng.Title)
	ng.Description = core.CleanString(ng.Description)
	return validate.Struct(ng)
}

type UpdateGoal struct {
	Title       string     `json:"title" validate:"max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	TargetDate  *time.Time `json:"target_date"`
}

func (ug *UpdateGoal) Validate(validate *validator.Validate) error {
	ug.Title = core.CleanString(ug.Title)
	if ug.Description != nil {
		desc := core.CleanString(*ug.Description)
		ug.Description = &desc
	}
	return validate.Struct(ug)
}

type QueryFilter struct {
	StudentID   string `query:"-"`
	IsCompleted *bool  `query:"is_completed"`
}

// Counts sums up a student's goals.
type Counts struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
}
