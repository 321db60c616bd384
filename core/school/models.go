package school

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/utulivu/core"
)

type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Class struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	CreatedAt time.Time `json:"created_at"`
}

type NewSchool struct {
	Name    string `json:"name" validate:"required,max=200"`
	Code    string `json:"code" validate:"required,min=2,max=16,alphanum"`
	Address string `json:"address" validate:"max=500"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = cleanCode(ns.Code)
	ns.Address = core.CleanString(ns.Address)
	return validate.Struct(ns)
}

type UpdateSchool struct {
	Name     string `json:"name" validate:"max=200"`
	Code     string `json:"code" validate:"omitempty,min=2,max=16,alphanum"`
	Address  string `json:"address" validate:"max=500"`
	IsActive *bool  `json:"is_active"`
}

func (us *UpdateSchool) Validate(orig School, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if code := cleanCode(us.Code); code != "" {
		us.Code = code
	} else {
		us.Code = orig.Code
	}
	if addr := core.CleanString(us.Address); addr != "" {
		us.Address = addr
	} else {
		us.Address = orig.Address
	}
	return validate.Struct(us)
}

type NewClass struct {
	Name  string `json:"name" validate:"required,max=100"`
	Grade string `json:"grade" validate:"max=50"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Grade = core.CleanString(nc.Grade)
	return validate.Struct(nc)
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// cleanCode normalises school codes to upper case.
func cleanCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}
