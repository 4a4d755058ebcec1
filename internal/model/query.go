package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Mode selects annual or quarterly periods.
type Mode string

const (
	ModeYear    Mode = "year"
	ModeQuarter Mode = "quarter"
)

// Query is one reconciliation request.
type Query struct {
	Companies    []string `json:"symbols" yaml:"symbols" validate:"min=1,max=10,dive,required,max=16"`
	Mode         Mode     `json:"period_type" yaml:"period_type" validate:"oneof=year quarter"`
	StartYear    int      `json:"start_year" yaml:"start_year" validate:"gte=1990,lte=2100"`
	EndYear      int      `json:"end_year" yaml:"end_year" validate:"gte=1990,lte=2100,gtefield=StartYear"`
	StartQuarter int      `json:"start_quarter,omitempty" yaml:"start_quarter,omitempty" validate:"omitempty,min=1,max=4"`
	EndQuarter   int      `json:"end_quarter,omitempty" yaml:"end_quarter,omitempty" validate:"omitempty,min=1,max=4"`
	Filename     string   `json:"filename,omitempty" yaml:"filename,omitempty" validate:"max=60"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims and upper-cases company codes, drops duplicates and blank
// entries, and pins annual queries to quarter 4. The caller's Companies
// slice is left untouched.
func (q *Query) Normalize() {
	seen := make(map[string]bool, len(q.Companies))
	out := make([]string, 0, len(q.Companies))
	for _, c := range q.Companies {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	q.Companies = out
	q.Mode = Mode(strings.ToLower(strings.TrimSpace(string(q.Mode))))
	q.Filename = strings.TrimSpace(q.Filename)
	if q.Mode == ModeYear {
		q.StartQuarter, q.EndQuarter = 4, 4
	}
}

// Validate checks field rules and the cross-field quarter rules.
func (q Query) Validate() error {
	if err := ValidateStruct(q); err != nil {
		return err
	}
	if q.Mode != ModeQuarter {
		return nil
	}
	if q.StartQuarter == 0 || q.EndQuarter == 0 {
		return &ValidationError{Problems: []string{"quarter mode requires start_quarter and end_quarter"}}
	}
	if q.StartYear == q.EndYear && q.StartQuarter > q.EndQuarter {
		return &ValidationError{Problems: []string{"start_quarter must not be after end_quarter within the same year"}}
	}
	return nil
}

// ValidateStruct runs struct-tag validation and converts failures into a
// ValidationError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Problems = append(ve.Problems, describe(fe))
	}
	return ve
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", field)
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
