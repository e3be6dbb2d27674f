// Package filter describes ad-hoc list conditions sent by API clients.
package filter

import (
	"pharmadesk/internal/core/apperror"
)

// ComparisonType is the comparison applied by one condition.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Less           ComparisonType = "lt"
	Greater        ComparisonType = "gt"
	LessOrEqual    ComparisonType = "lte"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	Contains       ComparisonType = "contains"  // ILIKE %val%
	NotContains    ComparisonType = "ncontains" // NOT ILIKE %val%
	IsNull         ComparisonType = "null"
	IsNotNull      ComparisonType = "not_null"
)

// Item is one condition of a list request.
type Item struct {
	Field    string         `json:"field"` // snake_case column name
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"`
}

// Validate checks the operator and that a value is present where needed.
// Column names are checked by the repository against its own whitelist.
func (i Item) Validate() error {
	if i.Field == "" {
		return apperror.NewValidation("filter field is required")
	}
	switch i.Operator {
	case IsNull, IsNotNull:
		return nil
	case Equal, NotEqual, Less, Greater, LessOrEqual, GreaterOrEqual,
		InList, NotInList, Contains, NotContains:
		if i.Value == nil {
			return apperror.NewValidation("filter value is required").
				WithDetail("field", i.Field).
				WithDetail("operator", string(i.Operator))
		}
		return nil
	}
	return apperror.NewValidation("unknown filter operator").
		WithDetail("field", i.Field).
		WithDetail("operator", string(i.Operator))
}
