package core

import (
	"errors"
	"regexp"
	"strings"
)

const (
	Income    GroupType = "income"
	Expense   GroupType = "expense"
	Asset     GroupType = "asset"
	Liability GroupType = "liability"
)

const (
	ViewYear  ViewMode = "year"
	ViewMonth ViewMode = "month"
	ViewDay   ViewMode = "day"
)

type (
	// GroupType classifies a category group. Income and expense groups form
	// the flow view; asset and liability groups form the balance view.
	GroupType string

	// ViewMode selects the period namespace and the group collection used
	// for projections.
	ViewMode string

	Note struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		Value string `json:"value"`
	}
)

var (
	ErrInvalidYear     = errors.New("invalid year, expected YYYY")
	ErrInvalidMonth    = errors.New("invalid month, expected YYYY-MM")
	ErrInvalidDay      = errors.New("invalid day, expected YYYY-MM-DD")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidView     = errors.New("invalid view mode")
	ErrDuplicatePeriod = errors.New("period already exists")
	ErrEmptyName       = errors.New("empty name")
	ErrDuplicateID     = errors.New("duplicate item id")
	ErrAggregateItem   = errors.New("item has children, its value is derived")
	ErrInvalidAmount   = errors.New("invalid amount")
)

var (
	yearPattern  = regexp.MustCompile(`^\d{4}$`)
	monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	dayPattern   = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
)

// IsValidation reports whether err is a rejected edit intent rather than an
// infrastructure failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidYear, ErrInvalidMonth, ErrInvalidDay, ErrInvalidPeriod, ErrInvalidView,
		ErrDuplicatePeriod, ErrEmptyName, ErrDuplicateID, ErrAggregateItem, ErrInvalidAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func ValidateYear(year string) error {
	if !yearPattern.MatchString(year) {
		return ErrInvalidYear
	}
	return nil
}

func ValidateMonth(month string) error {
	if !monthPattern.MatchString(month) {
		return ErrInvalidMonth
	}
	return nil
}

// ValidateDay checks the shape of the key only: 2025-02-31 passes.
func ValidateDay(day string) error {
	if !dayPattern.MatchString(day) {
		return ErrInvalidDay
	}
	return nil
}

// ValidatePeriod accepts a key from any of the three namespaces.
func ValidatePeriod(period string) error {
	if _, ok := KindOf(period); !ok {
		return ErrInvalidPeriod
	}
	return nil
}

// KindOf returns the view mode whose namespace the key belongs to.
func KindOf(period string) (ViewMode, bool) {
	switch {
	case yearPattern.MatchString(period):
		return ViewYear, true
	case monthPattern.MatchString(period):
		return ViewMonth, true
	case dayPattern.MatchString(period):
		return ViewDay, true
	}
	return "", false
}

// ParseGroupType normalizes case; unknown types are returned as-is with ok=false.
func ParseGroupType(s string) (GroupType, bool) {
	t := GroupType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

func (t GroupType) Valid() bool {
	return t.IsFlow() || t.IsBalance()
}

func (t GroupType) IsFlow() bool {
	return t == Income || t == Expense
}

func (t GroupType) IsBalance() bool {
	return t == Asset || t == Liability
}

func ParseViewMode(s string) (ViewMode, error) {
	m := ViewMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidView
	}
	return m, nil
}

func (m ViewMode) Valid() bool {
	return m == ViewYear || m == ViewMonth || m == ViewDay
}

// Includes reports whether a group of type t is shown in this view.
func (m ViewMode) Includes(t GroupType) bool {
	if m == ViewDay {
		return t.IsBalance()
	}
	return t.IsFlow()
}

func (m ViewMode) validate(period string) error {
	switch m {
	case ViewYear:
		return ValidateYear(period)
	case ViewMonth:
		return ValidateMonth(period)
	case ViewDay:
		return ValidateDay(period)
	}
	return ErrInvalidView
}
