package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation bounds for task fields.
const (
	TitleMaxLength       = 500
	DescriptionMaxLength = 5000
)

// Title is a validated task title (1-500 characters after trimming).
type Title struct {
	value string
}

// NewTitle creates a new Title, validating the input.
func NewTitle(s string) (Title, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return Title{}, ErrTitleRequired
	}

	// Bounds are in characters, not bytes; multibyte titles count once per rune.
	if utf8.RuneCountInString(s) > TitleMaxLength {
		return Title{}, ErrTitleTooLong
	}

	return Title{value: s}, nil
}

// String returns the title value.
func (t Title) String() string {
	return t.value
}

// Description is a validated task description (up to 5000 characters after
// trimming). Empty is allowed.
type Description struct {
	value string
}

// NewDescription creates a new Description, validating the input.
func NewDescription(s string) (Description, error) {
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > DescriptionMaxLength {
		return Description{}, ErrDescriptionTooLong
	}

	return Description{value: s}, nil
}

// String returns the description value.
func (d Description) String() string {
	return d.value
}

// DueDateLayout is the wire format of task due dates.
const DueDateLayout = "2006-01-02"

// ParseDueDate parses a YYYY-MM-DD date into midnight UTC.
func ParseDueDate(s string) (time.Time, error) {
	t, err := time.Parse(DueDateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDueDate
	}
	return t.UTC(), nil
}

// NewDueTime validates an HH:MM wall-clock time with hour 00-23 and
// minute 00-59.
func NewDueTime(s string) (string, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return "", ErrInvalidDueTime
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", ErrInvalidDueTime
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", ErrInvalidDueTime
	}

	return s, nil
}
