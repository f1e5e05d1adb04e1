// ABOUTME: Field validation for item titles and descriptions
// ABOUTME: Runs before any persistence attempt

package todo

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the maximum title length in characters.
const MaxTitleLength = 100

// Input is the user-editable part of an item.
type Input struct {
	Title       string
	Description string
}

// normalize trims surrounding whitespace from both fields.
func (in Input) normalize() Input {
	return Input{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
	}
}

// Validate checks the input and returns a *ValidationError on failure.
func (in Input) Validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLength),
		}
	}
	if !validText(title) {
		return &ValidationError{Field: "title", Reason: "must be valid UTF-8 text"}
	}
	if !validText(in.Description) {
		return &ValidationError{Field: "description", Reason: "must be valid UTF-8 text"}
	}
	return nil
}

// validText rejects invalid UTF-8 and NUL bytes, neither of which every
// backend can store.
func validText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
