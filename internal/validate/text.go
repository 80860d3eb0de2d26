// Package validate checks raw text input before any collaborator is invoked.
package validate

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxTextLength is the fixed character ceiling for question text.
const MaxTextLength = 5000

var (
	// ErrBlank is returned for empty or whitespace-only text.
	ErrBlank = errors.New("text is empty or whitespace-only")
	// ErrTooLong is returned for text exceeding MaxTextLength characters.
	ErrTooLong = errors.New("text exceeds maximum length")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type question struct {
	Text string `validate:"max=5000"`
}

// Text validates question text. It is pure and has no side effects.
func Text(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrBlank
	}
	if err := validate.Struct(question{Text: s}); err != nil {
		return ErrTooLong
	}
	return nil
}

// Normalize trims surrounding whitespace, mapping whitespace-only text to
// the absent value.
func Normalize(s string) string {
	return strings.TrimSpace(s)
}
