package services

import (
	"fmt"
	"strings"

	"forumhub/app/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	ErrInvalid      = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = repositories.ErrNotFound
)

// InputError is a validation failure; it matches ErrInvalid
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return e.Reason
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(format string, args ...interface{}) error {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}

// validationError turns a validator failure into readable InputError
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &InputError{Reason: err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return &InputError{Reason: strings.Join(msgs, "; ")}
}

func describeField(fe validator.FieldError) string {
	name := fieldName(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return name + " is required"
	case "max":
		return fmt.Sprintf("%s is too long (maximum %s characters)", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s is too short (minimum %s characters)", name, fe.Param())
	case "email":
		return name + " must be a valid email address"
	case "url":
		return name + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// fieldName turns DisplayName into "display name"
func fieldName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := field[i-1]
			if prev < 'A' || prev > 'Z' {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// notFound maps a repository miss to a wrapped ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return errors.Wrap(ErrNotFound, what)
	}
	return err
}

// pagination normalizes page numbers and sizes into limit and offset
func pagination(page, perPage int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return perPage, (page - 1) * perPage
}

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	// MaxPage keeps offsets far from integer overflow
	MaxPage        = 1_000_000
)
