package deck

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned when a deck or card id does not resolve.
var ErrNotFound = errors.New("not found")

// FieldError is a single rejected input field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every rejected field of an operation. Nothing was
// mutated when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Reason
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type deckInput struct {
	Title string `json:"title" validate:"required,max=100"`
}

type cardInput struct {
	Question string `json:"question" validate:"required,max=500"`
	Answer   string `json:"answer" validate:"required,max=500"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{Field: fe.Field(), Reason: reason(fe)})
	}
	return ve
}

// ValidateTitle reports whether title, after trimming, is an acceptable deck
// title. The error is a *ValidationError.
func ValidateTitle(title string) error {
	return check(deckInput{Title: strings.TrimSpace(title)})
}

// ValidateCard reports whether question and answer, after trimming, are
// acceptable card content. The error is a *ValidationError.
func ValidateCard(question, answer string) error {
	return check(cardInput{Question: strings.TrimSpace(question), Answer: strings.TrimSpace(answer)})
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid (" + fe.Tag() + ")"
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
