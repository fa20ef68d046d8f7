package restful

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// NotFoundBody is the response body written for every "not found" outcome.
const NotFoundBody = "ENTITY_NOT_FOUND"

// DescriptorError reports a malformed or unusable resource descriptor.
// It is returned at registration time and never produced while serving requests.
type DescriptorError struct {
	Resource string // resource name, if known
	Field    string // descriptor slot or attribute key, if any
	Reason   string
	Err      error
}

func (e *DescriptorError) Error() string {
	var b strings.Builder
	b.WriteString("restful: descriptor")
	if e.Resource != "" {
		b.WriteString(" ")
		b.WriteString(e.Resource)
	}
	if e.Field != "" {
		b.WriteString(" (")
		b.WriteString(e.Field)
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DescriptorError) Unwrap() error {
	return e.Err
}

// BindingKind identifies which part of the request failed to bind.
type BindingKind int

const (
	PathInvalid BindingKind = iota + 1
	QueryInvalid
	BodyInvalid
)

func (k BindingKind) String() string {
	switch k {
	case PathInvalid:
		return "invalid path"
	case QueryInvalid:
		return "invalid query"
	case BodyInvalid:
		return "invalid body"
	default:
		return "invalid request"
	}
}

// HTTPStatus maps a BindingKind to the status of the client error response.
// An unusable identifier is reported the same way as a missing entity.
func (k BindingKind) HTTPStatus() int {
	switch k {
	case PathInvalid:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// BindingError is returned by the binders when a request part cannot be
// decoded into its declared type. Binding errors never reach domain code.
type BindingError struct {
	Kind BindingKind
	Err  error
}

func (e *BindingError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, describeError(e.Err))
}

func (e *BindingError) Unwrap() error {
	return e.Err
}

func bindingError(kind BindingKind, err error) *BindingError {
	return &BindingError{Kind: kind, Err: err}
}

// describeError renders decoder and validator errors in a form suitable for clients.
func describeError(err error) string {
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			messages = append(messages, ve.Field()+": "+formatValidationError(ve))
		}
		return strings.Join(messages, "; ")
	}

	var multi schema.MultiError
	if errors.As(err, &multi) {
		messages := make([]string, 0, len(multi))
		for key, e := range multi {
			messages = append(messages, describeSchemaError(key, e))
		}
		slices.Sort(messages)
		return strings.Join(messages, "; ")
	}

	return err.Error()
}

func describeSchemaError(key string, err error) string {
	var convErr schema.ConversionError
	if errors.As(err, &convErr) {
		return fmt.Sprintf("%s: cannot parse as %s", key, convErr.Type)
	}
	var emptyErr schema.EmptyFieldError
	if errors.As(err, &emptyErr) {
		return key + ": required"
	}
	return err.Error()
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "len":
		return fmt.Sprintf("must have length %s", ve.Param())
	case "eq":
		return fmt.Sprintf("must equal %s", ve.Param())
	case "ne":
		return fmt.Sprintf("must not equal %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
