package restful

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// PathParam is the name of the path wildcard carrying the resource identifier.
const PathParam = "id"

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

var (
	errMissingID = errors.New("missing id")
	errEmptyBody = errors.New("empty body")
)

type pathParams[ID any] struct {
	ID ID `schema:"id,required"`
}

// BindPath extracts the {id} path value of r as an ID. Identifier types
// implementing encoding.TextUnmarshaler parse themselves; scalar kinds are
// converted by the query decoder. It fails with a PathInvalid BindingError.
func BindPath[ID any](r *http.Request) (ID, error) {
	var zero ID
	raw := r.PathValue(PathParam)
	if raw == "" {
		return zero, bindingError(PathInvalid, errMissingID)
	}

	var p pathParams[ID]
	if u, ok := any(&p.ID).(encoding.TextUnmarshaler); ok {
		if err := u.UnmarshalText([]byte(raw)); err != nil {
			return zero, bindingError(PathInvalid, fmt.Errorf("%s: %w", PathParam, err))
		}
		return p.ID, nil
	}
	if err := schemaDecoder.Decode(&p, url.Values{PathParam: {raw}}); err != nil {
		return zero, bindingError(PathInvalid, err)
	}
	return p.ID, nil
}

// BindQuery decodes the query string of r into Q, starting from
// DefaultQuery[Q] so absent fields keep their defaults. Fields are matched by
// their `schema` tag and may declare defaults there, as in
// `schema:"limit,default:20"`. A tag default only fills fields that are still
// zero after decoding, so a value set by SetDefaults wins over it. The result
// is validated against its `validate` tags. It fails with a QueryInvalid
// BindingError.
func BindQuery[Q any](r *http.Request) (Q, error) {
	var zero Q
	q := DefaultQuery[Q]()
	if err := decodeValues(&q, r.URL.Query()); err != nil {
		return zero, bindingError(QueryInvalid, err)
	}
	if err := validateValue(q); err != nil {
		return zero, bindingError(QueryInvalid, err)
	}
	return q, nil
}

// decodeValues decodes values into *dst where the type parameter is a struct
// or a pointer to a struct.
func decodeValues[Q any](dst *Q, values url.Values) error {
	t := reflect.TypeFor[Q]()
	switch {
	case t.Kind() == reflect.Struct:
		return schemaDecoder.Decode(dst, values)
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		v := reflect.ValueOf(dst).Elem()
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return schemaDecoder.Decode(v.Interface(), values)
	default:
		return fmt.Errorf("unsupported query type %s", t)
	}
}

// BindBody decodes the JSON body of r into a newly allocated T. A positive
// limit caps the number of bytes read. Empty bodies, bodies that are JSON null,
// malformed JSON and values failing their `validate` tags are rejected with a
// BodyInvalid BindingError.
func BindBody[T any](r *http.Request, limit int64) (*T, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, bindingError(BodyInvalid, errEmptyBody)
	}

	var reader io.Reader = r.Body
	if limit > 0 {
		reader = io.LimitReader(r.Body, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, bindingError(BodyInvalid, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, bindingError(BodyInvalid, fmt.Errorf("body exceeds %d bytes", limit))
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, bindingError(BodyInvalid, errEmptyBody)
	}

	payload := new(T)
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, bindingError(BodyInvalid, err)
	}
	if err := validateValue(payload); err != nil {
		return nil, bindingError(BodyInvalid, err)
	}
	return payload, nil
}

// validateValue runs struct validation when v is a struct or a non-nil pointer to one.
func validateValue(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(rv.Interface())
}

// isQueryType reports whether t can be decoded by BindQuery.
func isQueryType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
