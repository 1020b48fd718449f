// Package httputil holds the request-facing helpers every service shares:
// body decoding with validation, JSON responses and the mapping of error
// kinds onto HTTP status codes.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewValidator returns a validator that reports json field names and
// validates decimal.Decimal fields by their numeric value
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// DecodeAndValidate reads a JSON body into dst and validates it. The error
// wraps models.ErrInvalidInput; validation failures also carry the
// per-field messages in a validator.ValidationErrors.
func DecodeAndValidate(r *http.Request, validate *validator.Validate, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(models.ErrInvalidInput, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return &validationError{cause: err}
	}
	return nil
}

type validationError struct {
	cause error
}

func (e *validationError) Error() string {
	return "validation failed: " + e.cause.Error()
}

func (e *validationError) Unwrap() error {
	return e.cause
}

func (e *validationError) Is(target error) bool {
	return target == models.ErrInvalidInput
}

// FormatValidationError turns validator errors into field -> message
func FormatValidationError(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()

		switch fe.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "gt":
			out[field] = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "gte":
			out[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return out
}

// WriteJSON writes body as JSON with the given status
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// StatusFor maps an error kind onto an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrIllegalTransition):
		return http.StatusConflict
	case models.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with the status StatusFor assigns to it
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := ErrorResponse{Error: err.Error(), Fields: FormatValidationError(err)}
	if status == http.StatusInternalServerError {
		body.Error = "internal error"
	}
	WriteJSON(w, status, body)
}
