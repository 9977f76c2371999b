package binding

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/creasty/defaults"
	validatorV10 "github.com/go-playground/validator/v10"
	"github.com/leeforge/fresson/json"
)

type BindError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s' %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type ValidationErrors []BindError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Error())
}

// Form binds the request's form values (query, urlencoded or multipart) to
// v using `form` tags, after applying `default` tags, then validates v.
// Multipart bodies must already be parsed or fit in maxMemory.
func Form(r *http.Request, v any, maxMemory int64) error {
	if err := parseRequestForm(r, maxMemory); err != nil {
		return &BindError{
			Type:    "bind_error",
			Message: "failed to parse form: " + err.Error(),
		}
	}
	if err := defaults.Set(v); err != nil {
		return &BindError{Type: "bind_error", Message: err.Error()}
	}
	if err := NewFormParser().Parse(r.Form, v); err != nil {
		return err
	}
	return Validate(v)
}

func parseRequestForm(r *http.Request, maxMemory int64) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if r.MultipartForm != nil {
			return nil
		}
		return r.ParseMultipartForm(maxMemory)
	}
	return r.ParseForm()
}

// JSON decodes the body into v, then validates it.
func JSON(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return &BindError{
			Type:    "bind_error",
			Message: "request body is empty",
		}
	}
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &BindError{
			Type:    "json_error",
			Message: "failed to unmarshal JSON: " + err.Error(),
		}
	}
	return Validate(v)
}

// Validate runs `validate` tags and converts failures to ValidationErrors.
func Validate(v any) error {
	err := validator.Struct(v)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validatorV10.ValidationErrors)
	if !ok {
		return &BindError{
			Type:    "validation_error",
			Message: err.Error(),
		}
	}

	var bindErrors ValidationErrors
	for _, fe := range validationErrors {
		bindErrors = append(bindErrors, BindError{
			Type:    "validation_error",
			Field:   fe.Field(),
			Message: getValidationMessage(fe),
		})
	}
	return bindErrors
}
