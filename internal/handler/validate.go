package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sakif/blog-platform/internal/apperror"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// notblank rejects strings that are only whitespace.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// normalizer is implemented by requests that clean up their fields (trimming
// and the like) before the validate tags see them.
type normalizer interface {
	normalize()
}

// decodeJSON reads a single JSON object from the body into dst, normalizes it
// and runs the struct's validate tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "Request body is required")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	return validateStruct(dst)
}

// validateStruct turns validator failures into one ErrValidation carrying a
// FieldError per failing field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("handler: validating request: %w", err)
	}

	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{
			Field:    fe.Field(),
			Message:  fieldMessage(fe),
			Location: "body",
		})
	}
	return apperror.Validation(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	switch fe.Tag() {
	case "required", "notblank":
		return name + " is required"
	case "email":
		return "Please include a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "url":
		return name + " must be a valid URL"
	}
	return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
}
