// Request validation.
//
// Request DTOs declare go-playground/validator rules in `binding` tags. This
// file binds JSON bodies through Gin and turns validator errors into a single
// validation failure whose violations follow struct field order, so the first
// violation is always the first invalid field as declared.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tbourn/go-auth-backend/internal/failure"
)

var tagNameOnce sync.Once

// useJSONNames makes FieldError.Field() report json names instead of Go
// field names.
func useJSONNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonName)
	}
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// bindJSON decodes and validates the request body into dst (a pointer to a
// struct). It returns nil or a validation *failure.Failure.
func bindJSON(c *gin.Context, dst any) error {
	tagNameOnce.Do(useJSONNames)
	if err := c.ShouldBindJSON(dst); err != nil {
		return bindFailure(err, dst)
	}
	return nil
}

// bindFailure converts a binding error into a validation failure.
func bindFailure(err error, dst any) *failure.Failure {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		out := make([]failure.Violation, 0, len(ves))
		for _, fe := range ves {
			out = append(out, failure.Violation{Field: fe.Field(), Message: violationMessage(fe, dst)})
		}
		return failure.Validation(out...)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return failure.Invalid("body", MsgBodyTooLarge)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return failure.Invalid(typeErr.Field, fmt.Sprintf("%q must be a %s", typeErr.Field, typeErr.Type.Kind()))
	}

	return failure.Invalid("body", MsgInvalidJSON)
}

// violationMessage renders one rule violation as a human-readable sentence.
func violationMessage(fe validator.FieldError, dst any) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "alphanum":
		return fmt.Sprintf("%q must only contain alpha-numeric characters", field)
	case "eqfield":
		return fmt.Sprintf("%q must match %q", field, siblingName(dst, fe.Param()))
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("%q must be a valid UUID", field)
	}
	return fmt.Sprintf("%q is invalid", field)
}

// siblingName returns the json name of the Go field goName on dst's type.
func siblingName(dst any, goName string) string {
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(goName); ok {
			if n := jsonName(f); n != "" {
				return n
			}
		}
	}
	return goName
}

// pathID returns the :id path parameter when it is a UUID.
func pathID(c *gin.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", failure.Invalid("id", MsgInvalidID)
	}
	return id, nil
}
