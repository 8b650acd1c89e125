package handlers

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"blood-platform/internal/apperr"
	"blood-platform/internal/middleware"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validator errors report the JSON field name the
// client sent instead of the Go struct field.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON decodes the body into req and converts binding failures into
// validation errors naming the first offending field. An empty body is
// accepted when allowEmpty is set.
func bindJSON(c *gin.Context, req any, allowEmpty bool) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return apperr.Validation(fe.Field(), "%s is required", fe.Field())
		case "email":
			return apperr.Validation(fe.Field(), "%s must be a valid email", fe.Field())
		case "min":
			return apperr.Validation(fe.Field(), "%s must be at least %s", fe.Field(), fe.Param())
		default:
			return apperr.Validation(fe.Field(), "%s is invalid", fe.Field())
		}
	}
	return apperr.Validation("body", "invalid request body")
}

func parseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Validation(field, "%s must be a valid id", field)
	}
	return id, nil
}

func pathID(c *gin.Context) (uuid.UUID, error) {
	return parseUUID(c.Param("id"), "id")
}

// currentUser returns the caller AuthMiddleware authenticated.
func currentUser(c *gin.Context) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, apperr.Authentication("authentication required")
	}
	return id, nil
}
