package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

const msgInvalidBody = "Invalid request body"

var validate = newValidator()

// newValidator reports fields by their json or query name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// bindJSON strictly decodes the request body into dst and validates it.
// Missing required fields are reported with requiredMsg.
func bindJSON(c *fiber.Ctx, dst any, requiredMsg string) error {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError(requiredMsg, nil)
		}
		return apperrors.NewValidationError(msgInvalidBody, map[string]any{"reason": decodeReason(err)})
	}
	if dec.More() {
		return apperrors.NewValidationError(msgInvalidBody, map[string]any{"reason": "unexpected data after JSON body"})
	}
	return validateStruct(dst, requiredMsg)
}

// bindQuery parses the query string into dst and validates it.
func bindQuery(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return apperrors.NewValidationError("Invalid query parameters", map[string]any{"reason": err.Error()})
	}
	return validateStruct(dst, "Invalid query parameters")
}

func validateStruct(dst any, requiredMsg string) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(msgInvalidBody, nil)
	}

	details := make(map[string]any, len(verrs))
	onlyRequired := true
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
		if fe.Tag() != "required" {
			onlyRequired = false
		}
	}
	if onlyRequired {
		return apperrors.NewValidationError(requiredMsg, details)
	}
	return apperrors.NewValidationError("Invalid field values", details)
}

func decodeReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field %q must be %s", typeErr.Field, typeErr.Type)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "malformed JSON"
	}
	return err.Error()
}
