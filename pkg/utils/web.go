package utils

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eduverse/accountd/pkg/errors"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeValidate decodes a JSON body into dst and runs its validate tags.
// Failures come back as INVALID_INPUT errors naming the first bad field.
func DecodeValidate(r io.Reader, dst any) *errors.Error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		slog.Debug("Failed to decode request body", "err", err)
		return errors.New(errors.ErrCodeInvalidInput, "Request body is not valid JSON")
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.InvalidInput(lowerFirst(fe.Field()), validationReason(fe))
		}
		return errors.New(errors.ErrCodeInvalidInput, "Invalid request")
	}
	return nil
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "contains":
		return "must contain " + fe.Param()
	case "numeric":
		return "must be numeric"
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// WriteError renders err with its mapped status. Details are merged into the
// top level of the body.
func WriteError(w http.ResponseWriter, r *http.Request, err *errors.Error) {
	body := map[string]any{
		"success": false,
		"error":   err.Message,
		"code":    string(err.Code),
	}
	for k, v := range err.Details {
		if _, reserved := body[k]; !reserved {
			body[k] = v
		}
	}
	render.Status(r, err.HTTPStatusCode())
	render.JSON(w, r, body)
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
