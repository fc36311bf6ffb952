package brokerage

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-brokerage/core"
	goerrors "github.com/goliatone/go-errors"
)

func requireArgument(field string, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", argumentError(field, "value is required")
	}
	return trimmed, nil
}

func argumentError(field string, message string) error {
	return goerrors.NewValidation("brokerage: invalid argument", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ErrorCodeBadInput).
		WithSeverity(goerrors.SeverityError)
}
