package service

import (
	"vidtube/internal/util"

	"github.com/go-playground/validator/v10"
)

const (
	contentLengthRule = "required,min=2,max=255"
	idRule            = "required,uuid"
)

var validate = validator.New()

func validateContent(content, message string) error {
	if err := validate.Var(content, contentLengthRule); err != nil {
		return util.NewValidationError(message)
	}
	return nil
}

// validateID rejects malformed ids. They are reported as not found.
func validateID(id, message string) error {
	if err := validate.Var(id, idRule); err != nil {
		return util.NewInvalidIDError(message)
	}
	return nil
}

func requireRequester(requesterID string) error {
	if requesterID == "" {
		return util.NewAuthenticationError("user not found, please login")
	}
	return nil
}
