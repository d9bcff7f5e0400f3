package serverutils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest runs the struct's validate tags. The error is a
// validator.ValidationErrors, mapped to 400 by ErrorHandlerMiddleware.
func ValidateRequest(req any) error {
	return validate.Struct(req)
}
