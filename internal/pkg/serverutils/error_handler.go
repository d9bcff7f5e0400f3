package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"startup-hunter-be/internal/repository/contract"
	"startup-hunter-be/pkg/store"
)

// StageStatus is the HTTP status of a failed pipeline step.
func StageStatus(err *store.StepError) int {
	if err.IsPrecondition() {
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusBadGateway
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var stageErr *store.StepError
		var validationErrs validator.ValidationErrors
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &stageErr):
			code := StageStatus(stageErr)
			return ctx.Status(code).JSON(ErrorResponseWithData(code, stageErr.Message, fiber.Map{
				"step": stageErr.Step,
				"kind": stageErr.Kind,
			}))
		case errors.As(err, &validationErrs):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponseWithData(fiber.StatusBadRequest, "Validation failed", validationMessages(validationErrs)))
		case errors.Is(err, contract.ErrSessionNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(fiber.StatusNotFound, err.Error()))
		case errors.As(err, &fiberErr):
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
		}
	}
}

func validationMessages(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			out[field] = fmt.Sprintf("failed on %s=%s", fe.Tag(), fe.Param())
		} else {
			out[field] = fmt.Sprintf("failed on %s", fe.Tag())
		}
	}
	return out
}
