package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"obpm/pkg/auth"
	"obpm/pkg/executor"
	"obpm/pkg/services"
	"obpm/pkg/tree"
)

// validationProblem extends the RFC 7807 body with the complete list of
// violations, never just the first.
type validationProblem struct {
	*problems.Problem
	Errors []string `json:"errors"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func forbidden(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(403).
		WithInstance(c.Path()).
		WithType("not_permitted").
		WithDetail(detail)

	return c.Status(fiber.StatusForbidden).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func unprocessable(c fiber.Ctx, detail string, causes []string) error {
	problem := &validationProblem{
		Problem: problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("schema_validation_error").
			WithDetail(detail),
		Errors: causes,
	}

	return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for executor and service
// layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	var validationErr *executor.ValidationError

	switch {
	case auth.IsAuthError(err):
		return unauthorized(c, err.Error())

	case executor.IsAuthorizationError(err):
		return forbidden(c, err.Error())

	case errors.As(err, &validationErr):
		return unprocessable(c, "document "+validationErr.Document+" failed schema validation", validationErr.Causes)

	case executor.IsConflictError(err), errors.Is(err, executor.ErrAlreadyExecuted):
		return conflict(c, err.Error())

	case executor.IsNotFoundError(err), services.IsNotFound(err), tree.IsCaseNotFound(err):
		return notFound(c, err.Error())

	case services.IsModelConflict(err):
		return conflict(c, err.Error())

	case services.IsModelValidation(err):
		return badRequest(c, err.Error())

	default:
		if _, ok := executor.CodeOf(err); ok {
			// Remaining execution codes are malformed requests or action
			// definitions.
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}
}
