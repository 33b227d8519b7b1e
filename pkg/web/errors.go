package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/festa-dev/festa/pkg/orchestrator"
	"github.com/festa-dev/festa/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("party_not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleOrchestratorError maps orchestration failures to problem responses.
func handleOrchestratorError(c fiber.Ctx, err error) error {
	switch {
	case orchestrator.IsValidationError(err):
		return badRequest(c, err.Error())
	case persistence.IsPartyNotFound(err):
		return notFound(c, "party not found")
	default:
		return internalError(c, err)
	}
}
