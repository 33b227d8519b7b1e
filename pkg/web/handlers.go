// Package web provides HTTP handlers and REST API endpoints for party
// planning.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/festa-dev/festa/pkg/models"
	"github.com/festa-dev/festa/pkg/orchestrator"
)

type APIHandlers struct {
	orchestrator *orchestrator.Orchestrator
	validator    *validator.Validate
}

func NewAPIHandlers(orch *orchestrator.Orchestrator, validate *validator.Validate) *APIHandlers {
	return &APIHandlers{
		orchestrator: orch,
		validator:    validate,
	}
}

func (h *APIHandlers) CreateParty(c fiber.Ctx) error {
	var req CreatePartyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	inputs := make([]models.Input, 0, len(req.Inputs))
	for _, content := range req.Inputs {
		inputs = append(inputs, models.Input{SourceType: "user_request", Content: content})
	}

	party, err := h.orchestrator.Start(c.Context(), inputs, req.Metadata)
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(party)
}

func (h *APIHandlers) GetParty(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Party ID is required")
	}

	party, err := h.orchestrator.Status(c.Context(), id)
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.JSON(party)
}

func (h *APIHandlers) GetParties(c fiber.Ctx) error {
	active, err := h.orchestrator.ListActive(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"active_parties": active,
		"count":          len(active),
	})
}

func (h *APIHandlers) PostFeedback(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Party ID is required")
	}

	var req FeedbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	party, err := h.orchestrator.Feedback(c.Context(), id, req.Feedback, req.Metadata)
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.JSON(party)
}

func (h *APIHandlers) BackupParty(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Party ID is required")
	}

	path, err := h.orchestrator.Backup(c.Context(), id)
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.JSON(BackupResponse{PartyID: id, Path: path})
}

func (h *APIHandlers) DeleteParty(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Party ID is required")
	}

	err := h.orchestrator.Delete(c.Context(), id)
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetStats(c fiber.Ctx) error {
	stats, err := h.orchestrator.Stats(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.orchestrator.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if healthy {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
