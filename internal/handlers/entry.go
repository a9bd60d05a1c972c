package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"dreamweaver/internal/models"
	"dreamweaver/internal/services"

	"github.com/gofiber/fiber/v2"
)

// EntryHandler exposes the entry workflow: analyze, confirm, discard
type EntryHandler struct {
	workflow *services.EntryWorkflow

	// Upper bound for one submission: both annotation legs plus overhead
	analyzeTimeout time.Duration
}

// NewEntryHandler creates a new entry workflow handler
func NewEntryHandler(workflow *services.EntryWorkflow, analyzeTimeout time.Duration) *EntryHandler {
	return &EntryHandler{workflow: workflow, analyzeTimeout: analyzeTimeout}
}

// Analyze validates a submission, runs both annotation calls and returns
// the merged draft for review
// POST /api/v1/dreams/analyze
func (h *EntryHandler) Analyze(c *fiber.Ctx) error {
	var input models.DreamInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.analyzeTimeout)
	defer cancel()

	draft, err := h.workflow.Submit(ctx, input)
	if err != nil {
		var validationErr *services.ValidationError
		var annotationErr *services.AnnotationError

		switch {
		case errors.As(err, &validationErr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": validationErr.Message,
				"field": validationErr.Field,
			})
		case errors.Is(err, services.ErrSubmissionInFlight):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A submission is already being processed",
			})
		case errors.As(err, &annotationErr):
			log.Printf("❌ [ENTRY-API] Annotation failed: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Dream analysis failed, please try again",
			})
		default:
			log.Printf("❌ [ENTRY-API] Unexpected analyze error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to analyze dream",
			})
		}
	}

	return c.JSON(fiber.Map{"draft": draft})
}

// Confirm persists the reviewed draft
// POST /api/v1/dreams/confirm
func (h *EntryHandler) Confirm(c *fiber.Ctx) error {
	record, err := h.workflow.Confirm()
	if err != nil {
		if errors.Is(err, services.ErrNoDraft) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No draft to save",
			})
		}
		log.Printf("❌ [ENTRY-API] Confirm failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save dream",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"dream": record})
}

// Discard drops the reviewed draft without saving
// POST /api/v1/dreams/discard
func (h *EntryHandler) Discard(c *fiber.Ctx) error {
	h.workflow.Discard()
	return c.JSON(fiber.Map{"status": "discarded"})
}
