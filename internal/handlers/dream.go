package handlers

import (
	"log"

	"dreamweaver/internal/models"
	"dreamweaver/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DreamHandler handles dream collection API endpoints
type DreamHandler struct {
	store *services.DreamStore
}

// NewDreamHandler creates a new dream handler
func NewDreamHandler(store *services.DreamStore) *DreamHandler {
	return &DreamHandler{store: store}
}

// ListDreams returns the full collection, newest first
// GET /api/v1/dreams
func (h *DreamHandler) ListDreams(c *fiber.Ctx) error {
	dreams := h.store.List()
	return c.JSON(fiber.Map{
		"dreams": dreams,
		"count":  len(dreams),
	})
}

// GetDream returns a single dream by ID
// GET /api/v1/dreams/:id
func (h *DreamHandler) GetDream(c *fiber.Ctx) error {
	id := c.Params("id")
	dream, ok := h.store.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Dream not found",
		})
	}
	return c.JSON(dream)
}

// UpdateDream applies a partial-field update to one dream
// PUT /api/v1/dreams/:id
func (h *DreamHandler) UpdateDream(c *fiber.Ctx) error {
	id := c.Params("id")

	var patch models.DreamUpdate
	if err := c.BodyParser(&patch); err != nil {
		log.Printf("⚠️ [DREAM-API] Invalid update body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Unknown ids are a silent no-op per the store contract
	h.store.Update(id, patch)
	return c.JSON(fiber.Map{"status": "updated"})
}

// DeleteDream removes one dream
// DELETE /api/v1/dreams/:id
func (h *DreamHandler) DeleteDream(c *fiber.Ctx) error {
	h.store.Delete(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}
