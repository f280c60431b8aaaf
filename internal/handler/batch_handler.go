package handler

import (
	"errors"

	"atelier-sync/internal/model"
	"atelier-sync/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchHandler struct {
	batches service.BatchService
}

func NewBatchHandler(batches service.BatchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

func (h *BatchHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	logs, err := h.batches.ListRecent(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to list sync batches"})
	}
	return c.JSON(fiber.Map{"success": true, "batches": logs})
}

func (h *BatchHandler) Get(c *fiber.Ctx) error {
	processID, err := uuid.Parse(c.Params("processId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid process id"})
	}

	batch, err := h.batches.Get(processID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Batch not found"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "batch": batch})
}

func (h *BatchHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, h.batches.Cancel)
}

func (h *BatchHandler) Pause(c *fiber.Ctx) error {
	return h.transition(c, h.batches.Pause)
}

func (h *BatchHandler) Resume(c *fiber.Ctx) error {
	return h.transition(c, h.batches.Resume)
}

func (h *BatchHandler) transition(c *fiber.Ctx, fn func(uuid.UUID) (*model.SyncLog, error)) error {
	processID, err := uuid.Parse(c.Params("processId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid process id"})
	}

	batch, err := fn(processID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Batch not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			return c.Status(409).JSON(fiber.Map{"success": false, "error": err.Error()})
		default:
			return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"success": true, "batch": batch})
}
