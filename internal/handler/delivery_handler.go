package handler

import (
	"errors"

	"atelier-sync/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryHandler exposes the read side the operator UI needs to pick
// resync targets: a delivery's items with their synced flags and last
// sync errors.
type DeliveryHandler struct {
	deliveryRepo repository.DeliveryRepository
}

func NewDeliveryHandler(deliveryRepo repository.DeliveryRepository) *DeliveryHandler {
	return &DeliveryHandler{deliveryRepo: deliveryRepo}
}

func (h *DeliveryHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid delivery id"})
	}

	delivery, err := h.deliveryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Delivery not found"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "delivery": delivery})
}

func (h *DeliveryHandler) GetItems(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid delivery id"})
	}

	items, err := h.deliveryRepo.FindItems(id)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "items": items})
}
