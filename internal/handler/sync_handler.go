package handler

import (
	"errors"
	"fmt"
	"time"

	"atelier-sync/internal/service"
	"atelier-sync/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Request schemas are explicit and validated at the boundary: malformed
// input fails fast with a field-level error instead of propagating as
// loose JSON into the engines.

type AssignSKUsRequest struct {
	MaxVariants      int    `json:"maxVariants" validate:"gte=0"`
	ProcessID        string `json:"processId" validate:"omitempty,uuid"`
	ResumeFromCursor string `json:"resumeFromCursor"`
}

type SyncInventoryRequest struct {
	DeliveryID    string                 `json:"deliveryId" validate:"required,uuid"`
	ApprovedItems []service.ApprovedItem `json:"approvedItems" validate:"required,min=1,dive"`
}

type ResyncDeliveryRequest struct {
	DeliveryID   string   `json:"deliveryId" validate:"required,uuid"`
	SpecificSKUs []string `json:"specificSkus"`
	RetryAll     bool     `json:"retryAll"`
}

type FixDuplicationsRequest struct {
	Action      string `json:"action" validate:"required,oneof=investigate clean validate"`
	Date        string `json:"date" validate:"required,isodate"`
	SpecificSKU string `json:"specificSku"`
}

type SyncHandler struct {
	repair        service.SKURepairService
	consolidation service.ConsolidationService
	push          service.InventoryPushService
	duplication   service.DuplicationService
}

func NewSyncHandler(
	repair service.SKURepairService,
	consolidation service.ConsolidationService,
	push service.InventoryPushService,
	duplication service.DuplicationService,
) *SyncHandler {
	return &SyncHandler{
		repair:        repair,
		consolidation: consolidation,
		push:          push,
		duplication:   duplication,
	}
}

func validationError(c *fiber.Ctx, errs []*validator.ErrorResponse) error {
	first := errs[0]
	return c.Status(400).JSON(fiber.Map{
		"success": false,
		"error":   fmt.Sprintf("Validation failed: Field '%s' failed on tag '%s'", first.FailedField, first.Tag),
	})
}

// AssignShopifySKUs drives the SKU repair engine.
func (h *SyncHandler) AssignShopifySKUs(c *fiber.Ctx) error {
	var req AssignSKUsRequest
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return validationError(c, errs)
	}

	engineReq := service.RepairRequest{
		MaxVariants:      req.MaxVariants,
		ResumeFromCursor: req.ResumeFromCursor,
	}
	if req.ProcessID != "" {
		processID, err := uuid.Parse(req.ProcessID)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid process id"})
		}
		engineReq.ProcessID = processID
	}

	summary, err := h.repair.RepairArtificialSKUs(c.Context(), engineReq)
	if err != nil {
		if summary != nil {
			// partial batch failure: progress is recorded and resumable
			return c.Status(502).JSON(fiber.Map{"success": false, "summary": summary, "message": err.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"summary": summary,
		"message": fmt.Sprintf("Repaired %d of %d variants (%d errors)", summary.Updated, summary.Processed, summary.Errors),
	})
}

// ConsolidateDuplicateVariants drives the consolidation engine.
func (h *SyncHandler) ConsolidateDuplicateVariants(c *fiber.Ctx) error {
	summary, err := h.consolidation.ConsolidateDuplicates(c.Context())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success":               true,
		"variants_consolidated": summary.VariantsConsolidated,
		"consolidation_details": summary.Details,
	})
}

// SyncInventory drives the inventory push engine for a delivery's
// approved items.
func (h *SyncHandler) SyncInventory(c *fiber.Ctx) error {
	var req SyncInventoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return validationError(c, errs)
	}

	deliveryID, err := uuid.Parse(req.DeliveryID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid delivery id"})
	}

	summary, results, err := h.push.SyncApprovedItems(c.Context(), deliveryID, req.ApprovedItems)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"summary": summary,
		"results": results,
	})
}

// ResyncDelivery replays a delivery's items, bypassing the synced guard
// only when the operator asks for specific SKUs or a full retry.
func (h *SyncHandler) ResyncDelivery(c *fiber.Ctx) error {
	var req ResyncDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return validationError(c, errs)
	}

	deliveryID, err := uuid.Parse(req.DeliveryID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid delivery id"})
	}

	summary, results, err := h.push.ResyncDelivery(c.Context(), deliveryID, req.SpecificSKUs, req.RetryAll)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"summary": summary,
		"results": results,
	})
}

// FixDuplications routes to the investigator, cleaner, or validator
// depending on the tagged action.
func (h *SyncHandler) FixDuplications(c *fiber.Ctx) error {
	var req FixDuplicationsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return validationError(c, errs)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid date, expected YYYY-MM-DD"})
	}

	switch req.Action {
	case "investigate":
		groups, err := h.duplication.Investigate(c.Context(), date)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true, "duplications": groups})

	case "clean":
		deleted, err := h.duplication.Clean(c.Context(), date, req.SpecificSKU)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true, "deletedEntries": deleted})

	default: // validate
		result, err := h.duplication.Validate(c.Context(), date)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true, "isClean": result.IsClean, "duplicatesRemaining": result.DuplicatesRemaining})
	}
}
