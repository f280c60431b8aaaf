package service

import (
	"context"
	"sort"
	"strings"

	"atelier-sync/internal/model"
	"atelier-sync/internal/repository"
	"atelier-sync/pkg/sku"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ConsolidationDetail struct {
	ProductID     uuid.UUID   `json:"product_id"`
	Size          string      `json:"size"`
	Color         string      `json:"color"`
	WinnerID      uuid.UUID   `json:"winner_id,omitempty"`
	WinnerSKU     string      `json:"winner_sku,omitempty"`
	MergedIDs     []uuid.UUID `json:"merged_ids,omitempty"`
	StockAfter    int         `json:"stock_after,omitempty"`
	Skipped       bool        `json:"skipped,omitempty"`
	SkippedReason string      `json:"skipped_reason,omitempty"`
}

type ConsolidationSummary struct {
	VariantsConsolidated int                   `json:"variants_consolidated"`
	Details              []ConsolidationDetail `json:"consolidation_details"`
}

type ConsolidationService interface {
	ConsolidateDuplicates(ctx context.Context) (*ConsolidationSummary, error)
}

type consolidationService struct {
	db          *gorm.DB
	variantRepo repository.VariantRepository
	logger      *zap.Logger
}

func NewConsolidationService(db *gorm.DB, variantRepo repository.VariantRepository, logger *zap.Logger) ConsolidationService {
	return &consolidationService{
		db:          db,
		variantRepo: variantRepo,
		logger:      logger,
	}
}

type groupKey struct {
	productID uuid.UUID
	size      string
	color     string
}

// ConsolidateDuplicates merges variant records that describe the same
// real-world variant (same product, size, color). The winner absorbs the
// group's summed stock and every foreign-key reference; losers are
// deleted only after all references point at the winner, inside one
// transaction. A second run over an already-clean catalog reports zero
// changes.
func (s *consolidationService) ConsolidateDuplicates(ctx context.Context) (*ConsolidationSummary, error) {
	variants, err := s.variantRepo.FindActive()
	if err != nil {
		return nil, err
	}

	groups := make(map[groupKey][]model.Variant)
	for _, v := range variants {
		key := groupKey{
			productID: v.ProductID,
			size:      strings.ToLower(strings.TrimSpace(v.Size)),
			color:     strings.ToLower(strings.TrimSpace(v.Color)),
		}
		groups[key] = append(groups[key], v)
	}

	// Stable iteration order keeps details deterministic across runs.
	keys := make([]groupKey, 0, len(groups))
	for key, members := range groups {
		if len(members) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].productID != keys[j].productID {
			return keys[i].productID.String() < keys[j].productID.String()
		}
		if keys[i].size != keys[j].size {
			return keys[i].size < keys[j].size
		}
		return keys[i].color < keys[j].color
	})

	summary := &ConsolidationSummary{Details: []ConsolidationDetail{}}

	for _, key := range keys {
		memberIDs := make([]uuid.UUID, 0, len(groups[key]))
		for _, m := range groups[key] {
			memberIDs = append(memberIDs, m.ID)
		}
		detail := ConsolidationDetail{
			ProductID: key.productID,
			Size:      key.size,
			Color:     key.color,
		}

		var winner *model.Variant
		var losers []model.Variant
		totalStock := 0

		// The catalog scan above only nominates groups; the merge itself
		// works from a locked re-read so concurrent stock movement between
		// scan and commit is never summed away.
		err := s.db.Transaction(func(tx *gorm.DB) error {
			members, err := s.variantRepo.FindGroupForUpdate(tx, memberIDs)
			if err != nil {
				return err
			}
			if len(members) < 2 {
				detail.Skipped = true
				detail.SkippedReason = "group no longer duplicated"
				return nil
			}

			var reason string
			winner, reason = pickWinner(members)
			if winner == nil {
				// Two or more distinct operator-assigned SKUs collide: that
				// is operator data, not placeholder noise, so automatic
				// merging is refused and the group reported for review.
				detail.Skipped = true
				detail.SkippedReason = reason
				return nil
			}

			totalStock = 0
			losers = losers[:0]
			for _, m := range members {
				totalStock += m.Stock
				if m.ID != winner.ID {
					losers = append(losers, m)
				}
			}

			if err := s.variantRepo.UpdateStock(tx, winner.ID, totalStock); err != nil {
				return err
			}
			for _, loser := range losers {
				if err := s.variantRepo.RepointReferences(tx, loser.ID, winner.ID); err != nil {
					return err
				}
			}
			// References confirmed re-pointed; losers can go.
			for _, loser := range losers {
				if err := s.variantRepo.Delete(tx, loser.ID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("consolidation transaction failed",
				zap.String("product_id", key.productID.String()),
				zap.Error(err))
			detail.Skipped = true
			detail.SkippedReason = err.Error()
			summary.Details = append(summary.Details, detail)
			continue
		}
		if detail.Skipped {
			summary.Details = append(summary.Details, detail)
			continue
		}

		detail.WinnerID = winner.ID
		detail.WinnerSKU = winner.SKU
		detail.StockAfter = totalStock
		for _, loser := range losers {
			detail.MergedIDs = append(detail.MergedIDs, loser.ID)
		}
		summary.Details = append(summary.Details, detail)
		summary.VariantsConsolidated += len(losers)

		s.logger.Info("consolidated duplicate variants",
			zap.String("winner_id", winner.ID.String()),
			zap.String("winner_sku", winner.SKU),
			zap.Int("merged", len(losers)),
			zap.Int("stock_after", totalStock))
	}

	return summary, nil
}

// pickWinner applies the deterministic priority: a non-artificial
// numeric-looking SKU beats any placeholder, a non-artificial SKU beats
// an artificial one, and remaining ties go to the earliest-created row.
// Returns nil when the group holds two or more distinct real SKUs.
func pickWinner(members []model.Variant) (*model.Variant, string) {
	realSKUs := make(map[string]bool)
	for _, m := range members {
		if !sku.IsArtificial(m.SKU) {
			realSKUs[m.SKU] = true
		}
	}
	if len(realSKUs) > 1 {
		return nil, "multiple real SKUs, operator review required"
	}

	sorted := make([]model.Variant, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		if rankVariant(sorted[i]) != rankVariant(sorted[j]) {
			return rankVariant(sorted[i]) < rankVariant(sorted[j])
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	return &sorted[0], ""
}

func rankVariant(v model.Variant) int {
	switch {
	case !sku.IsArtificial(v.SKU) && sku.IsNumericLike(v.SKU):
		return 0
	case !sku.IsArtificial(v.SKU):
		return 1
	default:
		return 2
	}
}
