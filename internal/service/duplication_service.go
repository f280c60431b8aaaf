package service

import (
	"context"
	"sort"
	"time"

	"atelier-sync/internal/model"
	"atelier-sync/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DuplicationEntry struct {
	ID         uuid.UUID       `json:"id"`
	Quantity   int             `json:"quantity"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
	CreatedAt  time.Time       `json:"created_at"`
}

type DuplicationGroup struct {
	Date      string             `json:"date"`
	VariantID uuid.UUID          `json:"variant_id"`
	SKU       string             `json:"sku"`
	Entries   []DuplicationEntry `json:"entries"`
}

type ValidationResult struct {
	IsClean             bool `json:"isClean"`
	DuplicatesRemaining int  `json:"duplicatesRemaining"`
}

type DuplicationService interface {
	Investigate(ctx context.Context, date time.Time) ([]DuplicationGroup, error)
	Clean(ctx context.Context, date time.Time, specificSKU string) (int64, error)
	Validate(ctx context.Context, date time.Time) (*ValidationResult, error)
}

type duplicationService struct {
	metricRepo repository.MetricRepository
	logger     *zap.Logger
}

func NewDuplicationService(metricRepo repository.MetricRepository, logger *zap.Logger) DuplicationService {
	return &duplicationService{metricRepo: metricRepo, logger: logger}
}

// Investigate reports every (date, variant) pair holding more than one
// sales-metric row, with each row's figures, so an operator can inspect
// the damage before cleaning.
func (s *duplicationService) Investigate(ctx context.Context, date time.Time) ([]DuplicationGroup, error) {
	grouped, err := s.groupByVariant(date)
	if err != nil {
		return nil, err
	}

	duplications := []DuplicationGroup{}
	for _, rows := range grouped {
		if len(rows) < 2 {
			continue
		}
		group := DuplicationGroup{
			Date:      date.Format("2006-01-02"),
			VariantID: rows[0].VariantID,
			SKU:       rows[0].SKU,
		}
		for _, row := range rows {
			group.Entries = append(group.Entries, DuplicationEntry{
				ID:         row.ID,
				Quantity:   row.Quantity,
				OrderCount: row.OrderCount,
				Revenue:    row.Revenue,
				CreatedAt:  row.CreatedAt,
			})
		}
		duplications = append(duplications, group)
	}

	sort.Slice(duplications, func(i, j int) bool {
		return duplications[i].VariantID.String() < duplications[j].VariantID.String()
	})
	return duplications, nil
}

// Clean deletes all but one row per duplicated group. The earliest
// created row is canonical: the first sync run wrote it before the
// overlapping run double-counted. Calling Clean on an already-clean date
// deletes nothing.
func (s *duplicationService) Clean(ctx context.Context, date time.Time, specificSKU string) (int64, error) {
	grouped, err := s.groupByVariant(date)
	if err != nil {
		return 0, err
	}

	var toDelete []uuid.UUID
	for _, rows := range grouped {
		if len(rows) < 2 {
			continue
		}
		if specificSKU != "" && rows[0].SKU != specificSKU {
			continue
		}
		// rows arrive ordered by created_at asc, id asc; keep the first.
		for _, row := range rows[1:] {
			toDelete = append(toDelete, row.ID)
		}
	}

	deleted, err := s.metricRepo.DeleteByIDs(toDelete)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("cleaned duplicated sales metrics",
			zap.String("date", date.Format("2006-01-02")),
			zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// Validate is the read-only post-check after a clean.
func (s *duplicationService) Validate(ctx context.Context, date time.Time) (*ValidationResult, error) {
	grouped, err := s.groupByVariant(date)
	if err != nil {
		return nil, err
	}

	remaining := 0
	for _, rows := range grouped {
		if len(rows) > 1 {
			remaining++
		}
	}
	return &ValidationResult{IsClean: remaining == 0, DuplicatesRemaining: remaining}, nil
}

func (s *duplicationService) groupByVariant(date time.Time) (map[uuid.UUID][]model.SalesMetric, error) {
	metrics, err := s.metricRepo.FindByDate(date)
	if err != nil {
		return nil, err
	}
	grouped := make(map[uuid.UUID][]model.SalesMetric)
	for _, m := range metrics {
		grouped[m.VariantID] = append(grouped[m.VariantID], m)
	}
	return grouped, nil
}
