package service

import (
	"errors"
	"fmt"

	"atelier-sync/internal/model"
	"atelier-sync/internal/repository"
	"atelier-sync/internal/ws"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned for operator calls that would move a
// batch out of a terminal state or along an undefined edge.
var ErrInvalidTransition = errors.New("invalid batch status transition")

// BatchService drives the sync-batch state machine:
// running -> paused|completed|failed|cancelled, paused -> running.
// Transitions happen only through explicit operator/scheduler calls.
type BatchService interface {
	Get(processID uuid.UUID) (*model.SyncLog, error)
	ListRecent(limit int) ([]model.SyncLog, error)
	Cancel(processID uuid.UUID) (*model.SyncLog, error)
	Pause(processID uuid.UUID) (*model.SyncLog, error)
	Resume(processID uuid.UUID) (*model.SyncLog, error)
}

type batchService struct {
	syncRepo repository.SyncLogRepository
	hub      *ws.Hub
}

func NewBatchService(syncRepo repository.SyncLogRepository, hub *ws.Hub) BatchService {
	return &batchService{syncRepo: syncRepo, hub: hub}
}

func (s *batchService) Get(processID uuid.UUID) (*model.SyncLog, error) {
	return s.syncRepo.FindByProcessID(processID)
}

func (s *batchService) ListRecent(limit int) ([]model.SyncLog, error) {
	return s.syncRepo.ListRecent(limit)
}

func (s *batchService) Cancel(processID uuid.UUID) (*model.SyncLog, error) {
	return s.transition(processID, model.SyncStatusCancelled)
}

func (s *batchService) Pause(processID uuid.UUID) (*model.SyncLog, error) {
	return s.transition(processID, model.SyncStatusPaused)
}

func (s *batchService) Resume(processID uuid.UUID) (*model.SyncLog, error) {
	return s.transition(processID, model.SyncStatusRunning)
}

func (s *batchService) transition(processID uuid.UUID, target model.SyncStatus) (*model.SyncLog, error) {
	batch, err := s.syncRepo.FindByProcessID(processID)
	if err != nil {
		return nil, err
	}

	if !allowedTransition(batch.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, batch.Status, target)
	}

	if err := s.syncRepo.UpdateStatus(processID, target); err != nil {
		return nil, err
	}
	batch.Status = target

	if s.hub != nil {
		s.hub.Publish(ws.ProgressEvent{
			ProcessID: batch.ProcessID.String(),
			SyncType:  string(batch.Type),
			Status:    string(batch.Status),
			Processed: batch.Processed,
			Updated:   batch.Updated,
			Errors:    batch.Errors,
		})
	}
	return batch, nil
}

func allowedTransition(from, to model.SyncStatus) bool {
	if from.Terminal() {
		return false
	}
	switch from {
	case model.SyncStatusRunning:
		return to == model.SyncStatusPaused || to == model.SyncStatusCancelled ||
			to == model.SyncStatusCompleted || to == model.SyncStatusFailed
	case model.SyncStatusPaused:
		return to == model.SyncStatusRunning || to == model.SyncStatusCancelled
	}
	return false
}
