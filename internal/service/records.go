package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/demonlist-ranking/internal/domain"
	"github.com/demonlist-ranking/internal/points"
)

// RecordService drives the record lifecycle: submit, approve, reject, delete
type RecordService struct {
	store     Store
	publisher EventPublisher
	logger    *slog.Logger
}

// NewRecordService creates a new record service
func NewRecordService(store Store, publisher EventPublisher, logger *slog.Logger) *RecordService {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	return &RecordService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Submit creates a pending record for the user
func (s *RecordService) Submit(ctx context.Context, userID string, submission domain.RecordSubmission) (*domain.Record, error) {
	if err := submission.Validate(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	demon, err := s.store.GetDemon(ctx, submission.DemonID)
	if err != nil {
		return nil, err
	}
	if !points.AcceptsSubmissions(demon.Position, demon.ListType) {
		return nil, domain.ErrSubmissionClosed
	}

	record := &domain.Record{
		ID:          uuid.NewString(),
		UserID:      userID,
		DemonID:     demon.ID,
		VideoURL:    submission.VideoURL,
		Status:      domain.RecordPending,
		SubmittedAt: time.Now(),
	}
	if err := s.store.CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}

	s.logger.Info("record submitted", "record_id", record.ID, "user_id", userID, "demon_id", demon.ID)
	return record, nil
}

// SubmitBatch submits several records, logging and skipping the ones that fail
func (s *RecordService) SubmitBatch(ctx context.Context, submissions []domain.RecordSubmission) int {
	accepted := 0
	for _, sub := range submissions {
		if _, err := s.Submit(ctx, sub.UserID, sub); err != nil {
			s.logger.Error("failed to submit record in batch",
				"user_id", sub.UserID,
				"demon_id", sub.DemonID,
				"error", err,
			)
			continue
		}
		accepted++
	}
	return accepted
}

// Approve moves a pending record to approved and credits the completion
func (s *RecordService) Approve(ctx context.Context, reviewerID, recordID string) (*domain.Record, error) {
	return s.review(ctx, reviewerID, recordID, domain.RecordApproved, domain.EventRecordApproved)
}

// Reject moves a pending record to rejected
func (s *RecordService) Reject(ctx context.Context, reviewerID, recordID string) (*domain.Record, error) {
	return s.review(ctx, reviewerID, recordID, domain.RecordRejected, domain.EventRecordRejected)
}

func (s *RecordService) review(ctx context.Context, reviewerID, recordID string, status domain.RecordStatus, eventType string) (*domain.Record, error) {
	current, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, domain.ErrInvalidTransition
	}

	record, err := s.store.ReviewRecord(ctx, recordID, status, reviewerID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("reviewing record: %w", err)
	}

	s.logger.Info("record reviewed", "record_id", recordID, "status", status, "reviewer_id", reviewerID)
	publishEvent(ctx, s.publisher, s.logger, domain.Event{
		Type:      eventType,
		ActorID:   reviewerID,
		RecordID:  record.ID,
		DemonID:   record.DemonID,
		UserID:    record.UserID,
		Timestamp: time.Now(),
	})
	return record, nil
}

// Delete removes a record in any state. Removing an approved record takes the
// completion back.
func (s *RecordService) Delete(ctx context.Context, actorID, recordID string) error {
	record, err := s.store.DeleteRecord(ctx, recordID)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	s.logger.Info("record deleted", "record_id", recordID, "status", record.Status, "actor_id", actorID)
	publishEvent(ctx, s.publisher, s.logger, domain.Event{
		Type:      domain.EventRecordDeleted,
		ActorID:   actorID,
		RecordID:  record.ID,
		DemonID:   record.DemonID,
		UserID:    record.UserID,
		Timestamp: time.Now(),
		Metadata:  map[string]interface{}{"status": string(record.Status)},
	})
	return nil
}

// List returns records for review, newest first. An empty status lists all.
func (s *RecordService) List(ctx context.Context, status domain.RecordStatus) ([]domain.RecordDetail, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Invalid("status", "unknown status %q", status)
	}
	records, err := s.store.ListRecords(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}

// ListByUser returns the user's own submissions, newest first
func (s *RecordService) ListByUser(ctx context.Context, userID string) ([]domain.Record, error) {
	records, err := s.store.ListRecordsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user records: %w", err)
	}
	return records, nil
}

// ListApprovedForDemon returns the approved records of a demon
func (s *RecordService) ListApprovedForDemon(ctx context.Context, demonID string) ([]domain.RecordDetail, error) {
	if _, err := s.store.GetDemon(ctx, demonID); err != nil {
		return nil, err
	}
	records, err := s.store.ListApprovedRecordsByDemon(ctx, demonID)
	if err != nil {
		return nil, fmt.Errorf("listing demon records: %w", err)
	}
	return records, nil
}
