package audit

import (
	"context"
	"log/slog"
	"time"
)

type service struct {
	repo   Repository
	logger *slog.Logger

	// Buffered channel for async logging
	asyncChan chan *LogInput
}

// NewService creates a new audit logging service
func NewService(repo Repository, logger *slog.Logger) Service {
	s := &service{
		repo:      repo,
		logger:    logger,
		asyncChan: make(chan *LogInput, 1000), // Buffer up to 1000 logs
	}

	// Start background worker
	go s.asyncWorker()

	return s
}

// Log creates an audit log entry synchronously
func (s *service) Log(ctx context.Context, input *LogInput) error {
	_, err := s.repo.Create(ctx, input)
	if err != nil {
		s.logger.Error("failed to create audit log", "error", err, "action", input.Action)
		return err
	}
	return nil
}

// LogAsync creates an audit log entry asynchronously (non-blocking)
func (s *service) LogAsync(ctx context.Context, input *LogInput) {
	select {
	case s.asyncChan <- input:
		// Successfully queued
	default:
		// Channel full - log warning but don't block
		s.logger.Warn("audit log channel full, dropping log entry", "action", input.Action)
	}
}

// asyncWorker processes audit logs from channel
func (s *service) asyncWorker() {
	for input := range s.asyncChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Log(ctx, input); err != nil {
			s.logger.Error("async audit log failed", "error", err, "action", input.Action)
		}
		cancel()
	}
}

// Query retrieves audit logs with filters
func (s *service) Query(ctx context.Context, filters *ListFilters) ([]*AuditLog, int, error) {
	return s.repo.List(ctx, filters)
}

// Cleanup deletes audit logs older than retentionDays
func (s *service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	before := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.repo.DeleteOlderThan(ctx, before)
	if err != nil {
		s.logger.Error("failed to cleanup old audit logs", "error", err)
		return 0, err
	}

	s.logger.Info("cleaned up old audit logs", "deleted_count", deleted, "retention_days", retentionDays)
	return deleted, nil
}
