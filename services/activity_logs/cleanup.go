package activitylogs

import (
	"context"
	"fmt"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/logging"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
)

const DefaultRetention = 90 * 24 * time.Hour

type CleanupService struct {
	logs      Recorder
	retention time.Duration
	clock     utils.Clock
	logger    *logging.Logger
}

func NewCleanupService(logs Recorder, retention time.Duration, clock utils.Clock, logger *logging.Logger) *CleanupService {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if clock == nil {
		clock = utils.RealClock{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CleanupService{
		logs:      logs,
		retention: retention,
		clock:     clock,
		logger:    logger,
	}
}

// Task deletes logs older than the retention window. It runs on the scheduler.
func (s *CleanupService) Task(ctx context.Context) error {
	threshold := s.clock.Now().Add(-s.retention)
	n, err := s.logs.DeleteBefore(ctx, threshold)
	if err != nil {
		return fmt.Errorf("activity log cleanup: %w", err)
	}
	if n > 0 {
		s.logger.WithField("deleted", n).Info("activity logs pruned")
	}
	return nil
}
