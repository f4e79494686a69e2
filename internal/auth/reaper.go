package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ops-console-backend/internal/model"
)

// PurgeExpired deletes every session past its expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&model.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RunReaper purges expired sessions at start and then every interval until
// ctx is done.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	s.log.Info("starting session reaper", zap.Duration("interval", interval))
	s.reap(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("session reaper shutting down")
			return
		case <-timer.C:
			s.reap(ctx)
			timer.Reset(interval)
		}
	}
}

func (s *Service) reap(ctx context.Context) {
	n, err := s.PurgeExpired(ctx)
	if err != nil {
		s.log.Warn("session purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("expired sessions purged", zap.Int64("count", n))
	}
}
