package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/usecase"
)

// Sweeper runs the expiration sweep on a cron schedule. Multiple instances
// can run the same schedule safely: the sweep's conditional updates make
// concurrent runs converge instead of double-releasing.
type Sweeper struct {
	cron       *cron.Cron
	expiration *usecase.ExpirationService
	spec       string
	logger     *zap.Logger
}

func NewSweeper(expiration *usecase.ExpirationService, spec string, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cron:       cron.New(),
		expiration: expiration,
		spec:       spec,
		logger:     logger,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cancel()

		if _, err := s.expiration.SweepExpired(ctx); err != nil {
			s.logger.Error("Expiration sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Expiration sweeper started", zap.String("spec", s.spec))
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Expiration sweeper stopped")
}
