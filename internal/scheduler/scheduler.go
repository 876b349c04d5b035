package scheduler

import (
	"context"
	"time"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/logger"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/usecase"
)

// Scheduler triggers batch processing on a fixed interval until its context
// is cancelled. An interval of zero disables it.
type Scheduler struct {
	processor *usecase.Processor
	interval  time.Duration
	log       logger.Logger
}

func New(processor *usecase.Processor, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		processor: processor,
		interval:  interval,
		log:       log,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("Transaction scheduler disabled")
		return
	}

	s.log.Info("Transaction scheduler started",
		logger.StringField("interval", s.interval.String()))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Transaction scheduler stopped")
			return
		case <-ticker.C:
			s.processor.BatchProcess(ctx)
		}
	}
}
