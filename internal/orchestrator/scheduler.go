package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/OldStager01/stock-forecaster/internal/logger"
)

// Scheduler retrains the models on a cron schedule.
type Scheduler struct {
	orchestrator *Orchestrator
	cron         *cron.Cron
	days         int
	timeout      time.Duration

	mu      sync.Mutex
	running bool
}

// NewScheduler parses a standard five-field cron expression.
func NewScheduler(o *Orchestrator, spec string, days int, timeout time.Duration) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	s := &Scheduler{
		orchestrator: o,
		cron:         cron.New(),
		days:         days,
		timeout:      timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.retrain); err != nil {
		return nil, fmt.Errorf("invalid retrain schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	logger.Info("Retrain scheduler started")
}

// Stop waits for a running retrain to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	logger.Info("Retrain scheduler stopped")
}

func (s *Scheduler) retrain() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.orchestrator.TrainModels(ctx, s.days)
	if err != nil {
		logger.Errorf("Scheduled retrain failed: %v", err)
		return
	}
	if !report.Success {
		logger.WithField("run_id", report.RunID).Warnf("Scheduled retrain skipped: %s", report.Error)
		return
	}
	logger.WithField("run_id", report.RunID).Infof("Scheduled retrain complete on %d points", report.DataPoints)
}
