package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"officeflow/core/port/out"

	"github.com/rs/zerolog"
)

// Submitter queues a message for local execution.
type Submitter interface {
	Submit(msg *Message) bool
}

// SchedulerConfig holds the periodic job intervals. A zero interval disables
// that job.
type SchedulerConfig struct {
	EscalationScanInterval time.Duration
	AnalyticsInterval      time.Duration
}

// Scheduler enqueues the periodic stages. Jobs go to the stream when a
// publisher is configured and straight to the local pool otherwise.
type Scheduler struct {
	publisher out.JobPublisher
	local     Submitter
	cfg       SchedulerConfig
	log       zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(publisher out.JobPublisher, local Submitter, cfg SchedulerConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		publisher: publisher,
		local:     local,
		cfg:       cfg,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches one ticker per enabled job.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.every(ctx, JobEscalationScan, s.cfg.EscalationScanInterval)
	s.every(ctx, JobAnalyticsGenerate, s.cfg.AnalyticsInterval)

	s.log.Info().
		Dur("escalation_interval", s.cfg.EscalationScanInterval).
		Dur("analytics_interval", s.cfg.AnalyticsInterval).
		Bool("stream", s.publisher != nil).
		Msg("scheduler started")
}

// Stop cancels the tickers and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) every(ctx context.Context, jobType JobType, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Enqueue(ctx, NewMessage(jobType, map[string]any{})); err != nil {
					s.log.Error().Err(err).Str("job_type", jobType).Msg("failed to enqueue scheduled job")
				}
			}
		}
	}()
}

// Enqueue sends msg to the stream or the local pool.
func (s *Scheduler) Enqueue(ctx context.Context, msg *Message) error {
	if s.publisher != nil {
		return s.publisher.Publish(ctx, msg.Job())
	}
	if s.local == nil {
		return errors.New("no job destination configured")
	}
	if !s.local.Submit(msg) {
		return errors.New("local pool rejected job")
	}
	return nil
}
