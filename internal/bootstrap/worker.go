package bootstrap

import (
	"context"
	"sync"
	"time"

	"officeflow/adapter/in/worker"
	"officeflow/adapter/out/messaging"
	"officeflow/config"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type Worker struct {
	pool      *worker.Pool
	consumer  *messaging.Consumer
	scheduler *worker.Scheduler
	deps      *Dependencies
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	log       zerolog.Logger
}

func NewWorker(cfg *config.Config, log zerolog.Logger) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return newWorker(deps), cleanup, nil
}

// NewAll builds the API and the worker on one set of dependencies, so the
// in-memory store is shared between them.
func NewAll(cfg *config.Config, log zerolog.Logger) (*fiber.App, *Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return newAPI(deps), newWorker(deps), cleanup, nil
}

func newWorker(deps *Dependencies) *Worker {
	cfg := deps.Config
	log := deps.Log.With().Str("component", "worker").Logger()

	handler := worker.NewHandler(worker.Services{
		Router:    deps.Router,
		Ingest:    deps.Ingest,
		Scanner:   deps.Scanner,
		Analytics: deps.Analytics,
		Summaries: deps.Summaries,
	}, log)

	poolCfg := worker.DefaultPoolConfig()
	poolCfg.Workers = cfg.WorkerCount
	pool := worker.NewPool(handler, poolCfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		pool:   pool,
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}

	// Redis Stream Consumer 설정 (Redis가 있을 때만)
	if deps.Redis != nil {
		w.consumer = messaging.NewConsumer(deps.Redis, messaging.ConsumerConfig{
			Group:    "officeflow-workers",
			Consumer: cfg.WorkerID,
			Streams:  messaging.Streams,
			Handler:  pool,
			Logger:   log,
			Block:    time.Duration(cfg.ConsumerBlockMS) * time.Millisecond,
		})
	} else {
		log.Warn().Msg("redis not available, worker only runs scheduled jobs")
	}

	if cfg.SchedulerEnabled {
		schedCfg := worker.SchedulerConfig{
			EscalationScanInterval: cfg.EscalationScanInterval,
			AnalyticsInterval:      cfg.AnalyticsInterval,
		}
		// nil interface를 넘겨야 함 (typed nil 주의)
		if deps.Publisher != nil {
			w.scheduler = worker.NewScheduler(deps.Publisher, nil, schedCfg, log)
		} else {
			w.scheduler = worker.NewScheduler(nil, pool, schedCfg, log)
		}
	}

	return w
}

// Start blocks until Stop is called.
func (w *Worker) Start() error {
	if err := w.pool.Start(); err != nil {
		return err
	}

	if w.consumer != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Run(w.ctx); err != nil && w.ctx.Err() == nil {
				w.log.Error().Err(err).Msg("stream consumer stopped")
			}
		}()
	}
	if w.scheduler != nil {
		w.scheduler.Start(w.ctx)
	}

	w.log.Info().Bool("consumer", w.consumer != nil).Bool("scheduler", w.scheduler != nil).Msg("worker started")
	<-w.ctx.Done()
	return nil
}

// Stop stops intake first, then drains the pool.
func (w *Worker) Stop() {
	w.cancel()
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
	w.wg.Wait()
	w.pool.Stop()
	w.log.Info().Msg("worker stopped")
}
