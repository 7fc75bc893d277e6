package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"officeflow/pkg/apperr"
	"officeflow/pkg/metrics"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"
)

// Processor runs one message.
type Processor interface {
	Process(ctx context.Context, msg *Message) error
}

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	Workers          int
	WorkerChanSize   int                       // 워커 채널 버퍼 크기
	JobTimeout       time.Duration             // 기본 작업 타임아웃
	JobTimeoutByType map[JobType]time.Duration // 작업 유형별 타임아웃
	MaxRetries       int
	RetryBase        time.Duration // backoff = base * 2^retries + jitter
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:        4,
		WorkerChanSize: 100,
		JobTimeout:     60 * time.Second,
		JobTimeoutByType: map[JobType]time.Duration{
			JobEmailProcess:      60 * time.Second, // 분류 호출 지연 대비
			JobEmailIngest:       3 * time.Minute,
			JobEscalationScan:    2 * time.Minute,
			JobAnalyticsGenerate: 2 * time.Minute,
			JobSummaryGenerate:   30 * time.Second,
		},
		MaxRetries: 3,
		RetryBase:  time.Second,
	}
}

// PoolStats are cumulative job counters.
type PoolStats struct {
	Processed int64
	Failed    int64
	Retried   int64
	Dropped   int64
}

// Pool runs messages on a go-pkgz/pool worker group and retries transient
// failures with exponential backoff.
type Pool struct {
	proc  Processor
	cfg   PoolConfig
	group *pool.WorkerGroup[*Message]

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	started  bool
	submitMu sync.Mutex // WorkerGroup.Submit는 동시 호출 안전하지 않음

	processed atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64
	dropped   atomic.Int64

	log zerolog.Logger
}

// messageWorker implements pool.Worker for Message processing.
type messageWorker struct {
	pool *Pool
}

func (w *messageWorker) Do(ctx context.Context, msg *Message) error {
	return w.pool.processJob(ctx, msg)
}

func NewPool(proc Processor, cfg PoolConfig, log zerolog.Logger) *Pool {
	def := DefaultPoolConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.WorkerChanSize <= 0 {
		cfg.WorkerChanSize = def.WorkerChanSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = def.RetryBase
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		proc:   proc,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		log:    log.With().Str("component", "worker_pool").Logger(),
	}
}

// Start starts the worker group. Calling it twice is a no-op.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	// batch size 1: 스트림 작업은 모아두지 않고 바로 처리
	p.group = pool.New[*Message](p.cfg.Workers, &messageWorker{pool: p}).
		WithBatchSize(1).
		WithWorkerChanSize(p.cfg.WorkerChanSize).
		WithContinueOnError()

	if err := p.group.Go(p.ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	p.started = true

	p.log.Info().
		Int("workers", p.cfg.Workers).
		Int("max_retries", p.cfg.MaxRetries).
		Msg("worker pool started")
	return nil
}

// Stop waits for queued jobs to finish. Retries scheduled after Stop are
// dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer closeCancel()

	if err := p.group.Close(closeCtx); err != nil {
		p.log.Debug().Err(err).Msg("worker pool closed with job errors")
	}
	p.cancel()

	stats := p.Stats()
	p.log.Info().
		Int64("processed", stats.Processed).
		Int64("failed", stats.Failed).
		Int64("dropped", stats.Dropped).
		Msg("worker pool stopped")
}

// Submit queues a message. It returns false when the pool is not running.
func (p *Pool) Submit(msg *Message) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		p.dropped.Add(1)
		p.log.Warn().Str("job_id", msg.ID).Str("job_type", msg.Type).Msg("job dropped, pool not running")
		return false
	}
	p.submitMu.Lock()
	p.group.Submit(msg)
	p.submitMu.Unlock()
	return true
}

// Handle implements messaging.JobHandler: it decodes a stream entry and
// queues it. An error leaves the entry pending for reclaim.
func (p *Pool) Handle(_ context.Context, stream string, data []byte) error {
	msg, err := DecodeMessage(data)
	if err != nil {
		// 재시도해도 복구 불가, 로그만 남기고 ack
		p.log.Error().Err(err).Str("stream", stream).Msg("invalid job payload")
		return nil
	}
	if !p.Submit(msg) {
		return errors.New("worker pool not running")
	}
	return nil
}

// Stats returns the cumulative counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Retried:   p.retried.Load(),
		Dropped:   p.dropped.Load(),
	}
}

func (p *Pool) timeout(jobType JobType) time.Duration {
	if t, ok := p.cfg.JobTimeoutByType[jobType]; ok {
		return t
	}
	return p.cfg.JobTimeout
}

func (p *Pool) processJob(ctx context.Context, msg *Message) error {
	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, p.timeout(msg.Type))
	defer cancel()

	err := p.proc.Process(jobCtx, msg)
	if err == nil {
		metrics.RecordJob(msg.Type, "success", time.Since(start))
		p.processed.Add(1)
		return nil
	}

	metrics.RecordJob(msg.Type, "error", time.Since(start))
	p.log.Error().
		Err(err).
		Str("job_id", msg.ID).
		Str("job_type", msg.Type).
		Int("retries", msg.Retries).
		Msg("job processing failed")

	if retryable(err) && msg.Retries < p.cfg.MaxRetries {
		msg.Retries++
		p.retried.Add(1)
		time.AfterFunc(p.backoff(msg.Retries), func() {
			p.Submit(msg)
		})
		return err
	}

	p.failed.Add(1)
	p.log.Warn().Str("job_id", msg.ID).Str("job_type", msg.Type).Msg("job given up")
	return err
}

func (p *Pool) backoff(retries int) time.Duration {
	base := p.cfg.RetryBase * time.Duration(1<<retries)
	jitter := time.Duration(rand.Int63n(int64(p.cfg.RetryBase)/2 + 1))
	return base + jitter
}

// 4xx는 입력 문제라 재시도하지 않음
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return apperr.GetHTTPStatus(err) >= http.StatusInternalServerError
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, msg *Message) error

func (f ProcessorFunc) Process(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}
