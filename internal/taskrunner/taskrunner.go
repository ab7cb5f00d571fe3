package taskrunner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"skillscan/internal/service"
	"skillscan/internal/storage"
	"skillscan/log"
)

const (
	defaultQueueSize   = 32
	defaultConcurrency = 1
)

var (
	ErrRunnerStopped = errors.New("task runner stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

// Extractor runs one extraction job.
type Extractor interface {
	Extract(ctx context.Context, req service.ExtractRequest) (*service.ExtractResult, error)
}

// Runner executes queued extraction runs with in-memory workers.
type Runner struct {
	extractor Extractor
	config    Config

	queue  chan service.ExtractRequest
	ctx    context.Context
	cancel context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
}

// New creates and starts a task runner.
func New(extractor Extractor, cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		extractor: extractor,
		config:    cfg,
		queue:     make(chan service.ExtractRequest, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// Submit queues an extraction run and records it as queued. The run id is
// assigned here when the request has none.
func (r *Runner) Submit(req service.ExtractRequest) (string, error) {
	if req.NativeVideo == "" {
		return "", errors.New("native video is required")
	}
	if req.RunId == "" {
		req.RunId = service.NewRunID()
	}
	if r.closed.Load() {
		return "", ErrRunnerStopped
	}

	select {
	case <-r.ctx.Done():
		return "", ErrRunnerStopped
	case r.queue <- req:
	default:
		return "", ErrQueueFull
	}

	if storage.DB != nil {
		run := &storage.Run{
			RunId:           req.RunId,
			Status:          storage.RunStatusQueued,
			StatusMsg:       "排队中 Queued",
			NativeVideo:     req.NativeVideo,
			NativeLang:      req.NativeLang,
			TranslatedVideo: req.TranslatedVideo,
			TranslatedLang:  req.TranslatedLang,
		}
		// A fast worker may already have moved the run past queued.
		if err := storage.CreateRunIfMissing(run); err != nil {
			log.GetLogger().Warn("[TaskRunner] save queued run failed", zap.String("run_id", req.RunId), zap.Error(err))
		}
	}
	log.GetLogger().Info("[TaskRunner] run submitted", zap.String("run_id", req.RunId))
	return req.RunId, nil
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case req := <-r.queue:
			r.process(workerID, req)
		}
	}
}

func (r *Runner) process(workerID int, req service.ExtractRequest) {
	defer func() {
		if p := recover(); p != nil {
			log.GetLogger().Error("[TaskRunner] run panic",
				zap.Int("worker_id", workerID),
				zap.String("run_id", req.RunId),
				zap.Any("panic", p))
			markFailed(req.RunId, "panic")
		}
	}()

	res, err := r.extractor.Extract(r.ctx, req)
	if err != nil {
		log.GetLogger().Error("[TaskRunner] run failed",
			zap.Int("worker_id", workerID),
			zap.String("run_id", req.RunId),
			zap.Error(err))
		return
	}

	log.GetLogger().Info("[TaskRunner] run completed",
		zap.Int("worker_id", workerID),
		zap.String("run_id", req.RunId),
		zap.Int("skills", len(res.Skills)))
}

func markFailed(runID, reason string) {
	if storage.DB == nil {
		return
	}
	_ = storage.UpdateRunStatus(runID, storage.RunStatusFailed, "运行失败 Run Failed", reason)
}

// Close stops workers and rejects new runs. A run in progress sees its
// context cancelled.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}

// Pending returns the number of queued runs waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}
