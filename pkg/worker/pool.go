package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kacperjurak/gos2pcore/pkg/models"
	"github.com/kacperjurak/gos2pcore/pkg/profiling"
)

// ErrPoolClosed is reported for jobs submitted after Shutdown.
var ErrPoolClosed = errors.New("worker: pool is shut down")

// ProcessorFunc defines the signature for decoding one work item
type ProcessorFunc func(ctx context.Context, item models.WorkItem) (*models.DecodedFile, error)

// WebhookSender delivers batch summaries
type WebhookSender interface {
	Send(ctx context.Context, item models.WebhookItem) error
}

// Options holds configuration for creating a new worker pool
type Options struct {
	Workers   int
	Processor ProcessorFunc
	Webhook   WebhookSender // optional
}

type job struct {
	ctx   context.Context
	item  models.WorkItem
	reply chan<- models.WorkResult
}

// Pool manages concurrent decode workers
type Pool struct {
	jobs         chan job
	webhookQueue chan models.WebhookItem
	workers      int
	processor    ProcessorFunc
	webhook      WebhookSender

	shutdown  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	sends     sync.WaitGroup
}

// New creates a new worker pool with specified configuration
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}

	pool := &Pool{
		jobs:         make(chan job, opts.Workers*2),
		webhookQueue: make(chan models.WebhookItem, opts.Workers*4),
		workers:      opts.Workers,
		processor:    opts.Processor,
		webhook:      opts.Webhook,
		shutdown:     make(chan struct{}),
	}

	pool.start()
	return pool
}

func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.webhookProcessor()

	log.Info().Int("workers", p.workers).Msg("worker pool started")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case j := <-p.jobs:
			j.reply <- p.processJob(id, j)
		case <-p.shutdown:
			return
		}
	}
}

func (p *Pool) processJob(workerID int, j job) models.WorkResult {
	result := models.WorkResult{
		ID:        j.item.ID,
		RequestID: j.item.RequestID,
		BatchID:   j.item.BatchID,
		Name:      j.item.Name,
	}

	if err := j.ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	profiler := profiling.NewWorkerProfiler(workerID, "decode "+j.item.Name)
	file, err := p.processor(j.ctx, j.item)
	result.ProcessingTime = profiler.Finish()
	result.File = file
	result.Err = err
	result.Success = err == nil && file != nil
	return result
}

// Process runs items on the pool and returns one result per item in input
// order. Items not finished when ctx ends carry ctx.Err().
func (p *Pool) Process(ctx context.Context, items []models.WorkItem) []models.WorkResult {
	results := make([]models.WorkResult, len(items))
	reply := make(chan models.WorkResult, len(items))

	submitted := 0
	for i, item := range items {
		item.ID = i
		if item.StartTime.IsZero() {
			item.StartTime = time.Now()
		}
		if err := p.submit(ctx, job{ctx: ctx, item: item, reply: reply}); err != nil {
			for k := i; k < len(items); k++ {
				results[k] = failed(items[k], k, err)
			}
			break
		}
		submitted++
	}

	done := make([]bool, len(items))
	for received := 0; received < submitted; received++ {
		select {
		case r := <-reply:
			results[r.ID] = r
			done[r.ID] = true
		case <-ctx.Done():
			return fillPending(results, items, done[:submitted], ctx.Err())
		case <-p.shutdown:
			return fillPending(results, items, done[:submitted], ErrPoolClosed)
		}
	}
	return results
}

func (p *Pool) submit(ctx context.Context, j job) error {
	select {
	case <-p.shutdown:
		return ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- j:
		return nil
	default:
		log.Debug().Str("batch_id", j.item.BatchID).Msg("worker pool jobs channel full, job may be delayed")
	}

	select {
	case p.jobs <- j:
		return nil
	case <-p.shutdown:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func fillPending(results []models.WorkResult, items []models.WorkItem, done []bool, err error) []models.WorkResult {
	for k, ok := range done {
		if !ok {
			results[k] = failed(items[k], k, err)
		}
	}
	return results
}

func failed(item models.WorkItem, id int, err error) models.WorkResult {
	return models.WorkResult{
		ID:        id,
		RequestID: item.RequestID,
		BatchID:   item.BatchID,
		Name:      item.Name,
		Err:       err,
	}
}

func (p *Pool) webhookProcessor() {
	defer p.wg.Done()

	for {
		select {
		case item := <-p.webhookQueue:
			p.sends.Add(1)
			go p.sendWebhook(item)
		case <-p.shutdown:
			return
		}
	}
}

func (p *Pool) sendWebhook(item models.WebhookItem) {
	defer p.sends.Done()

	profiler := profiling.NewWebhookProfiler(item.BatchID)
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	err := p.webhook.Send(ctx, item)
	profiler.Finish(err == nil)
	if err != nil {
		log.Warn().Err(err).Str("batch_id", item.BatchID).Msg("webhook delivery failed")
	}
}

// QueueWebhook queues a batch summary for async delivery. It reports false
// when no sender is configured or the queue is full.
func (p *Pool) QueueWebhook(item models.WebhookItem) bool {
	if p.webhook == nil {
		return false
	}
	select {
	case p.webhookQueue <- item:
		return true
	default:
		log.Warn().Str("batch_id", item.BatchID).Msg("webhook queue full, dropping summary")
		return false
	}
}

// Shutdown stops the workers and waits for in-flight webhooks
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		log.Info().Msg("shutting down worker pool")
		close(p.shutdown)
		p.wg.Wait()
		p.sends.Wait()
		log.Info().Msg("worker pool shutdown complete")
	})
}
