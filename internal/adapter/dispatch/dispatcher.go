// Package dispatch delivers outbox tasks. A single claimer leases due tasks
// and feeds a pool of workers; results are written back to the outbox.
package dispatch

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	baseBackoff    = 2 * time.Second
	maxBackoff     = 10 * time.Minute
	writeTimeout   = 5 * time.Second
	completedCache = 4096
)

type Dispatcher struct {
	queue       port.TaskQueue
	handler     port.TaskHandler
	logger      *zap.Logger
	workers     int
	poll        time.Duration
	lease       time.Duration
	maxAttempts int
	wake        chan struct{}
	completed   *lru.Cache[string, struct{}]
	now         func() time.Time
}

var _ port.TaskSignaler = (*Dispatcher)(nil)

func New(queue port.TaskQueue, handler port.TaskHandler, cfg *config.Dispatch,
	log *zap.Logger) (*Dispatcher, error) {
	if queue == nil || handler == nil {
		return nil, errors.New("dispatcher: missing dependency")
	}
	completed, err := lru.New[string, struct{}](completedCache)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		queue:       queue,
		handler:     handler,
		logger:      log,
		workers:     max(cfg.Workers, 1),
		poll:        cfg.PollInterval,
		lease:       cfg.Lease,
		maxAttempts: max(cfg.MaxAttempts, 1),
		wake:        make(chan struct{}, 1),
		completed:   completed,
		now:         time.Now,
	}
	if d.poll <= 0 {
		d.poll = 5 * time.Second
	}
	if d.lease <= 0 {
		d.lease = time.Minute
	}
	return d, nil
}

// Signal wakes the claimer. It never blocks; signals that arrive while one is
// pending collapse into it.
func (d *Dispatcher) Signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done. Tasks leased but not finished at shutdown
// become due again when their lease expires.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	tasks := make(chan *domain.Task)

	g.Go(func() error {
		defer close(tasks)
		return d.claimLoop(ctx, tasks)
	})
	for i := range d.workers {
		log := d.logger.With(zap.Int("worker", i))
		g.Go(func() error {
			for task := range tasks {
				d.process(ctx, log, task)
			}
			log.Debug("Finished worker")
			return nil
		})
	}

	return g.Wait()
}

func (d *Dispatcher) claimLoop(ctx context.Context, tasks chan<- *domain.Task) error {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	// pick up whatever a previous run left behind
	d.Signal()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-d.wake:
		}

		for {
			batch, err := d.queue.ClaimTasks(ctx, d.workers*2, d.lease)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d.logger.Error("Claim tasks", zap.Error(err))
				break
			}
			for _, task := range batch {
				select {
				case tasks <- task:
				case <-ctx.Done():
					return nil
				}
			}
			if len(batch) < d.workers*2 {
				break
			}
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, log *zap.Logger, task *domain.Task) {
	log = log.With(
		zap.String("task", task.ID.String()),
		zap.String("kind", string(task.Kind)),
		zap.String("key", task.IdempotencyKey),
		zap.Int("attempt", task.Attempts))

	if d.completed.Contains(task.IdempotencyKey) {
		log.Debug("Task already delivered, skipping")
		d.finish(ctx, log, func(ctx context.Context) error { return d.queue.CompleteTask(ctx, task.ID) })
		return
	}

	log.Debug("Start processing task")
	err := d.handler.Handle(ctx, task)
	if err == nil {
		d.completed.Add(task.IdempotencyKey, struct{}{})
		d.finish(ctx, log, func(ctx context.Context) error { return d.queue.CompleteTask(ctx, task.ID) })
		log.Info("Task delivered")
		return
	}
	if ctx.Err() != nil {
		// shutdown interrupted the delivery; the lease brings it back
		return
	}

	if errors.Is(err, domain.ErrTaskRejected) || task.Attempts >= d.maxAttempts {
		log.Error("Task is dead", zap.Error(err))
		d.finish(ctx, log, func(ctx context.Context) error { return d.queue.BuryTask(ctx, task.ID, err.Error()) })
		return
	}

	delay := backoff(task.Attempts)
	var re *domain.TaskRetryError
	if errors.As(err, &re) && re.After > delay {
		delay = re.After
	}
	next := d.now().Add(delay)
	log.Warn("Task failed, will retry", zap.Duration("in", delay), zap.Error(err))
	d.finish(ctx, log, func(ctx context.Context) error {
		return d.queue.RetryTask(ctx, task.ID, next, err.Error())
	})
}

// finish records a result even when ctx is already cancelled.
func (d *Dispatcher) finish(ctx context.Context, log *zap.Logger, write func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := write(ctx); err != nil {
		log.Error("Record task result", zap.Error(err))
	}
}

// backoff doubles per attempt with up to 20% jitter.
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := baseBackoff
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	d = min(d, maxBackoff)
	return d + time.Duration(rand.Int64N(int64(d)/5+1))
}
