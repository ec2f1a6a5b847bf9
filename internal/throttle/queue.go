package throttle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"mastery-tracker/internal/api"
	"mastery-tracker/internal/config"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Fetcher performs one upstream GET. *api.RiotClient satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	MinDelay     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	CallTimeout  time.Duration
	// Budget is waited on before every dispatch. Nil disables it.
	Budget *rate.Limiter
	Clock  Clock
}

// Queue is the single dispatch lane in front of the Riot API. Calls run one
// at a time in enqueue order, spaced by at least MinDelay.
type Queue struct {
	fetcher Fetcher
	opts    Options
	logger  zerolog.Logger

	mu   sync.Mutex
	tail chan struct{}

	// only touched by the call currently holding the lane
	cursor time.Time

	dispatched   atomic.Int64
	retried      atomic.Int64
	failed       atomic.Int64
	queued       atomic.Int64
	lastDispatch atomic.Int64
}

type Stats struct {
	Dispatched   int64     `json:"dispatched"`
	Retried      int64     `json:"retried"`
	Failed       int64     `json:"failed"`
	Queued       int64     `json:"queued"`
	LastDispatch time.Time `json:"lastDispatch"`
}

func New(fetcher Fetcher, opts Options, logger zerolog.Logger) *Queue {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	done := make(chan struct{})
	close(done)
	return &Queue{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger.With().Str("component", "riot_queue").Logger(),
		tail:    done,
	}
}

// NewFromConfig builds the process-wide queue over the Riot client.
func NewFromConfig(client *api.RiotClient, cfg *config.Config, logger zerolog.Logger) *Queue {
	var budget *rate.Limiter
	if w := cfg.AppRateLimit; w.Requests > 0 {
		budget = rate.NewLimiter(rate.Every(w.Window/time.Duration(w.Requests)), w.Requests)
	}
	return New(client, Options{
		MinDelay:     cfg.QueueMinDelay,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		CallTimeout:  cfg.CallTimeout,
		Budget:       budget,
	}, logger)
}

// Get enqueues an authenticated GET and blocks until it has run.
func (q *Queue) Get(ctx context.Context, url string) ([]byte, error) {
	done := make(chan struct{})

	q.mu.Lock()
	prev := q.tail
	q.tail = done
	q.mu.Unlock()

	q.queued.Add(1)
	defer q.queued.Add(-1)

	select {
	case <-prev:
	case <-ctx.Done():
		// keep the chain intact for whoever queued behind us
		go func() {
			<-prev
			close(done)
		}()
		return nil, ctx.Err()
	}
	defer close(done)

	body, err := q.run(ctx, url)
	if err != nil {
		q.failed.Add(1)
	}
	return body, err
}

func (q *Queue) run(ctx context.Context, url string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := q.waitTurn(ctx); err != nil {
			return nil, err
		}

		body, err := q.dispatch(ctx, url)
		if err == nil {
			return body, nil
		}

		var upErr *api.UpstreamError
		if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusTooManyRequests {
			return nil, err
		}
		if attempt > q.opts.MaxRetries {
			q.logger.Warn().Int("attempts", attempt).Msg("rate limit retries exhausted")
			return nil, fmt.Errorf("rate limited after %d attempts: %w", attempt, err)
		}

		backoff := upErr.RetryAfter
		if backoff <= 0 {
			backoff = q.opts.RetryBackoff
		}
		q.retried.Add(1)
		q.logger.Warn().
			Int("attempt", attempt).
			Dur("retry_in", backoff).
			Msg("429 from Riot, backing off")

		if err := q.opts.Clock.Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

func (q *Queue) waitTurn(ctx context.Context) error {
	if q.opts.Budget != nil {
		if err := q.opts.Budget.Wait(ctx); err != nil {
			return fmt.Errorf("rate budget wait: %w", err)
		}
	}
	if !q.cursor.IsZero() {
		next := q.cursor.Add(q.opts.MinDelay)
		if wait := next.Sub(q.opts.Clock.Now()); wait > 0 {
			if err := q.opts.Clock.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	q.cursor = q.opts.Clock.Now()
	q.lastDispatch.Store(q.cursor.UnixNano())
	return nil
}

func (q *Queue) dispatch(ctx context.Context, url string) ([]byte, error) {
	q.dispatched.Add(1)
	if q.opts.CallTimeout <= 0 {
		return q.fetcher.Get(ctx, url)
	}
	callCtx, cancel := context.WithTimeout(ctx, q.opts.CallTimeout)
	defer cancel()
	return q.fetcher.Get(callCtx, url)
}

// Stats reports lifetime counters.
func (q *Queue) Stats() Stats {
	s := Stats{
		Dispatched: q.dispatched.Load(),
		Retried:    q.retried.Load(),
		Failed:     q.failed.Load(),
		Queued:     q.queued.Load(),
	}
	if n := q.lastDispatch.Load(); n != 0 {
		s.LastDispatch = time.Unix(0, n)
	}
	return s
}
