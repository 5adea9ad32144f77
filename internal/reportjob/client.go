// Package reportjob submits background report jobs to the booking service
// and polls them until they finish.
//
// A Client tracks one job at a time. Every Submit mints a fresh idempotency
// token, so retrying the same HTTP request is safe while a new Submit always
// asks for a new job. Failures are terminal; nothing is retried
// automatically.
package reportjob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	DefaultPollInterval    = 1200 * time.Millisecond
	DefaultRequestTimeout  = 10 * time.Second
	DefaultMaxPollDuration = 10 * time.Minute

	maxResponseBytes = 1 << 20
)

var (
	ErrPollLimit    = errors.New("report job did not finish within the poll limit")
	ErrStopped      = errors.New("report job stopped")
	ErrInvalidMonth = errors.New("month must be formatted as YYYY-MM")
)

type Config struct {
	BaseURL string

	PollInterval time.Duration
	// PollMultiplier > 1 grows the poll period up to PollMaxInterval.
	PollMultiplier  float64
	PollMaxInterval time.Duration

	RequestTimeout time.Duration
	// MaxPollDuration bounds how long a job may stay in flight. Negative
	// disables the limit.
	MaxPollDuration time.Duration

	HTTPClient *http.Client
	Metrics    *Metrics

	// OnTransition is called after every state change, outside the client's
	// lock, on the goroutine that caused it. It must not block.
	OnTransition func(Snapshot)
}

type Client struct {
	base         *url.URL
	hc           *http.Client
	cfg          Config
	log          *slog.Logger
	metrics      *Metrics
	onTransition func(Snapshot)

	mu       sync.Mutex
	state    Snapshot
	gen      uint64
	started  time.Time
	cancel   context.CancelFunc
	finished chan struct{}
}

func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse report base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.New("report base url must be absolute")
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollMaxInterval < cfg.PollInterval {
		cfg.PollMaxInterval = cfg.PollInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.MaxPollDuration == 0 {
		cfg.MaxPollDuration = DefaultMaxPollDuration
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		base:         base,
		hc:           hc,
		cfg:          cfg,
		log:          log.With(slog.String("component", "reportjob")),
		metrics:      cfg.Metrics,
		onTransition: cfg.OnTransition,
		state:        Snapshot{Status: StatusIdle},
	}, nil
}

// Snapshot returns a copy of the current job state.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Submit stops any job the client is still polling and requests a report for
// month. It returns once the create request is answered: the snapshot is
// then accepted or inflight with polling running in the background, or
// already terminal. The returned error is the cause of an error state, or
// ErrStopped when Stop or another Submit superseded this one.
func (c *Client) Submit(ctx context.Context, month string) (Snapshot, error) {
	month = strings.TrimSpace(month)
	if _, err := time.Parse("2006-01", month); err != nil {
		return c.Snapshot(), ErrInvalidMonth
	}

	token := uuid.NewString()
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	// Retire the previous job and install this one under the same lock.
	c.mu.Lock()
	c.gen++
	gen := c.gen
	prevCancel := c.cancel
	c.closeFinishedLocked()
	c.cancel = cancel
	c.finished = make(chan struct{})
	c.started = time.Now()
	c.state = Snapshot{Status: StatusInflight, Token: token}
	snap := c.state.clone()
	c.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}

	c.metrics.transition(StatusInflight)
	c.notify(gen, snap)

	log := c.log.With(slog.String("idempotency_key", token), slog.String("month", month))

	resp, err := c.create(ctx, jobCtx, month, token)
	if err != nil {
		log.Warn("report job create failed", slog.Any("err", err))
		return c.fail(gen, err)
	}

	switch resp.Kind {
	case kindDone:
		log.Info("report job done", slog.String("via", "create"))
		return c.complete(gen, resp.Result)
	case kindPending:
		pollURL, err := c.resolve(resp.PollURL)
		if err != nil {
			log.Warn("report job create failed", slog.Any("err", err))
			return c.fail(gen, err)
		}

		snap, ok := c.transition(gen, func(s *Snapshot) {
			s.Status = resp.Status
			s.PollURL = resp.PollURL
		}, func() {
			go c.pollLoop(jobCtx, gen, pollURL, log)
		})
		if !ok {
			return snap, ErrStopped
		}
		log.Info("report job accepted", slog.String("status", string(resp.Status)), slog.String("poll", resp.PollURL))
		return snap, nil
	default:
		return c.fail(gen, ErrUnexpectedResponse)
	}
}

// Stop cancels the current job's outstanding requests and poll loop. The
// snapshot keeps its last state and no later response can change it. Stop
// is safe to call at any time and any number of times.
func (c *Client) Stop() {
	c.mu.Lock()
	c.gen++
	cancel := c.cancel
	c.cancel = nil
	c.closeFinishedLocked()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current job is terminal or stopped, or ctx ends.
func (c *Client) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	finished := c.finished
	c.mu.Unlock()

	if finished == nil {
		return c.Snapshot(), nil
	}
	select {
	case <-finished:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

func (c *Client) pollLoop(ctx context.Context, gen uint64, pollURL *url.URL, log *slog.Logger) {
	schedule := c.newSchedule()

	var deadline time.Time
	if c.cfg.MaxPollDuration > 0 {
		deadline = time.Now().Add(c.cfg.MaxPollDuration)
	}

	timer := time.NewTimer(schedule.NextBackOff())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		resp, err := c.poll(ctx, pollURL)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.metrics.poll("error")
			log.Warn("report job poll failed", slog.Any("err", err))
			_, _ = c.fail(gen, err)
			return
		}

		if resp.Kind == kindDone {
			c.metrics.poll("done")
			log.Info("report job done", slog.String("via", "poll"))
			_, _ = c.complete(gen, resp.Result)
			return
		}

		c.metrics.poll("inflight")
		log.Debug("report job still in flight")

		next := schedule.NextBackOff()
		if next == backoff.Stop || (!deadline.IsZero() && time.Now().Add(next).After(deadline)) {
			log.Warn("report job poll limit reached", slog.Duration("max_poll_duration", c.cfg.MaxPollDuration))
			_, _ = c.fail(gen, ErrPollLimit)
			return
		}
		timer.Reset(next)
	}
}

func (c *Client) newSchedule() backoff.BackOff {
	if c.cfg.PollMultiplier <= 1 {
		return backoff.NewConstantBackOff(c.cfg.PollInterval)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.cfg.PollInterval,
		RandomizationFactor: 0,
		Multiplier:          c.cfg.PollMultiplier,
		MaxInterval:         c.cfg.PollMaxInterval,
	}
	b.Reset()
	return b
}

func (c *Client) create(ctx, jobCtx context.Context, month, token string) (jobResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	stop := context.AfterFunc(jobCtx, cancel)
	defer stop()

	payload, err := json.Marshal(struct {
		Month string `json:"month"`
	}{Month: month})
	if err != nil {
		return jobResponse{}, err
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.base.JoinPath("reports").String(), bytes.NewReader(payload))
	if err != nil {
		return jobResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(IdempotencyHeader, token)

	code, body, err := c.do(req)
	if err != nil {
		return jobResponse{}, err
	}
	return decodeCreate(code, body)
}

func (c *Client) poll(ctx context.Context, pollURL *url.URL) (jobResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pollURL.String(), nil)
	if err != nil {
		return jobResponse{}, err
	}
	req.Header.Set("Accept", "application/json")

	code, body, err := c.do(req)
	if err != nil {
		return jobResponse{}, err
	}
	return decodePoll(code, body)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) resolve(poll string) (*url.URL, error) {
	ref, err := url.Parse(poll)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid poll url: %w", ErrUnexpectedResponse, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return c.base.ResolveReference(ref), nil
	}
	// Relative poll paths live under the base path, as the create endpoint does.
	u := c.base.JoinPath(ref.Path)
	u.RawQuery = ref.RawQuery
	return u, nil
}

func (c *Client) fail(gen uint64, cause error) (Snapshot, error) {
	snap, ok := c.transition(gen, func(s *Snapshot) {
		s.Status = StatusError
		s.Err = cause
	}, nil)
	if !ok {
		return snap, ErrStopped
	}
	return snap, cause
}

func (c *Client) complete(gen uint64, result json.RawMessage) (Snapshot, error) {
	snap, ok := c.transition(gen, func(s *Snapshot) {
		s.Status = StatusDone
		s.Result = result
	}, nil)
	if !ok {
		return snap, ErrStopped
	}
	return snap, nil
}

// transition applies mutate when gen is still the current job. then runs
// under the lock after a successful mutation.
func (c *Client) transition(gen uint64, mutate func(*Snapshot), then func()) (Snapshot, bool) {
	c.mu.Lock()
	if c.gen != gen {
		snap := c.state.clone()
		c.mu.Unlock()
		return snap, false
	}

	mutate(&c.state)
	if then != nil {
		then()
	}
	status := c.state.Status
	var (
		elapsed  time.Duration
		finished chan struct{}
	)
	if status.Terminal() {
		elapsed = time.Since(c.started)
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		finished = c.finished
	}
	snap := c.state.clone()
	c.mu.Unlock()

	c.metrics.transition(status)
	if status.Terminal() {
		c.metrics.finished(status, elapsed)
	}
	c.notify(gen, snap)

	// Waiters wake only after the terminal callback has run.
	if finished != nil {
		c.mu.Lock()
		closeOnce(finished)
		c.mu.Unlock()
	}
	return snap, true
}

func (c *Client) notify(gen uint64, snap Snapshot) {
	if c.onTransition == nil {
		return
	}
	c.mu.Lock()
	stale := c.gen != gen
	c.mu.Unlock()
	if stale {
		return
	}
	c.onTransition(snap)
}

func (c *Client) closeFinishedLocked() {
	if c.finished != nil {
		closeOnce(c.finished)
	}
}

// closeOnce must be called with c.mu held.
func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
