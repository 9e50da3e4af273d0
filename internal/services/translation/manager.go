package translation

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/middleware"
	"github.com/llm-translator-go/internal/services/ai"
	"github.com/llm-translator-go/internal/services/cache"
	"github.com/llm-translator-go/pkg/logger"
	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull = errors.New("translation queue is full")
	ErrBusy      = errors.New("a translation is already in progress")
	ErrInvalid   = errors.New("text rejected by validation")
	ErrStopped   = errors.New("translation manager stopped")
)

// ErrCancelled matches every cancelled translation.
var ErrCancelled = ai.ErrCancelled

// InvalidError carries the validation verdict that rejected a text.
type InvalidError struct {
	Verdict middleware.Verdict
}

func (e *InvalidError) Error() string {
	return ErrInvalid.Error() + ": " + e.Verdict.String()
}

func (e *InvalidError) Is(target error) bool { return target == ErrInvalid }

// Result describes how a submission was served.
type Result struct {
	Text        string
	RequestID   string
	Fingerprint string
	Cached      bool
	Joined      bool
}

type Stats struct {
	Queued              int `json:"queued"`
	Active              int `json:"active"`
	InFlight            int `json:"in_flight"`
	Cached              int `json:"cached"`
	RemainingThisMinute int `json:"remaining_this_minute"`
	RemainingToday      int `json:"remaining_today"`
}

// Manager deduplicates, caches, validates, rate limits and queues
// translation requests, and runs them on a fixed pool of workers.
// All of its state is guarded by mu.
type Manager struct {
	client    ai.Service
	cache     cache.Service
	validator *middleware.TextValidator
	limiter   middleware.RateLimiter
	metrics   *middleware.Metrics
	logger    *logrus.Logger

	model           string
	capacity        int
	workers         int
	shortThreshold  int
	longThreshold   int
	cleanupInterval time.Duration

	mu       sync.Mutex
	inflight map[string]*call
	byID     map[string]*Request
	queue    requestQueue
	ready    chan struct{}
	seq      uint64
	active   int
	stopped  bool
}

// NewManager creates a translation manager
func NewManager(cfg *config.Config, client ai.Service, cacheService cache.Service, validator *middleware.TextValidator, limiter middleware.RateLimiter, metrics *middleware.Metrics, logger *logrus.Logger) *Manager {
	cleanup := cfg.Cache.CleanupInterval
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Manager{
		client:          client,
		cache:           cacheService,
		validator:       validator,
		limiter:         limiter,
		metrics:         metrics,
		logger:          logger,
		model:           cfg.API.Model,
		capacity:        cfg.Queue.Capacity,
		workers:         max(cfg.Queue.Workers, 1),
		shortThreshold:  cfg.Queue.ShortTextThreshold,
		longThreshold:   cfg.Behavior.ChunkSize,
		cleanupInterval: cleanup,
		inflight:        make(map[string]*call),
		byID:            make(map[string]*Request),
		ready:           make(chan struct{}, cfg.Queue.Capacity),
	}
}

// Submit translates text, returning the translation or the first error of
// the pipeline.
func (m *Manager) Submit(ctx context.Context, text string, prompt ai.Prompt, model string) (string, error) {
	res, err := m.SubmitDetailed(ctx, text, prompt, model)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// SubmitDetailed is Submit reporting whether the result came from the
// cache or from another caller's in-flight request.
//
// Order: cache, in-flight join, validation, queue capacity, rate limit.
// A cache hit or a join never consumes a rate limit slot.
func (m *Manager) SubmitDetailed(ctx context.Context, text string, prompt ai.Prompt, model string) (*Result, error) {
	if model == "" {
		model = m.model
	}
	fp := cache.Fingerprint(text, prompt.ID, model)
	res := &Result{Fingerprint: fp}

	m.mu.Lock()

	if m.stopped {
		m.mu.Unlock()
		return nil, ErrStopped
	}

	if translated, ok := m.cache.Get(ctx, fp); ok {
		m.mu.Unlock()
		m.recordCache(true)
		res.Text, res.Cached = translated, true
		return res, nil
	}
	m.recordCache(false)

	// A call whose last waiter left is cancelled but stays in inflight until
	// its worker returns; it must not be joined.
	if c, ok := m.inflight[fp]; ok && c.req.ctx.Err() == nil {
		c.waiters++
		res.RequestID, res.Joined = c.req.ID, true
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.RecordDedupJoin()
		}
		logger.WithRequest(m.logger, c.req.ID, fp).Debug("Joined in-flight translation")
		return m.wait(ctx, c, res)
	}

	if verdict := m.validator.Validate(text); !middleware.IsValid(verdict) {
		m.mu.Unlock()
		return nil, &InvalidError{Verdict: verdict}
	}

	if m.queue.Len() >= m.capacity {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.RecordQueueRejected()
		}
		return nil, ErrQueueFull
	}

	if err := m.limiter.CheckAndUpdate(); err != nil {
		m.mu.Unlock()
		m.recordLimit(err)
		return nil, err
	}

	req := m.enqueueLocked(fp, text, prompt, model)
	res.RequestID = req.ID
	c := req.call
	m.mu.Unlock()

	logger.WithRequest(m.logger, req.ID, fp).WithFields(logrus.Fields{
		"priority": req.Priority.String(),
		"chars":    utf8.RuneCountInString(text),
	}).Debug("Translation queued")

	return m.wait(ctx, c, res)
}

func (m *Manager) enqueueLocked(fp, text string, prompt ai.Prompt, model string) *Request {
	reqCtx, cancel := context.WithCancel(context.Background())
	m.seq++
	req := &Request{
		ID:          uuid.NewString(),
		Fingerprint: fp,
		Text:        text,
		Prompt:      prompt,
		Model:       model,
		Priority:    m.priorityFor(text),
		EnqueuedAt:  time.Now(),
		seq:         m.seq,
		ctx:         reqCtx,
		cancel:      cancel,
	}
	req.call = &call{done: make(chan struct{}), waiters: 1, req: req}

	m.inflight[fp] = req.call
	m.byID[req.ID] = req
	heap.Push(&m.queue, req)
	m.setQueueDepthLocked()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return req
}

// priorityFor favours short selections and defers texts that will be
// chunked.
func (m *Manager) priorityFor(text string) Priority {
	n := utf8.RuneCountInString(text)
	switch {
	case n <= m.shortThreshold:
		return PriorityHigh
	case m.longThreshold > 0 && n > m.longThreshold:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

func (m *Manager) wait(ctx context.Context, c *call, res *Result) (*Result, error) {
	select {
	case <-c.done:
		if c.err != nil {
			return nil, c.err
		}
		res.Text = c.result
		return res, nil
	case <-ctx.Done():
		m.detach(c)
		return nil, ai.Cancelled(ctx.Err())
	}
}

// detach drops one waiter. The request is cancelled once nobody waits
// for it.
func (m *Manager) detach(c *call) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.waiters--
	if c.waiters > 0 {
		return
	}
	m.cancelLocked(c.req, context.Canceled)
}

// Cancel cancels a queued or running request by id.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.byID[id]
	if !ok {
		return false
	}
	m.cancelLocked(req, context.Canceled)
	return true
}

// CancelAll cancels every queued and running request and returns how many
// were affected.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, req := range m.byID {
		m.cancelLocked(req, context.Canceled)
		n++
	}
	if n > 0 {
		m.logger.WithField("requests", n).Info("Cancelled all translations")
	}
	return n
}

// cancelLocked signals req. A queued request is removed and failed at once;
// a running one fails when the client observes the cancellation.
func (m *Manager) cancelLocked(req *Request, cause error) {
	req.cancel()
	if req.index >= 0 {
		heap.Remove(&m.queue, req.index)
		m.setQueueDepthLocked()
		m.finishLocked(req, "", ai.Cancelled(cause))
	}
}

// Run starts the worker pool and blocks until ctx is done. Requests still
// queued at that point fail with ErrStopped.
func (m *Manager) Run(ctx context.Context) {
	m.logger.WithFields(logrus.Fields{
		"workers":  m.workers,
		"capacity": m.capacity,
	}).Info("Translation manager started")

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.worker(ctx)
		}()
	}

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			m.cache.Cleanup()
		}
	}

	m.mu.Lock()
	m.stopped = true
	for _, req := range m.byID {
		req.cancel()
		if req.index >= 0 {
			heap.Remove(&m.queue, req.index)
			m.finishLocked(req, "", ai.Cancelled(ErrStopped))
		}
	}
	m.setQueueDepthLocked()
	m.mu.Unlock()

	wg.Wait()
	m.logger.Info("Translation manager stopped")
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.ready:
		}

		if req := m.next(); req != nil {
			m.process(req)
		}
	}
}

func (m *Manager) next() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queue.Len() == 0 {
		return nil
	}
	req := heap.Pop(&m.queue).(*Request)
	req.started = true
	m.active++
	m.setQueueDepthLocked()
	return req
}

func (m *Manager) process(req *Request) {
	entry := logger.WithRequest(m.logger, req.ID, req.Fingerprint)

	// Cancelled while waiting in the queue.
	if err := req.ctx.Err(); err != nil {
		m.finish(req, "", ai.Cancelled(err))
		return
	}

	start := time.Now()
	out, err := m.client.Translate(req.ctx, req.Text, req.Prompt, req.Model)
	if err != nil {
		entry.WithError(err).WithField("duration", time.Since(start)).Warn("Translation failed")
	} else {
		entry.WithFields(logrus.Fields{
			"duration":   time.Since(start),
			"queue_wait": start.Sub(req.EnqueuedAt),
			"chars_in":   utf8.RuneCountInString(req.Text),
			"chars_out":  utf8.RuneCountInString(out),
			"priority":   req.Priority.String(),
		}).Info("Translation completed")
	}
	m.finish(req, out, err)
}

func (m *Manager) finish(req *Request, out string, err error) {
	m.mu.Lock()
	m.finishLocked(req, out, err)
	m.mu.Unlock()
	req.cancel()
}

// finishLocked publishes the outcome to every waiter. The cache is written
// before the in-flight entry is removed so a concurrent Submit sees one or
// the other.
func (m *Manager) finishLocked(req *Request, out string, err error) {
	c := req.call
	select {
	case <-c.done:
		return
	default:
	}

	if err == nil {
		if cacheErr := m.cache.Set(context.Background(), req.Fingerprint, out); cacheErr != nil {
			m.logger.WithError(cacheErr).Warn("Failed to cache translation")
		}
	}
	if m.inflight[req.Fingerprint] == c {
		delete(m.inflight, req.Fingerprint)
	}
	delete(m.byID, req.ID)
	if req.started {
		m.active--
	}

	c.result, c.err = out, err
	close(c.done)
}

// Stats returns a snapshot of queue, cache and limiter state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	st := Stats{
		Queued:   m.queue.Len(),
		Active:   m.active,
		InFlight: len(m.inflight),
	}
	m.mu.Unlock()

	st.Cached = m.cache.Len()
	st.RemainingThisMinute = m.limiter.RemainingThisMinute()
	st.RemainingToday = m.limiter.RemainingToday()
	return st
}

func (m *Manager) setQueueDepthLocked() {
	if m.metrics != nil {
		m.metrics.SetQueueDepth(m.queue.Len())
	}
}

func (m *Manager) recordCache(hit bool) {
	if m.metrics == nil {
		return
	}
	if hit {
		m.metrics.RecordCacheHit()
	} else {
		m.metrics.RecordCacheMiss()
	}
}

func (m *Manager) recordLimit(err error) {
	if m.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, middleware.ErrMinuteLimit):
		m.metrics.RecordRateLimitExceeded("minute")
	case errors.Is(err, middleware.ErrDailyLimit):
		m.metrics.RecordRateLimitExceeded("daily")
	}
}
