package auditor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Action identifies an audited handler.
type Action struct {
	ID          string
	Description string
}

// Handler receives every audit record. Handlers run on the worker pool, in
// registration order, each with its own copy of the record.
type Handler func(Record)

// Sink is a Handler that can fail. Errors are logged and counted, never
// retried.
type Sink interface {
	Handle(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Handle(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// Hook returns extra top-level fields for a record. It runs on the serving
// goroutine after the handler returned, with the live request.
type Hook func(r *http.Request, resp *ResponseSnapshot) map[string]any

type sinkEntry struct {
	name string
	sink Sink
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLogger sets the logger used for the default record line and for
// dispatch failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Auditor) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithRegisterer registers the auditor metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *Auditor) { a.registerer = reg }
}

// WithClock overrides the time source used for request timing.
func WithClock(now func() time.Time) Option {
	return func(a *Auditor) {
		if now != nil {
			a.now = now
		}
	}
}

// Auditor captures audited requests and dispatches their records to the
// registered sinks.
type Auditor struct {
	opts       Options
	logger     *slog.Logger
	registerer prometheus.Registerer
	now        func() time.Time

	requests  *RequestExtractor
	responses *ResponseExtractor

	mu     sync.RWMutex
	routes map[string]Action
	sinks  []sinkEntry
	hook   Hook

	queue    *dispatcher
	metrics  *collectors
	dropWarn rate.Sometimes

	ctx    context.Context
	cancel context.CancelFunc
}

// New validates opts and starts the worker pool.
func New(opts Options, options ...Option) (*Auditor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	a := &Auditor{
		opts:     opts,
		logger:   slog.Default(),
		now:      time.Now,
		routes:   make(map[string]Action),
		dropWarn: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, o := range options {
		o(a)
	}

	a.requests = NewRequestExtractor(opts)
	a.responses = NewResponseExtractor(opts)
	a.metrics = newCollectors(a.registerer)
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.queue = newDispatcher(opts.workers(), opts.queueSize(), a.process, a.logger)
	return a, nil
}

// Options returns the options the auditor was built with.
func (a *Auditor) Options() Options {
	return a.opts
}

// Enabled reports whether requests are audited.
func (a *Auditor) Enabled() bool {
	return !a.opts.Skip
}

// Register maps a route to an action for Middleware. An empty method matches
// any method.
func (a *Auditor) Register(method, route, actionID, description string) error {
	if actionID == "" {
		return ErrInvalidAction
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[routeKey(method, route)] = Action{ID: actionID, Description: description}
	return nil
}

// Lookup returns the action registered for method and route, preferring a
// method-specific registration.
func (a *Auditor) Lookup(method, route string) (Action, bool) {
	if route == "" {
		return Action{}, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if action, ok := a.routes[routeKey(method, route)]; ok {
		return action, true
	}
	action, ok := a.routes[routeKey("", route)]
	return action, ok
}

func routeKey(method, route string) string {
	if method == "" {
		return route
	}
	return method + " " + route
}

// RegisterLogHandler adds h to the handlers receiving every record.
func (a *Auditor) RegisterLogHandler(h Handler) error {
	if h == nil {
		return ErrInvalidHandler
	}
	return a.addSink("", SinkFunc(func(_ context.Context, rec Record) error {
		h(rec)
		return nil
	}))
}

// RegisterSink adds s to the handlers receiving every record. A sink with a
// Name() string method is reported under that name.
func (a *Auditor) RegisterSink(s Sink) error {
	if s == nil {
		return ErrInvalidHandler
	}
	name := ""
	if n, ok := s.(interface{ Name() string }); ok {
		name = n.Name()
	}
	return a.addSink(name, s)
}

func (a *Auditor) addSink(name string, s Sink) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if name == "" {
		name = fmt.Sprintf("handler-%d", len(a.sinks))
	}
	a.sinks = append(a.sinks, sinkEntry{name: name, sink: s})
	return nil
}

// RegisterHook sets the hook, replacing any previous one.
func (a *Auditor) RegisterHook(h Hook) error {
	if h == nil {
		return ErrInvalidHook
	}
	a.mu.Lock()
	a.hook = h
	a.mu.Unlock()
	return nil
}

// Pending returns the number of queued records.
func (a *Auditor) Pending() int {
	return a.queue.pending()
}

// Close stops accepting records and waits for queued ones to be handled.
// When ctx ends first, running sinks see their context cancelled.
func (a *Auditor) Close(ctx context.Context) error {
	err := a.queue.close(ctx)
	if err != nil {
		a.cancel()
		return fmt.Errorf("auditor: drain queue: %w", err)
	}
	a.cancel()
	return nil
}

// BuildRecord assembles the record of one request. Extras are copied and
// never replace built-in keys. Missing values are replaced with the
// NotAvailable sentinel.
func (a *Auditor) BuildRecord(action Action, req *RequestSnapshot, resp *ResponseSnapshot, extra map[string]any) Record {
	rec := Record{
		AttrSource:      a.opts.SourceName,
		AttrStartTime:   req.Start.Format(a.opts.DatetimeFormat),
		AttrActionID:    action.ID,
		AttrDescription: optional(action.Description),
		AttrRequest:     a.requests.Extract(req, resp),
		AttrResponse:    a.responses.Extract(resp),
	}
	if a.opts.LogLatency {
		rec[AttrLatency] = Latency(req.Start, resp.End)
	}
	for k, v := range extra {
		if _, ok := rec[k]; ok {
			continue
		}
		rec[k] = cloneValue(v)
	}
	return FillMissing(rec, a.opts.NotAvailable)
}

// Latency returns the seconds between start and end rounded to 5 decimals.
func Latency(start, end time.Time) float64 {
	if end.Before(start) {
		return 0
	}
	return decimal.NewFromFloat(end.Sub(start).Seconds()).Round(5).InexactFloat64()
}

// finish runs the hook and queues the record. It is called on the serving
// goroutine.
func (a *Auditor) finish(live *http.Request, action Action, req *RequestSnapshot, resp *ResponseSnapshot, extra map[string]any) {
	a.mu.RLock()
	hook := a.hook
	a.mu.RUnlock()

	// the worker must not share maps with the handler or the hook
	merged := make(map[string]any, len(extra))
	for k, v := range extra {
		merged[k] = cloneValue(v)
	}
	if hook != nil {
		for k, v := range a.callHook(hook, live, resp, action) {
			merged[k] = cloneValue(v)
		}
	}

	err := a.queue.submit(job{action: action, req: req, resp: resp, extra: merged})
	if err != nil {
		a.metrics.dropped.Inc()
		a.dropWarn.Do(func() {
			a.logger.Warn("audit record dropped", "action", action.ID, "error", err)
		})
	}
}

func (a *Auditor) callHook(hook Hook, live *http.Request, resp *ResponseSnapshot, action Action) (extra map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("audit hook panic", "action", action.ID, "panic", fmt.Sprint(r))
			extra = nil
		}
	}()
	return hook(live, resp)
}

func (a *Auditor) process(j job) {
	start := time.Now()
	rec := a.BuildRecord(j.action, j.req, j.resp, j.extra)
	a.metrics.build.Observe(time.Since(start).Seconds())
	a.metrics.records.WithLabelValues(j.action.ID).Inc()

	if err := a.emit(rec); err != nil {
		a.logger.Error("audit sink failed", "action", j.action.ID, "error", err)
	}
}

func (a *Auditor) emit(rec Record) error {
	a.mu.RLock()
	sinks := a.sinks
	a.mu.RUnlock()

	if len(sinks) == 0 {
		a.logger.Info("audit record", slog.Any("record", map[string]any(rec)))
		return nil
	}

	var errs []error
	for _, s := range sinks {
		if err := a.callSink(s, rec.Clone()); err != nil {
			a.metrics.sinkErrors.WithLabelValues(s.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	if len(errs) > 0 {
		return &MultiError{Errors: errs}
	}
	return nil
}

func (a *Auditor) callSink(s sinkEntry, rec Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.sink.Handle(a.ctx, rec)
}
