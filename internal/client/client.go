// Package client wires the pipeline together behind the surface host
// applications embed: breadcrumbs in, events in, crashes captured, and
// everything drained to the collector on request.
package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fieldtrace/fieldtrace/internal/capture"
	"github.com/fieldtrace/fieldtrace/internal/config"
	"github.com/fieldtrace/fieldtrace/internal/envinfo"
	"github.com/fieldtrace/fieldtrace/internal/logging"
	"github.com/fieldtrace/fieldtrace/internal/record"
	"github.com/fieldtrace/fieldtrace/internal/store"
	"github.com/fieldtrace/fieldtrace/internal/trail"
	"github.com/fieldtrace/fieldtrace/internal/transport"
	"github.com/fieldtrace/fieldtrace/internal/uploader"
)

// Client is one telemetry session: a spool, a breadcrumb trail, a
// crash handler and an uploader sharing a session id.
type Client struct {
	cfg       *config.Config
	logger    *logging.Logger
	sessionID string

	trail    *trail.Buffer
	store    *store.Store
	env      *envinfo.Provider
	capture  *capture.Handler
	uploader *uploader.Uploader
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger    *logging.Logger
	transport uploader.Transport
	delegate  capture.Delegate
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTransport replaces the HTTP collector client, mainly for tests.
func WithTransport(t uploader.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithCrashDelegate sets the fallback handler that crash capture
// forwards to after persisting.
func WithCrashDelegate(d capture.Delegate) Option {
	return func(o *options) { o.delegate = d }
}

// New creates a client with a fresh session id.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	}

	sessionID := uuid.NewString()
	logger = logger.WithSession(sessionID)

	st := store.New(cfg.SpoolDir, logger.Logger)
	tr := trail.New(cfg.Breadcrumbs.Capacity)
	env := envinfo.New(cfg.AppVersion)

	tp := o.transport
	if tp == nil {
		tp = transport.New(cfg.BaseURL, cfg.APIKey, cfg.Upload.Timeout, logger.Logger)
	}

	c := &Client{
		cfg:       cfg,
		logger:    logger,
		sessionID: sessionID,
		trail:     tr,
		store:     st,
		env:       env,
	}
	c.capture = capture.New(st, tr, env.Context, sessionID, o.delegate, logger.Logger)
	c.uploader = uploader.New(st, tp, env.Environment, sessionID, uploader.Config{
		MaxBatchSize: cfg.Upload.MaxBatchSize,
		PruneCorrupt: cfg.Upload.PruneCorrupt,
	}, logger.Logger)

	return c, nil
}

// SessionID returns this client's session id.
func (c *Client) SessionID() string { return c.sessionID }

// Store exposes the spool for maintenance commands.
func (c *Client) Store() *store.Store { return c.store }

// Uploader exposes the drain machinery for scheduling commands.
func (c *Client) Uploader() *uploader.Uploader { return c.uploader }

// LeaveBreadcrumb records a diagnostic marker on the trail.
func (c *Client) LeaveBreadcrumb(message string, category record.Category) {
	c.trail.Add(message, category)
}

// ClearBreadcrumbs empties the trail, typically at a session boundary.
func (c *Client) ClearBreadcrumbs() {
	c.trail.Clear()
}

// RecordEvent persists one analytics event, durably, before any
// network attempt is made.
func (c *Client) RecordEvent(name string, tags map[string]string, fields map[string]float64) error {
	ev := &record.AnalyticsEvent{
		SessionID: c.sessionID,
		Name:      name,
		Tags:      tags,
		Fields:    fields,
		Time:      time.Now().UnixMilli(),
	}
	_, err := c.store.WriteEvent(ev)
	return err
}

// Recover is the defer-compatible crash capture install point:
//
//	defer client.Recover("main")
//
// recover() only observes a panic when called directly by the deferred
// function, so the call cannot be delegated one frame down.
func (c *Client) Recover(thread string) {
	if r := recover(); r != nil {
		c.capture.Handle(thread, r)
		panic(r)
	}
}

// NotifyPanic captures a panic value without re-raising it, for hosts
// that manage their own recovery.
func (c *Client) NotifyPanic(thread string, value any) {
	c.capture.Handle(thread, value)
}

// Flush drains both record kinds. The two kinds upload concurrently;
// within a kind, batches stay sequential and chronological. Returns the
// per-kind outcomes.
func (c *Client) Flush(ctx context.Context) (events, crashes uploader.Summary) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		events = c.uploader.DrainEvents(ctx)
		return nil
	})
	g.Go(func() error {
		crashes = c.uploader.DrainCrashes(ctx)
		return nil
	})
	_ = g.Wait()
	return events, crashes
}
