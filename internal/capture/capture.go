// Package capture turns an unhandled panic into a persisted crash
// report while preserving the process's normal termination behavior.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fieldtrace/fieldtrace/internal/record"
	"github.com/fieldtrace/fieldtrace/internal/store"
	"github.com/fieldtrace/fieldtrace/internal/trail"
)

// Delegate is the fallback handler that was in place before capture
// was installed. It always receives the original thread name and panic
// value, whether or not persisting the crash succeeded. Held as an
// explicit reference rather than ambient global state so tests can
// inject a substitute and assert forwarding.
type Delegate func(thread string, value any)

// Environment supplies device/app context attached to crash reports.
type Environment func() map[string]string

// Handler captures one crash at a time: snapshot breadcrumbs, gather
// environment context, render the full cause chain, persist through the
// store's synchronous crash write, then forward to the delegate.
type Handler struct {
	store     *store.Store
	trail     *trail.Buffer
	env       Environment
	sessionID string
	delegate  Delegate
	logger    *slog.Logger

	capturing atomic.Bool
}

// New creates a crash handler. A nil environment yields empty context;
// a nil delegate falls back to logging the crash.
func New(st *store.Store, tr *trail.Buffer, env Environment, sessionID string, delegate Delegate, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if env == nil {
		env = func() map[string]string { return nil }
	}
	h := &Handler{
		store:     st,
		trail:     tr,
		env:       env,
		sessionID: sessionID,
		logger:    logger,
	}
	if delegate == nil {
		delegate = func(thread string, value any) {
			logger.Error("unhandled panic", "thread", thread, "panic", fmt.Sprintf("%v", value))
		}
	}
	h.delegate = delegate
	return h
}

// Handle captures one unhandled panic value from the named goroutine
// and then unconditionally forwards it to the delegate. A fault raised
// while already capturing skips persistence and goes straight to the
// delegate; capture never recurses into itself.
func (h *Handler) Handle(thread string, value any) {
	if h.capturing.CompareAndSwap(false, true) {
		h.persist(thread, value, debug.Stack())
		h.capturing.Store(false)
	}
	h.delegate(thread, value)
}

// Recover is the defer-compatible install point:
//
//	defer handler.Recover("worker-1")
//
// It captures a panic and re-panics with the original value so the
// runtime's termination behavior is unchanged.
func (h *Handler) Recover(thread string) {
	if r := recover(); r != nil {
		h.Handle(thread, r)
		panic(r)
	}
}

// persist builds and writes the crash report. Nothing escapes: the
// calling context is a crash handler, and a second fault here would
// suppress the original crash's reporting.
func (h *Handler) persist(thread string, value any, stack []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while capturing crash", "panic", fmt.Sprintf("%v", r))
		}
	}()

	report := &record.CrashReport{
		SessionID:  h.sessionID,
		Timestamp:  time.Now().UnixMilli(),
		Thread:     thread,
		Stacktrace: RenderStacktrace(value, stack),
		Fatal:      true,
		Context:    h.env(),
	}
	if h.trail != nil {
		report.Breadcrumbs = h.trail.Snapshot()
	}

	if path := h.store.WriteCrashSync(report); path != "" {
		h.logger.Info("crash report persisted", "path", path, "thread", thread)
	}
}

// RenderStacktrace renders a panic value and goroutine stack as one
// text blob. Errors include their entire causal chain, one "caused by"
// line per wrapped error, so the stored report carries every message in
// the chain without needing the binary that produced it.
func RenderStacktrace(value any, stack []byte) string {
	var b strings.Builder

	if err, ok := value.(error); ok {
		fmt.Fprintf(&b, "%T: %v", err, err)
		for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
			fmt.Fprintf(&b, "\ncaused by: %T: %v", cause, cause)
		}
	} else {
		fmt.Fprintf(&b, "panic: %v", value)
	}

	if len(stack) > 0 {
		b.WriteString("\n\n")
		b.Write(stack)
	}
	return b.String()
}
