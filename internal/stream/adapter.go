package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/penflow/penflow/internal/ledger"
	"github.com/penflow/penflow/internal/session"
	"github.com/penflow/penflow/models"
)

const defaultCancelGrace = 3 * time.Second

// Adapter owns the single live push-event connection for one (document,
// chapter) context. It reads events in arrival order and fans them out to
// the state machine, the suggestion ledger and the thinking log.
type Adapter struct {
	machine  *session.Machine
	ledger   *ledger.Ledger
	thinking *ledger.ThinkingLog
	preview  *ledger.PreviewSlot

	grace time.Duration

	mu         sync.Mutex
	contextKey string
	cancel     context.CancelFunc
	body       io.Closer
	done       chan struct{}
	cancelled  bool
}

// NewAdapter wires an adapter to the session state it dispatches into.
// Grace <= 0 uses the default cancellation grace period.
func NewAdapter(machine *session.Machine, lg *ledger.Ledger, thinking *ledger.ThinkingLog, preview *ledger.PreviewSlot, grace time.Duration) *Adapter {
	if grace <= 0 {
		grace = defaultCancelGrace
	}
	return &Adapter{
		machine:  machine,
		ledger:   lg,
		thinking: thinking,
		preview:  preview,
		grace:    grace,
	}
}

// Attach starts consuming an event stream. Any previous connection is
// aborted first; there is never more than one live connection per adapter.
// The returned channel closes when the stream has been fully drained.
func (a *Adapter) Attach(ctx context.Context, body io.ReadCloser) <-chan struct{} {
	a.abort()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel = cancel
	a.body = body
	a.done = done
	a.cancelled = false
	a.mu.Unlock()

	go func() {
		defer close(done)
		defer func() { _ = body.Close() }()
		a.consume(ctx, body)
	}()
	return done
}

func (a *Adapter) consume(ctx context.Context, body io.Reader) {
	scanner := NewScanner(body)
	for {
		if ctx.Err() != nil {
			return
		}
		ev, err := scanner.Next()
		if err != nil {
			if ctx.Err() != nil {
				// Deliberate abort; the caller owns the state transition.
				return
			}
			if !errors.Is(err, io.EOF) {
				slog.Debug("event stream read failed", "error", err)
			}
			a.streamEnded()
			return
		}
		a.Dispatch(ev)
	}
}

// streamEnded handles transport teardown. A drop before any completion
// event forces the session into the error state; a user-initiated cancel
// or a terminal session is left alone.
func (a *Adapter) streamEnded() {
	a.mu.Lock()
	cancelled := a.cancelled
	a.mu.Unlock()
	if cancelled {
		return
	}
	if s := a.machine.Session(); !s.Status.Terminal() && s.Status != models.StatusPaused {
		a.machine.Fail("connection to analysis service lost")
	}
}

// Dispatch routes one event. Exposed so tests and non-streaming callers can
// feed events directly; ordering is the caller's responsibility.
func (a *Adapter) Dispatch(ev session.Event) {
	a.machine.Handle(ev)

	switch ev.Type {
	case session.EventSuggestion:
		a.ledger.Add(ev.Model())
	case session.EventPlanReady:
		batch := make([]models.Suggestion, 0, len(ev.Suggestions))
		for _, p := range ev.Suggestions {
			batch = append(batch, p.Model())
		}
		a.ledger.AddBatch(batch)
	}

	if kind, ok := ev.TraceKind(); ok {
		title, body := traceParts(ev)
		a.thinking.Append(kind, title, body)
	}
}

func traceParts(ev session.Event) (title, body string) {
	switch ev.Type {
	case session.EventThinking:
		return ev.Step, ev.Content
	case session.EventAction:
		return ev.Action, ev.Description
	case session.EventObservation:
		if ev.Result != "" {
			return ev.Result, ev.Content
		}
		return ev.Step, ev.Content
	case session.EventParagraphStart:
		return fmt.Sprintf("Paragraph %d", ev.Index+1), ev.TextPreview
	case session.EventParagraphComplete:
		return fmt.Sprintf("Paragraph %d complete", ev.Index+1),
			fmt.Sprintf("%d suggestions", ev.SuggestionsCount)
	case session.EventError:
		return "Error", ev.ErrorText()
	default:
		return "", ""
	}
}

// Cancel aborts the transport best-effort and waits a bounded grace period
// for the server acknowledgement (workflow_paused or a terminal state)
// before force-marking the session cancelled. It never blocks past grace.
func (a *Adapter) Cancel() {
	a.mu.Lock()
	a.cancelled = true
	done := a.done
	cancel := a.cancel
	body := a.body
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if body != nil {
		_ = body.Close()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(a.grace):
			slog.Debug("cancel acknowledgement not received within grace period")
		}
	}

	if s := a.machine.Session(); !s.Status.Terminal() {
		a.machine.MarkCancelled()
	}
}

// SwitchContext must be called when the user moves to a different document
// or chapter: it aborts any open connection, discards buffered events and
// resets session, ledger, preview and trace state so nothing leaks into
// the new context.
func (a *Adapter) SwitchContext(key string) {
	a.mu.Lock()
	same := key != "" && key == a.contextKey
	a.contextKey = key
	a.mu.Unlock()
	if same {
		return
	}

	a.abort()
	a.machine.Reset()
	a.ledger.Reset()
	a.thinking.Reset()
	a.preview.Reset()
}

// ContextKey returns the active (document, chapter) context key.
func (a *Adapter) ContextKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.contextKey
}

func (a *Adapter) abort() {
	a.mu.Lock()
	cancel := a.cancel
	body := a.body
	done := a.done
	a.cancel = nil
	a.body = nil
	a.done = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// Closing the body unblocks a reader stuck in Read; context
	// cancellation alone does not.
	if body != nil {
		_ = body.Close()
	}
	if done != nil {
		<-done
	}
}
