// Package optimizer is the top-level orchestrator of a content-optimization
// session: it owns the session state machine, the suggestion ledger, the
// preview slot and the event stream adapter, and it is the only component
// allowed to request mutations of the host document.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/penflow/penflow/internal/api"
	"github.com/penflow/penflow/internal/ledger"
	"github.com/penflow/penflow/internal/session"
	"github.com/penflow/penflow/internal/stream"
	"github.com/penflow/penflow/internal/textpatch"
	"github.com/penflow/penflow/models"
)

// Controller errors.
var (
	ErrSessionActive  = errors.New("an optimization session is already active")
	ErrNotResumable   = errors.New("session is not paused or cannot be resumed")
	ErrUnknownKey     = errors.New("unknown suggestion key")
	ErrAlreadyApplied = errors.New("suggestion has already been applied")
	ErrNoSelection    = errors.New("no valid paragraphs in selection")
	ErrStartTimeout   = errors.New("optimization session did not start")
	ErrPreviewPending = errors.New("a preview is pending; confirm or revert it first")
)

// Host is the owning editor's callback contract. The controller never
// holds its own copy of the document; every patch is computed against a
// fresh Content() snapshot and written back through SetContent.
type Host interface {
	Content() string
	SetContent(content string)
}

// Notifier receives user-facing notices. Injected instead of a global
// toast manager so the controller stays independent of any UI.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) Info(string)  {}
func (NopNotifier) Warn(string)  {}
func (NopNotifier) Error(string) {}

// Options tunes a controller. Zero values fall back to package defaults.
type Options struct {
	Mode               string
	Scope              string
	Dimensions         []string
	SelectedParagraphs []int

	StartTimeout   time.Duration
	CancelGrace    time.Duration
	UndoDepth      int
	ThinkingLogCap int
}

const defaultStartTimeout = 8 * time.Second

// SuggestionView is the read-only projection handed to rendering.
type SuggestionView struct {
	models.Suggestion
	Key           string
	Applied       bool
	ManualCompare bool
}

// Controller drives one optimization session at a time against one host
// document.
type Controller struct {
	client   *api.Client
	host     Host
	notifier Notifier

	machine  *session.Machine
	ledger   *ledger.Ledger
	thinking *ledger.ThinkingLog
	preview  *ledger.PreviewSlot
	adapter  *stream.Adapter

	mu            sync.Mutex
	mode          string
	scope         string
	dimensions    []string
	selected      []int
	startTimeout  time.Duration
	manualCompare map[string]bool
}

// New creates a controller bound to a host document and notifier.
func New(client *api.Client, host Host, notifier Notifier, opts Options) *Controller {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.Mode == "" {
		opts.Mode = "auto"
	}
	if opts.Scope == "" {
		opts.Scope = "full"
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = defaultStartTimeout
	}

	machine := session.NewMachine()
	lg := ledger.New(opts.UndoDepth)
	thinking := ledger.NewThinkingLog(opts.ThinkingLogCap)
	preview := &ledger.PreviewSlot{}

	return &Controller{
		client:        client,
		host:          host,
		notifier:      notifier,
		machine:       machine,
		ledger:        lg,
		thinking:      thinking,
		preview:       preview,
		adapter:       stream.NewAdapter(machine, lg, thinking, preview, opts.CancelGrace),
		mode:          opts.Mode,
		scope:         opts.Scope,
		dimensions:    opts.Dimensions,
		selected:      opts.SelectedParagraphs,
		startTimeout:  opts.StartTimeout,
		manualCompare: make(map[string]bool),
	}
}

// Session returns a snapshot of the session record.
func (c *Controller) Session() models.Session { return c.machine.Session() }

// LastError returns the most recent session failure message.
func (c *Controller) LastError() string { return c.machine.LastError() }

// Thinking returns a snapshot of the reasoning trace.
func (c *Controller) Thinking() []models.ThinkingEvent { return c.thinking.Entries() }

// CanUndo reports whether an applied suggestion can be undone.
func (c *Controller) CanUndo() bool { return c.ledger.CanUndo() }

// ActivePreview returns the pending preview, if any.
func (c *Controller) ActivePreview() (models.InlinePreview, bool) { return c.preview.Active() }

// Subscribe registers a callback fired after every session transition and
// ledger change.
func (c *Controller) Subscribe(fn func()) {
	c.machine.Subscribe(func(models.Session) { fn() })
	c.ledger.Subscribe(fn)
}

// Suggestions returns read-only views of the collected suggestions in
// arrival order.
func (c *Controller) Suggestions() []SuggestionView {
	c.mu.Lock()
	manual := make(map[string]bool, len(c.manualCompare))
	for k, v := range c.manualCompare {
		manual[k] = v
	}
	c.mu.Unlock()

	raw := c.ledger.Suggestions()
	views := make([]SuggestionView, 0, len(raw))
	for _, s := range raw {
		key := s.Key()
		views = append(views, SuggestionView{
			Suggestion:    s,
			Key:           key,
			Applied:       c.ledger.IsApplied(key),
			ManualCompare: manual[key],
		})
	}
	return views
}

// SetMode sets the workflow mode: auto, review or plan.
func (c *Controller) SetMode(mode string) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

// SetDimensions sets the analysis dimensions requested from the service.
func (c *Controller) SetDimensions(dims []string) {
	c.mu.Lock()
	c.dimensions = dims
	c.mu.Unlock()
}

// SetScopeFull analyzes the whole document.
func (c *Controller) SetScopeFull() {
	c.mu.Lock()
	c.scope = "full"
	c.selected = nil
	c.mu.Unlock()
}

// SetScopeExpression selects paragraphs from a range expression like
// "1-5, 9-18, 20". A non-empty expression yielding no valid paragraphs is
// reported through the notifier and returns ErrNoSelection; scope is left
// unchanged.
func (c *Controller) SetScopeExpression(expr string) error {
	total := len(textpatch.Segment(c.host.Content()))
	indices := ParseParagraphRanges(expr, total)
	if len(indices) == 0 {
		c.notifier.Warn("no valid paragraphs in selection")
		return ErrNoSelection
	}
	c.mu.Lock()
	c.scope = "selected"
	c.selected = indices
	c.mu.Unlock()
	return nil
}

// SwitchDocument must be called when the user moves to another document or
// chapter. All session, ledger, preview and trace state is discarded.
func (c *Controller) SwitchDocument(key string) {
	c.adapter.SwitchContext(key)
	c.mu.Lock()
	c.manualCompare = make(map[string]bool)
	c.mu.Unlock()
}

// Start begins a new optimization session over the current document. Any
// prior completed or failed session state is discarded first; an active
// session must be cancelled before starting another.
func (c *Controller) Start(ctx context.Context) error {
	if s := c.machine.Session(); s.Status == models.StatusRunning || s.Status == models.StatusPaused {
		return ErrSessionActive
	}

	c.machine.Reset()
	c.ledger.Reset()
	c.thinking.Reset()
	c.preview.Reset()
	c.mu.Lock()
	req := api.StartRequest{
		Content:    c.host.Content(),
		Scope:      c.scope,
		Paragraphs: c.selected,
		Dimensions: c.dimensions,
		Mode:       c.mode,
	}
	timeout := c.startTimeout
	c.mu.Unlock()

	body, err := c.client.Start(ctx, req)
	if err != nil {
		c.machine.Fail(err.Error())
		return fmt.Errorf("start optimization: %w", err)
	}

	c.adapter.Attach(ctx, body)
	c.machine.StartWatch(timeout, func() {
		c.notifier.Error("optimization did not start; please try again")
	})
	return nil
}

// Resume continues a paused session, sending the user's latest content so
// the server analyzes what is actually on screen.
func (c *Controller) Resume(ctx context.Context) error {
	s := c.machine.Session()
	if s.Status != models.StatusPaused && !(s.Status == models.StatusError && s.CanResume) {
		return ErrNotResumable
	}
	if s.ID == "" || !s.CanResume {
		return ErrNotResumable
	}

	body, err := c.client.Continue(ctx, s.ID, c.host.Content())
	if err != nil {
		return fmt.Errorf("resume optimization: %w", err)
	}
	c.adapter.Attach(ctx, body)
	return nil
}

// CancelSession aborts the transport immediately and independently asks
// the server to tear the workflow down. It does not wait for both to
// resolve; late events for the old session id are dropped by the machine.
func (c *Controller) CancelSession(ctx context.Context) {
	sessionID := c.machine.Session().ID

	c.adapter.Cancel()

	if sessionID != "" {
		if err := c.client.Cancel(ctx, sessionID); err != nil {
			slog.Debug("server-side cancel failed", "session", sessionID, "error", err)
		}
	}
}

// ApplySuggestion patches the suggestion directly into the host document,
// recording the pre-apply snapshot for undo. An anchor miss never aborts
// the session: the suggestion is flagged for manual side-by-side compare
// and the error is returned for the caller to surface.
func (c *Controller) ApplySuggestion(key string) error {
	if _, pending := c.preview.Active(); pending {
		return ErrPreviewPending
	}
	s, ok := c.ledger.Get(key)
	if !ok {
		return ErrUnknownKey
	}
	if c.ledger.IsApplied(key) {
		return ErrAlreadyApplied
	}

	before := c.host.Content()
	after, _, err := textpatch.Apply(before, s.ParagraphIndex, s.OriginalText, s.SuggestedText)
	if err != nil {
		c.flagManualCompare(key)
		return err
	}

	c.ledger.PushUndo(models.UndoSnapshot{Content: before, Key: key, Label: s.Label()})
	c.host.SetContent(after)
	c.ledger.MarkApplied(key)
	return nil
}

// PreviewSuggestion writes the suggestion into the document speculatively
// and records the before/after pair. Only one preview may be pending; the
// returned preview carries the replacement range for highlighting.
func (c *Controller) PreviewSuggestion(key string) (models.InlinePreview, error) {
	s, ok := c.ledger.Get(key)
	if !ok {
		return models.InlinePreview{}, ErrUnknownKey
	}
	if c.ledger.IsApplied(key) {
		return models.InlinePreview{}, ErrAlreadyApplied
	}

	before := c.host.Content()
	after, r, err := textpatch.Apply(before, s.ParagraphIndex, s.OriginalText, s.SuggestedText)
	if err != nil {
		c.flagManualCompare(key)
		return models.InlinePreview{}, err
	}

	preview := models.InlinePreview{
		SuggestionKey: key,
		BeforeContent: before,
		AfterContent:  after,
		Label:         s.Label(),
		Start:         r.Start,
		End:           r.End,
	}
	if err := c.preview.Begin(preview); err != nil {
		return models.InlinePreview{}, err
	}
	c.host.SetContent(after)
	return preview, nil
}

// ConfirmPreview promotes the pending preview into a normal undo entry and
// marks its suggestion applied.
func (c *Controller) ConfirmPreview() error {
	preview, err := c.preview.Confirm()
	if err != nil {
		return err
	}
	c.ledger.PushUndo(models.UndoSnapshot{
		Content: preview.BeforeContent,
		Key:     preview.SuggestionKey,
		Label:   preview.Label,
	})
	c.ledger.MarkApplied(preview.SuggestionKey)
	return nil
}

// RevertPreview restores the pre-preview content. If the document changed
// after the preview was installed the revert would overwrite those manual
// edits, so it is refused until the caller confirms and retries with
// force.
func (c *Controller) RevertPreview(force bool) error {
	before, err := c.preview.Revert(c.host.Content(), force)
	if err != nil {
		return err
	}
	c.host.SetContent(before)
	return nil
}

// Undo restores the most recent pre-apply snapshot wholesale and un-marks
// its suggestion. Last-in-first-out only; there is no redo.
func (c *Controller) Undo() error {
	if _, pending := c.preview.Active(); pending {
		return ErrPreviewPending
	}
	snap, err := c.ledger.PopUndo()
	if err != nil {
		return err
	}
	c.host.SetContent(snap.Content)
	return nil
}

func (c *Controller) flagManualCompare(key string) {
	c.mu.Lock()
	c.manualCompare[key] = true
	c.mu.Unlock()
	c.notifier.Warn("original text no longer matches the document; suggestion kept for manual compare")
}
