package optimizer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/penflow/penflow/internal/api"
	"github.com/penflow/penflow/internal/ledger"
	"github.com/penflow/penflow/internal/session"
	"github.com/penflow/penflow/internal/textpatch"
	"github.com/penflow/penflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost is a single-writer document arena for tests.
type fakeHost struct {
	content string
}

func (h *fakeHost) Content() string           { return h.content }
func (h *fakeHost) SetContent(content string) { h.content = content }

type recordingNotifier struct {
	warnings []string
	errors   []string
}

func (n *recordingNotifier) Info(string)      {}
func (n *recordingNotifier) Warn(msg string)  { n.warnings = append(n.warnings, msg) }
func (n *recordingNotifier) Error(msg string) { n.errors = append(n.errors, msg) }

const chapter = "The rain fell softly.\n\nHe walked to the station.\n\nShe waited inside."

func newTestController(content string) (*Controller, *fakeHost, *recordingNotifier) {
	host := &fakeHost{content: content}
	notifier := &recordingNotifier{}
	c := New(nil, host, notifier, Options{})
	return c, host, notifier
}

func seed(c *Controller, s models.Suggestion) string {
	c.ledger.Add(s)
	return s.Key()
}

func TestApplyThenUndoRoundTrip(t *testing.T) {
	c, host, _ := newTestController(chapter)
	key := seed(c, models.Suggestion{
		ParagraphIndex: 1,
		OriginalText:   "walked to the station",
		SuggestedText:  "ran to the platform",
		Priority:       models.PriorityHigh,
	})

	require.NoError(t, c.ApplySuggestion(key))
	assert.Contains(t, host.Content(), "ran to the platform")
	assert.True(t, c.Suggestions()[0].Applied)

	require.NoError(t, c.Undo())
	assert.Equal(t, chapter, host.Content(), "undo must restore the exact pre-apply bytes")
	assert.False(t, c.Suggestions()[0].Applied)
}

func TestApplyAnchorMissFlagsManualCompare(t *testing.T) {
	c, host, notifier := newTestController(chapter)
	key := seed(c, models.Suggestion{
		ParagraphIndex: 0,
		OriginalText:   "text the user already deleted",
		SuggestedText:  "anything",
		Priority:       models.PriorityLow,
	})

	err := c.ApplySuggestion(key)
	assert.ErrorIs(t, err, textpatch.ErrAnchorNotFound)
	assert.Equal(t, chapter, host.Content(), "anchor miss must not modify the document")
	assert.True(t, c.Suggestions()[0].ManualCompare)
	assert.NotEmpty(t, notifier.warnings)
}

func TestApplyTwiceRefused(t *testing.T) {
	c, _, _ := newTestController(chapter)
	key := seed(c, models.Suggestion{
		ParagraphIndex: 0,
		OriginalText:   "rain fell softly",
		SuggestedText:  "rain hammered down",
		Priority:       models.PriorityMedium,
	})

	require.NoError(t, c.ApplySuggestion(key))
	assert.ErrorIs(t, c.ApplySuggestion(key), ErrAlreadyApplied)
}

func TestPreviewConfirmFlow(t *testing.T) {
	c, host, _ := newTestController(chapter)
	key := seed(c, models.Suggestion{
		ParagraphIndex: 2,
		OriginalText:   "She waited inside.",
		SuggestedText:  "She waited by the door.",
		Priority:       models.PriorityMedium,
	})

	preview, err := c.PreviewSuggestion(key)
	require.NoError(t, err)
	assert.Equal(t, "She waited by the door.", host.Content()[preview.Start:preview.End])

	require.NoError(t, c.ConfirmPreview())
	assert.True(t, c.Suggestions()[0].Applied)
	assert.True(t, c.CanUndo(), "confirm promotes the preview into an undo entry")

	require.NoError(t, c.Undo())
	assert.Equal(t, chapter, host.Content())
}

func TestPreviewRevertFlow(t *testing.T) {
	c, host, _ := newTestController(chapter)
	key := seed(c, models.Suggestion{
		ParagraphIndex: 0,
		OriginalText:   "rain fell softly",
		SuggestedText:  "rain hammered down",
		Priority:       models.PriorityMedium,
	})

	_, err := c.PreviewSuggestion(key)
	require.NoError(t, err)
	require.Contains(t, host.Content(), "hammered")

	require.NoError(t, c.RevertPreview(false))
	assert.Equal(t, chapter, host.Content())
	assert.False(t, c.Suggestions()[0].Applied)
	assert.False(t, c.CanUndo(), "a reverted preview leaves no undo entry")
}

func TestPreviewRevertDirtyRequiresForce(t *testing.T) {
	c, host, _ := newTestController(chapter)
	key := seed(c, models.Suggestion{
		ParagraphIndex: 0,
		OriginalText:   "rain fell softly",
		SuggestedText:  "rain hammered down",
		Priority:       models.PriorityMedium,
	})

	_, err := c.PreviewSuggestion(key)
	require.NoError(t, err)

	// Manual edit after the preview was installed.
	host.SetContent(host.Content() + "\n\nA new final paragraph.")

	assert.ErrorIs(t, c.RevertPreview(false), ledger.ErrPreviewDirty)

	require.NoError(t, c.RevertPreview(true))
	assert.Equal(t, chapter, host.Content())
}

func TestSinglePreviewInvariant(t *testing.T) {
	c, _, _ := newTestController(chapter)
	keyA := seed(c, models.Suggestion{
		ParagraphIndex: 0,
		OriginalText:   "rain fell softly",
		SuggestedText:  "rain hammered down",
		Priority:       models.PriorityMedium,
	})
	keyB := seed(c, models.Suggestion{
		ParagraphIndex: 2,
		OriginalText:   "She waited inside.",
		SuggestedText:  "She paced the hall.",
		Priority:       models.PriorityLow,
	})

	_, err := c.PreviewSuggestion(keyA)
	require.NoError(t, err)

	_, err = c.PreviewSuggestion(keyB)
	assert.ErrorIs(t, err, ledger.ErrPreviewActive)

	// Direct apply and undo are also blocked while a preview is pending.
	assert.ErrorIs(t, c.ApplySuggestion(keyB), ErrPreviewPending)
	assert.ErrorIs(t, c.Undo(), ErrPreviewPending)

	require.NoError(t, c.ConfirmPreview())
	_, err = c.PreviewSuggestion(keyB)
	assert.NoError(t, err)
}

func TestSetScopeExpression(t *testing.T) {
	c, _, notifier := newTestController(chapter) // 3 paragraphs

	require.NoError(t, c.SetScopeExpression("1-2"))
	c.mu.Lock()
	assert.Equal(t, "selected", c.scope)
	assert.Equal(t, []int{0, 1}, c.selected)
	c.mu.Unlock()

	assert.ErrorIs(t, c.SetScopeExpression("7, 99"), ErrNoSelection)
	assert.NotEmpty(t, notifier.warnings)
	c.mu.Lock()
	assert.Equal(t, []int{0, 1}, c.selected, "failed selection leaves scope unchanged")
	c.mu.Unlock()
}

func TestStartAgainstFakeService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"type":"workflow_start","session_id":"s1","total_paragraphs":3}`,
			`data: {"type":"suggestion","paragraph_index":1,"original_text":"walked to the station","suggested_text":"ran home","priority":"high"}`,
			`data: {"type":"workflow_complete","total_suggestions":1}`,
		}
		for _, f := range frames {
			_, _ = w.Write([]byte(f + "\n\n"))
		}
	}))
	defer srv.Close()

	host := &fakeHost{content: chapter}
	c := New(api.NewClient(srv.URL, "", 0), host, nil, Options{Mode: "auto"})

	require.NoError(t, c.Start(context.Background()))

	require.Eventually(t, func() bool {
		return c.Session().Status == models.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	suggestions := c.Suggestions()
	require.Len(t, suggestions, 1)
	require.NoError(t, c.ApplySuggestion(suggestions[0].Key))
	assert.Contains(t, host.Content(), "ran home")
}

func TestStartRefusedWhileActive(t *testing.T) {
	c, _, _ := newTestController(chapter)
	c.machine.Handle(session.Event{Type: session.EventWorkflowStart, SessionID: "s1"})

	assert.ErrorIs(t, c.Start(context.Background()), ErrSessionActive)
}

func TestResumeRequiresResumableSession(t *testing.T) {
	c, _, _ := newTestController(chapter)
	assert.ErrorIs(t, c.Resume(context.Background()), ErrNotResumable)
}
