package stream

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/penflow/penflow/internal/ledger"
	"github.com/penflow/penflow/internal/session"
	"github.com/penflow/penflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter() (*Adapter, *session.Machine, *ledger.Ledger, *ledger.ThinkingLog, *ledger.PreviewSlot) {
	machine := session.NewMachine()
	lg := ledger.New(0)
	thinking := ledger.NewThinkingLog(0)
	preview := &ledger.PreviewSlot{}
	return NewAdapter(machine, lg, thinking, preview, 50*time.Millisecond), machine, lg, thinking, preview
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not drain in time")
	}
}

func TestAdapterPlanModeScenario(t *testing.T) {
	// Start in plan mode, receive three suggestions, then plan_ready with
	// the same three: session paused, ledger holds exactly three.
	raw := strings.Join([]string{
		`data: {"type":"workflow_start","session_id":"s1","total_paragraphs":3,"mode":"plan"}`,
		``,
		`data: {"type":"suggestion","paragraph_index":0,"original_text":"aa","suggested_text":"AA","priority":"high"}`,
		``,
		`data: {"type":"suggestion","paragraph_index":1,"original_text":"bb","suggested_text":"BB","priority":"medium"}`,
		``,
		`data: {"type":"suggestion","paragraph_index":2,"original_text":"cc","suggested_text":"CC","priority":"low"}`,
		``,
		`data: {"type":"plan_ready","session_id":"s1","can_resume":true,"suggestions":[` +
			`{"paragraph_index":0,"original_text":"aa","suggested_text":"AA","priority":"high"},` +
			`{"paragraph_index":1,"original_text":"bb","suggested_text":"BB","priority":"medium"},` +
			`{"paragraph_index":2,"original_text":"cc","suggested_text":"CC","priority":"low"}]}`,
		``,
	}, "\n")

	a, machine, lg, _, _ := newTestAdapter()
	done := a.Attach(context.Background(), io.NopCloser(strings.NewReader(raw)))
	waitDone(t, done)

	s := machine.Session()
	assert.Equal(t, models.StatusPaused, s.Status)
	assert.True(t, s.CanResume)
	assert.Equal(t, 3, lg.Len(), "plan_ready bulk load must de-duplicate against streamed suggestions")
}

func TestAdapterTraceLog(t *testing.T) {
	raw := strings.Join([]string{
		`data: {"type":"workflow_start","session_id":"s1","total_paragraphs":1}`,
		``,
		`data: {"type":"paragraph_start","index":0,"text_preview":"The rain fell."}`,
		``,
		`data: {"type":"thinking","step":"analyze tone","content":"checking cadence"}`,
		``,
		`data: {"type":"paragraph_complete","index":0,"suggestions_count":2}`,
		``,
		`data: {"type":"workflow_complete","total_suggestions":2}`,
		``,
	}, "\n")

	a, machine, _, thinking, _ := newTestAdapter()
	done := a.Attach(context.Background(), io.NopCloser(strings.NewReader(raw)))
	waitDone(t, done)

	assert.Equal(t, models.StatusCompleted, machine.Session().Status)

	entries := thinking.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, models.ThinkingProgress, entries[0].Kind)
	assert.Equal(t, "Paragraph 1", entries[0].Title)
	assert.Equal(t, models.ThinkingThought, entries[1].Kind)
	assert.Equal(t, "analyze tone", entries[1].Title)
	assert.Equal(t, "Paragraph 1 complete", entries[2].Title)
}

func TestAdapterTransportDropForcesError(t *testing.T) {
	raw := `data: {"type":"workflow_start","session_id":"s1"}` + "\n\n"

	a, machine, _, _, _ := newTestAdapter()
	done := a.Attach(context.Background(), io.NopCloser(strings.NewReader(raw)))
	waitDone(t, done)

	assert.Equal(t, models.StatusError, machine.Session().Status)
}

func TestAdapterCleanEndWhilePausedStaysPaused(t *testing.T) {
	raw := `data: {"type":"workflow_start","session_id":"s1"}` + "\n\n" +
		`data: {"type":"plan_ready","session_id":"s1"}` + "\n\n"

	a, machine, _, _, _ := newTestAdapter()
	done := a.Attach(context.Background(), io.NopCloser(strings.NewReader(raw)))
	waitDone(t, done)

	assert.Equal(t, models.StatusPaused, machine.Session().Status)
}

func TestAdapterCancel(t *testing.T) {
	// A pipe that never closes simulates a long-lived stream.
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	a, machine, _, _, _ := newTestAdapter()
	a.Attach(context.Background(), pr)

	go func() {
		_, _ = pw.Write([]byte(`data: {"type":"workflow_start","session_id":"s1"}` + "\n\n"))
	}()

	require.Eventually(t, func() bool {
		return machine.Session().Status == models.StatusRunning
	}, time.Second, 5*time.Millisecond)

	a.Cancel()
	assert.Equal(t, models.StatusCancelled, machine.Session().Status)
}

func TestAdapterSwitchContextResetsEverything(t *testing.T) {
	a, machine, lg, thinking, preview := newTestAdapter()
	a.SwitchContext("doc1/ch1")

	a.Dispatch(session.Event{Type: session.EventWorkflowStart, SessionID: "s1"})
	a.Dispatch(session.Event{
		Type: session.EventSuggestion,
		SuggestionPayload: session.SuggestionPayload{
			OriginalText: "aa", SuggestedText: "bb", Priority: "high",
		},
	})
	require.NoError(t, preview.Begin(models.InlinePreview{SuggestionKey: "k", AfterContent: "x"}))

	a.SwitchContext("doc1/ch2")

	assert.Equal(t, models.StatusIdle, machine.Session().Status)
	assert.Zero(t, lg.Len())
	assert.Zero(t, thinking.Len())
	_, active := preview.Active()
	assert.False(t, active, "partial results must never leak into the new context")

	// Switching to the same context is a no-op.
	a.Dispatch(session.Event{Type: session.EventWorkflowStart, SessionID: "s2"})
	a.SwitchContext("doc1/ch2")
	assert.Equal(t, models.StatusRunning, machine.Session().Status)
}

func TestAdapterStaleSessionEventsIgnoredAfterNewSession(t *testing.T) {
	a, machine, _, _, _ := newTestAdapter()
	a.Dispatch(session.Event{Type: session.EventWorkflowStart, SessionID: "new"})

	a.Dispatch(session.Event{Type: session.EventError, SessionID: "old", Message: "late failure"})
	assert.Equal(t, models.StatusRunning, machine.Session().Status)
}
