package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/manifoldco/promptui"
	"github.com/penflow/penflow/internal/ledger"
	"github.com/penflow/penflow/internal/logger"
	"github.com/penflow/penflow/internal/optimizer"
	"github.com/penflow/penflow/internal/prefs"
	"github.com/penflow/penflow/internal/textpatch"
	"github.com/penflow/penflow/internal/ui"
	"github.com/penflow/penflow/internal/util"
	"github.com/penflow/penflow/models"
	"github.com/penflow/penflow/types"
	"github.com/spf13/cobra"
)

var (
	optimizeMode       string
	optimizeScope      string
	optimizeParagraphs string
	optimizeDimensions []string
	optimizeTUI        bool
	optimizeApplyAll   bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <chapter-file>",
	Short: "Run an optimization session on a chapter and work through the suggestions",
	Long: `Optimize streams suggestions for a chapter from the analysis service.

While the session runs you see live progress and the agent's reasoning
trace. Afterwards each suggestion can be previewed inline, applied, or
skipped; every apply is undoable. Settings used for a document are
remembered for the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.HandlePanic()
		return runOptimize(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optimizeMode, "mode", "m", "", "interaction mode: auto, review or plan")
	optimizeCmd.Flags().StringVarP(&optimizeScope, "scope", "s", "", "scope: full or selected")
	optimizeCmd.Flags().StringVarP(&optimizeParagraphs, "paragraphs", "p", "", `paragraph ranges for selected scope, e.g. "1-5, 9-18, 20"`)
	optimizeCmd.Flags().StringSliceVarP(&optimizeDimensions, "dimensions", "d", nil, "optimization dimensions, e.g. clarity,pacing")
	optimizeCmd.Flags().BoolVar(&optimizeTUI, "tui", false, "show the full-screen session view while the workflow runs")
	optimizeCmd.Flags().BoolVar(&optimizeApplyAll, "apply-all", false, "apply every applicable suggestion without prompting")
}

// fileHost adapts a chapter file on disk to the controller's Host
// contract. Writes go straight through to disk so an external editor
// and penflow always see the same bytes.
type fileHost struct {
	path string

	mu        sync.Mutex
	content   string
	selfWrite bool
}

func newFileHost(path string) (*fileHost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chapter file: %w", err)
	}
	return &fileHost{path: path, content: string(data)}, nil
}

func (h *fileHost) Content() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.content
}

func (h *fileHost) SetContent(content string) {
	h.mu.Lock()
	h.content = content
	h.selfWrite = true
	h.mu.Unlock()
	if err := os.WriteFile(h.path, []byte(content), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", h.path, err)
	}
}

// reload re-reads the file after an external edit. Returns false when the
// event was caused by our own write-through.
func (h *fileHost) reload() bool {
	h.mu.Lock()
	if h.selfWrite {
		h.selfWrite = false
		h.mu.Unlock()
		return false
	}
	h.mu.Unlock()

	data, err := os.ReadFile(h.path)
	if err != nil {
		return false
	}
	h.mu.Lock()
	h.content = string(data)
	h.mu.Unlock()
	return true
}

// cliNotifier prints controller notices with the shared styles.
type cliNotifier struct{}

func (cliNotifier) Info(msg string)  { fmt.Println(ui.StyleSubtle.Render(msg)) }
func (cliNotifier) Warn(msg string)  { fmt.Println(ui.StylePrefixWarn.Render("⚠ ") + msg) }
func (cliNotifier) Error(msg string) { fmt.Println(ui.StylePrefixError.Render("✗ ") + msg) }

func runOptimize(ctx context.Context, chapterPath string) error {
	config := GetConfig()
	logger.SetBasePath(config.Project.RootDir)
	logger.SetVersion(version)
	logger.SetCommand("optimize " + chapterPath)
	logger.SetDocument(chapterPath)

	host, err := newFileHost(chapterPath)
	if err != nil {
		return err
	}

	prefsStore, err := GetPrefsStore()
	if err != nil {
		return err
	}
	docKey := documentKey(chapterPath)

	mode, scope, dims := resolveSettings(prefsStore, docKey, config)
	// A remembered selected scope is only usable with a fresh selection.
	if scope == "selected" && optimizeParagraphs == "" {
		scope = "full"
	}

	ctrl := optimizer.New(NewServiceClient(), host, cliNotifier{}, optimizer.Options{
		Mode:           mode,
		Scope:          scope,
		Dimensions:     dims,
		StartTimeout:   time.Duration(config.Optimize.StartTimeoutSeconds) * time.Second,
		CancelGrace:    time.Duration(config.Optimize.CancelGraceSeconds) * time.Second,
		UndoDepth:      config.Optimize.UndoDepth,
		ThinkingLogCap: config.Optimize.ThinkingLogCap,
	})
	ctrl.SwitchDocument(docKey)

	if optimizeScope == "selected" || optimizeParagraphs != "" {
		logger.SetLastScope(optimizeParagraphs)
		if err := ctrl.SetScopeExpression(optimizeParagraphs); err != nil {
			return fmt.Errorf("invalid --paragraphs selection: %w", err)
		}
	}

	stopWatch, err := watchExternalEdits(host)
	if err != nil && verbose {
		fmt.Fprintln(os.Stderr, "file watcher unavailable:", err)
	}
	if stopWatch != nil {
		defer stopWatch()
	}

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	if err := waitForSession(ctx, ctrl); err != nil {
		return err
	}

	// Remember what worked for this document.
	_ = prefsStore.Set(docKey, prefs.DocumentPrefs{Mode: mode, Scope: scope, Dimensions: dims})

	if optimizeApplyAll {
		return applyAll(ctrl)
	}
	return interactiveLoop(ctx, ctrl)
}

// documentKey identifies a chapter across runs; the absolute path is the
// most stable handle we have.
func documentKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// resolveSettings layers flags over remembered per-document prefs over
// config defaults.
func resolveSettings(store *prefs.Store, docKey string, config *types.AppConfig) (mode, scope string, dims []string) {
	mode = config.Optimize.Mode
	scope = config.Optimize.Scope
	dims = config.Optimize.Dimensions

	if p, ok := store.Get(docKey); ok {
		if p.Mode != "" {
			mode = p.Mode
		}
		if p.Scope != "" {
			scope = p.Scope
		}
		if len(p.Dimensions) > 0 {
			dims = p.Dimensions
		}
	}

	if optimizeMode != "" {
		mode = optimizeMode
	}
	if optimizeScope != "" {
		scope = optimizeScope
	}
	if optimizeParagraphs != "" {
		scope = "selected"
	}
	if len(optimizeDimensions) > 0 {
		dims = optimizeDimensions
	}
	return mode, scope, dims
}

// watchExternalEdits reloads the host when another program writes the
// chapter file mid-session.
func watchExternalEdits(host *fileHost) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(host.path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	target := filepath.Clean(host.path)
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if host.reload() {
					fmt.Println(ui.StyleSubtle.Render("chapter reloaded after external edit"))
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return func() { _ = watcher.Close() }, nil
}

// waitForSession blocks until the session leaves the active states,
// rendering either the TUI or a plain spinner with live progress. The
// stuck-start guard returns the session to idle, so idle past the start
// timeout means the request was dropped.
func waitForSession(ctx context.Context, ctrl *optimizer.Controller) error {
	startTimeout := time.Duration(GetConfig().Optimize.StartTimeoutSeconds) * time.Second
	startDeadline := time.Now().Add(startTimeout + 2*time.Second)

	if optimizeTUI && ui.IsInteractive() {
		model := ui.NewSessionModel(ctx, ctrl)
		if _, err := tea.NewProgram(model).Run(); err != nil {
			return err
		}
	} else {
		settled := make(chan struct{}, 1)
		ctrl.Subscribe(func() {
			select {
			case settled <- struct{}{}:
			default:
			}
		})

		sp := ui.NewSpinner("contacting analysis service…")
		sp.Start()
		for {
			s := ctrl.Session()
			if s.Status.Terminal() || s.Status == models.StatusPaused {
				break
			}
			if s.Status == models.StatusIdle && time.Now().After(startDeadline) {
				sp.Stop()
				return optimizer.ErrStartTimeout
			}
			sp.SetSuffix(progressSuffix(s, len(ctrl.Suggestions())))
			select {
			case <-settled:
			case <-time.After(250 * time.Millisecond):
			case <-ctx.Done():
				sp.Stop()
				ctrl.CancelSession(context.Background())
				return ctx.Err()
			}
		}
		sp.Stop()
	}

	s := ctrl.Session()
	fmt.Println(ui.RenderStatusLine(s))
	if s.Status == models.StatusError {
		return fmt.Errorf("optimization failed: %s", ctrl.LastError())
	}
	if s.Status == models.StatusIdle {
		return optimizer.ErrStartTimeout
	}
	return nil
}

func progressSuffix(s models.Session, suggestions int) string {
	if s.TotalUnits == 0 {
		return "analyzing chapter…"
	}
	return fmt.Sprintf("paragraph %d/%d · %d suggestions", s.CurrentUnit, s.TotalUnits, suggestions)
}

// applyAll applies every non-applied suggestion, highest priority first.
// Anchor misses are reported and skipped.
func applyAll(ctrl *optimizer.Controller) error {
	views := ctrl.Suggestions()
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Priority.Rank() < views[j].Priority.Rank()
	})

	applied, skipped := 0, 0
	for _, v := range views {
		if v.Applied {
			continue
		}
		if err := ctrl.ApplySuggestion(v.Key); err != nil {
			skipped++
			if !errors.Is(err, textpatch.ErrAnchorNotFound) {
				return err
			}
			continue
		}
		applied++
	}
	fmt.Printf("%s %d applied, %d skipped\n", ui.StylePrefixDone.Render("✔"), applied, skipped)
	return nil
}

const (
	actionApply   = "Apply a suggestion"
	actionPreview = "Preview a suggestion inline"
	actionConfirm = "Confirm the active preview"
	actionRevert  = "Revert the active preview"
	actionUndo    = "Undo the last apply"
	actionTrace   = "Show reasoning trace"
	actionResume  = "Resume the paused session"
	actionQuit    = "Done"
)

// interactiveLoop walks the user through the collected suggestions.
func interactiveLoop(ctx context.Context, ctrl *optimizer.Controller) error {
	if len(ctrl.Suggestions()) == 0 && ctrl.Session().Status != models.StatusPaused {
		fmt.Println(ui.StyleSubtle.Render("no suggestions for this chapter"))
		return nil
	}
	if !ui.IsInteractive() {
		printSuggestions(ctrl)
		return nil
	}

	for {
		printSuggestions(ctrl)

		prompt := promptui.Select{
			Label: "Next action",
			Items: availableActions(ctrl),
			Size:  8,
		}
		_, action, err := prompt.Run()
		if err != nil {
			// Ctrl-C in the menu means we're done, not a failure.
			return nil
		}

		switch action {
		case actionApply:
			err = withSelectedSuggestion(ctrl, "Apply which suggestion", func(key string) error {
				return ctrl.ApplySuggestion(key)
			})
		case actionPreview:
			err = withSelectedSuggestion(ctrl, "Preview which suggestion", func(key string) error {
				p, perr := ctrl.PreviewSuggestion(key)
				if perr == nil {
					fmt.Println(ui.RenderPreviewBanner(p))
				}
				return perr
			})
		case actionConfirm:
			err = ctrl.ConfirmPreview()
		case actionRevert:
			err = revertPreview(ctrl)
		case actionUndo:
			err = ctrl.Undo()
		case actionTrace:
			for _, ev := range ctrl.Thinking() {
				fmt.Println(ui.RenderTraceLine(ev))
			}
		case actionResume:
			if err = ctrl.Resume(ctx); err == nil {
				if err = waitForSession(ctx, ctrl); err != nil {
					return err
				}
			}
		case actionQuit:
			return nil
		}

		if err != nil {
			fmt.Println(ui.StylePrefixWarn.Render("⚠ ") + err.Error())
		}
	}
}

// availableActions hides menu entries that cannot run in the current state.
func availableActions(ctrl *optimizer.Controller) []string {
	_, previewActive := ctrl.ActivePreview()

	var actions []string
	if !previewActive {
		actions = append(actions, actionApply, actionPreview)
	} else {
		actions = append(actions, actionConfirm, actionRevert)
	}
	if ctrl.CanUndo() && !previewActive {
		actions = append(actions, actionUndo)
	}
	if len(ctrl.Thinking()) > 0 {
		actions = append(actions, actionTrace)
	}
	if s := ctrl.Session(); s.Status == models.StatusPaused || (s.Status == models.StatusError && s.CanResume) {
		actions = append(actions, actionResume)
	}
	return append(actions, actionQuit)
}

func printSuggestions(ctrl *optimizer.Controller) {
	views := ctrl.Suggestions()
	if len(views) == 0 {
		return
	}
	fmt.Println()
	for i, v := range views {
		fmt.Println(ui.RenderSuggestion(i+1, v.Suggestion, v.Applied, v.ManualCompare))
	}
}

// withSelectedSuggestion prompts for a pending suggestion and runs fn on it.
func withSelectedSuggestion(ctrl *optimizer.Controller, label string, fn func(key string) error) error {
	views := ctrl.Suggestions()
	var items []string
	var keys []string
	for i, v := range views {
		if v.Applied {
			continue
		}
		items = append(items, fmt.Sprintf("#%d ¶%d [%s] %s",
			i+1, v.ParagraphIndex+1, v.Priority, util.ShortKey(v.Key, 0)))
		keys = append(keys, v.Key)
	}
	if len(items) == 0 {
		return errors.New("no pending suggestions")
	}

	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return nil
	}
	return fn(keys[idx])
}

// revertPreview reverts the active preview, asking before discarding
// manual edits made on top of it.
func revertPreview(ctrl *optimizer.Controller) error {
	err := ctrl.RevertPreview(false)
	if !errors.Is(err, ledger.ErrPreviewDirty) {
		return err
	}

	confirm := promptui.Prompt{
		Label:     "The preview was edited after it was inserted. Discard those edits",
		IsConfirm: true,
	}
	if _, cerr := confirm.Run(); cerr != nil {
		return nil
	}
	return ctrl.RevertPreview(true)
}
