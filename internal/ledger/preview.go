package ledger

import (
	"errors"
	"sync"

	"github.com/penflow/penflow/models"
)

// Preview slot errors.
var (
	ErrPreviewActive = errors.New("another preview is pending; confirm or revert it first")
	ErrNoPreview     = errors.New("no preview is active")
	// ErrPreviewDirty means the document changed after the preview was
	// installed; reverting would overwrite those changes, so the caller
	// must get explicit user confirmation and retry with force.
	ErrPreviewDirty = errors.New("document changed since preview; revert requires confirmation")
)

// PreviewSlot holds the single allowed in-progress speculative edit.
type PreviewSlot struct {
	mu     sync.Mutex
	active *models.InlinePreview
}

// Begin installs a preview. Refused while another preview is pending.
func (p *PreviewSlot) Begin(preview models.InlinePreview) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		return ErrPreviewActive
	}
	cp := preview
	p.active = &cp
	return nil
}

// Active returns a copy of the pending preview, if any.
func (p *PreviewSlot) Active() (models.InlinePreview, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return models.InlinePreview{}, false
	}
	return *p.active, true
}

// Confirm clears the slot and returns the preview so the caller can promote
// it into a normal undo entry and mark its suggestion applied.
func (p *PreviewSlot) Confirm() (models.InlinePreview, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return models.InlinePreview{}, ErrNoPreview
	}
	preview := *p.active
	p.active = nil
	return preview, nil
}

// Revert clears the slot and returns the content to restore. If the
// current document no longer matches the preview's AfterContent the user
// has edited around the speculative text; without force the revert is
// refused with ErrPreviewDirty and the preview stays pending.
func (p *PreviewSlot) Revert(current string, force bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return "", ErrNoPreview
	}
	if current != p.active.AfterContent && !force {
		return "", ErrPreviewDirty
	}
	before := p.active.BeforeContent
	p.active = nil
	return before, nil
}

// Reset discards any pending preview without restoring content.
func (p *PreviewSlot) Reset() {
	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()
}
