package models

// UndoSnapshot captures the full document text before a suggestion was
// applied. Key matches the applied suggestion's identity key.
type UndoSnapshot struct {
	Content string `json:"content"`
	Key     string `json:"key" validate:"required"`
	Label   string `json:"label,omitempty"`
}

// InlinePreview records the single allowed in-progress speculative edit.
// Start and End are a half-open character interval in the post-patch
// document identifying where the replacement text now sits.
type InlinePreview struct {
	SuggestionKey string `json:"suggestionKey" validate:"required"`
	BeforeContent string `json:"beforeContent"`
	AfterContent  string `json:"afterContent"`
	Label         string `json:"label,omitempty"`
	Start         int    `json:"start" validate:"min=0"`
	End           int    `json:"end" validate:"gtefield=Start"`
}
