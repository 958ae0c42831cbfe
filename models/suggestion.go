package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Priority represents the priority levels of a suggestion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns an ordinal for sorting, highest priority first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Suggestion represents one proposed text edit for a paragraph.
// Suggestions are immutable once created; the ledger only ever appends them.
type Suggestion struct {
	ParagraphIndex int      `json:"paragraphIndex" validate:"min=0"`
	OriginalText   string   `json:"originalText" validate:"required"`
	SuggestedText  string   `json:"suggestedText" validate:"required"`
	Reason         string   `json:"reason,omitempty"`
	Category       string   `json:"category,omitempty"`
	Priority       Priority `json:"priority" validate:"required,oneof=high medium low"`
}

// Key returns the deterministic identity key of the suggestion.
// The server assigns no IDs, so the key must be reproducible from content
// alone: it hashes paragraph index, category, priority and the length of
// the original text.
func (s Suggestion) Key() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%d",
		s.ParagraphIndex, s.Category, s.Priority, len(s.OriginalText))))
	return hex.EncodeToString(h[:8])
}

// Label returns a short human-readable description for undo entries and
// preview banners.
func (s Suggestion) Label() string {
	text := s.OriginalText
	if len(text) > 32 {
		text = text[:32] + "…"
	}
	return fmt.Sprintf("paragraph %d: %q", s.ParagraphIndex+1, text)
}

// global validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct performs validation on any struct that has validation tags.
func ValidateStruct(s interface{}) error {
	if validate == nil {
		validate = validator.New()
	}
	err := validate.Struct(s)
	if err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, fmt.Sprintf("Validation failed on field '%s': rule '%s' (value: '%v')", e.StructNamespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("%s", strings.Join(errorMessages, "; "))
	}
	return nil
}
