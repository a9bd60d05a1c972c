package models

import "time"

// DreamRecord represents one journaled dream plus its AI-generated annotations
type DreamRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// User-supplied fields
	Title           string `json:"title,omitempty"`
	Details         string `json:"details"`
	CulturalContext string `json:"cultural_context,omitempty"`
	Mood            string `json:"mood,omitempty"` // e.g. "happy", "anxious", "neutral"

	// Annotation fields (absent until an analysis succeeds)
	Interpretation string   `json:"interpretation,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	Category       string   `json:"category,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// DreamInput holds the raw fields a user submits for a new entry
type DreamInput struct {
	Title           string `json:"title"`
	Details         string `json:"details"`
	CulturalContext string `json:"cultural_context"`
	Mood            string `json:"mood"`
}

// DreamDraft is the merged but not yet persisted result of one submission.
// It becomes a DreamRecord only on explicit confirmation.
type DreamDraft struct {
	Title           string   `json:"title,omitempty"`
	Details         string   `json:"details"`
	CulturalContext string   `json:"cultural_context,omitempty"`
	Mood            string   `json:"mood,omitempty"`
	Interpretation  string   `json:"interpretation"`
	Summary         string   `json:"summary"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
}

// DreamUpdate is a partial-field patch for an existing record.
// Nil fields are left untouched; ID and CreatedAt are never updatable.
type DreamUpdate struct {
	Title           *string   `json:"title"`
	Details         *string   `json:"details"`
	CulturalContext *string   `json:"cultural_context"`
	Mood            *string   `json:"mood"`
	Interpretation  *string   `json:"interpretation"`
	Summary         *string   `json:"summary"`
	Category        *string   `json:"category"`
	Tags            *[]string `json:"tags"`
}

// InterpretationResult is the structured output of the interpretation call
type InterpretationResult struct {
	Interpretation string `json:"interpretation"`
}

// ClassificationResult is the structured output of the classification call
type ClassificationResult struct {
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
	Summary  string   `json:"summary"`
}

// MinDreamDetailsLength is the minimum length of the dream narrative.
// Shorter submissions are rejected before any annotation call is made.
const MinDreamDetailsLength = 10
