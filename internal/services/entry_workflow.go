package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"dreamweaver/internal/models"
)

// workflowState tracks where one submission is in its lifecycle.
type workflowState int

const (
	stateIdle workflowState = iota
	stateProcessing
	stateReviewing
)

// mergePolicy names how the two annotation legs combine into a draft.
type mergePolicy int

const (
	// policyFailTogether discards the whole submission unless both legs
	// succeed, so the review step always shows a consistent picture.
	policyFailTogether mergePolicy = iota
	// policyPartialSuccess would keep whichever leg succeeded. Kept as a
	// named alternative; not enabled.
	policyPartialSuccess
)

const annotationMergePolicy = policyFailTogether

// ErrSubmissionInFlight is returned when a new submission arrives while a
// previous one is still waiting on the annotation calls.
var ErrSubmissionInFlight = errors.New("a submission is already being processed")

// ErrNoDraft is returned when confirm is called with nothing under review.
var ErrNoDraft = errors.New("no draft is awaiting confirmation")

// ValidationError reports an input field failing its constraints. No
// annotation call is made when one is raised.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AnnotationError reports the failed legs of a submission. Under the
// fail-together policy a single failed leg discards the other leg's result.
type AnnotationError struct {
	InterpretErr error
	ClassifyErr  error
}

func (e *AnnotationError) Error() string {
	switch {
	case e.InterpretErr != nil && e.ClassifyErr != nil:
		return fmt.Sprintf("interpretation and classification failed: %v; %v", e.InterpretErr, e.ClassifyErr)
	case e.InterpretErr != nil:
		return fmt.Sprintf("interpretation failed: %v", e.InterpretErr)
	default:
		return fmt.Sprintf("classification failed: %v", e.ClassifyErr)
	}
}

// interpretOutcome and classifyOutcome are the settled results of the two
// annotation legs. Both always settle before merging.
type interpretOutcome struct {
	result *models.InterpretationResult
	err    error
}

type classifyOutcome struct {
	result *models.ClassificationResult
	err    error
}

// EntryWorkflow orchestrates one submission: validate, fan out both
// annotation calls, merge on success, hold the draft for review, and hand
// it to the store on explicit confirmation. Only one submission is in
// flight at a time.
type EntryWorkflow struct {
	mu    sync.Mutex
	state workflowState
	draft *models.DreamDraft

	client AnnotationClient
	store  *DreamStore
}

// NewEntryWorkflow creates an entry workflow bound to a store and client
func NewEntryWorkflow(client AnnotationClient, store *DreamStore) *EntryWorkflow {
	return &EntryWorkflow{
		state:  stateIdle,
		client: client,
		store:  store,
	}
}

// Submit validates the input, runs both annotation calls concurrently and,
// if both succeed, holds the merged draft for review. A submission while
// another is processing is rejected; a submission while a draft is under
// review silently discards that draft.
func (w *EntryWorkflow) Submit(ctx context.Context, input models.DreamInput) (*models.DreamDraft, error) {
	w.mu.Lock()
	if w.state == stateProcessing {
		w.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if w.state == stateReviewing {
		// Unsaved drafts are not auto-saved
		w.draft = nil
	}
	if err := validateInput(input); err != nil {
		w.state = stateIdle
		w.mu.Unlock()
		return nil, err
	}
	w.state = stateProcessing
	w.mu.Unlock()

	io, co := w.annotate(ctx, input)
	if m := GetMetrics(); m != nil {
		if io.err != nil {
			m.AnnotationFailures.WithLabelValues("interpret").Inc()
		}
		if co.err != nil {
			m.AnnotationFailures.WithLabelValues("classify").Inc()
		}
	}
	draft, err := mergeAnnotations(input, io, co)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.state = stateIdle
		w.draft = nil
		log.Printf("⚠️ [ENTRY] Submission failed: %v", err)
		return nil, err
	}

	w.state = stateReviewing
	w.draft = draft
	log.Printf("✨ [ENTRY] Draft ready for review (category: %s, %d tags)", draft.Category, len(draft.Tags))
	return draft, nil
}

// Confirm persists the reviewed draft and clears the transient state.
func (w *EntryWorkflow) Confirm() (*models.DreamRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateReviewing || w.draft == nil {
		return nil, ErrNoDraft
	}

	record := w.store.Insert(*w.draft)
	w.draft = nil
	w.state = stateIdle

	if m := GetMetrics(); m != nil {
		m.DreamsSaved.Inc()
	}
	return &record, nil
}

// Discard drops the reviewed draft, if any, and returns to idle.
func (w *EntryWorkflow) Discard() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draft != nil {
		log.Println("🗑️ [ENTRY] Draft discarded")
	}
	w.draft = nil
	if w.state == stateReviewing {
		w.state = stateIdle
	}
}

// annotate fans out both annotation calls and waits for both to settle.
func (w *EntryWorkflow) annotate(ctx context.Context, input models.DreamInput) (interpretOutcome, classifyOutcome) {
	var (
		wg sync.WaitGroup
		io interpretOutcome
		co classifyOutcome
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		io.result, io.err = w.client.Interpret(ctx, input.Details, input.CulturalContext)
	}()
	go func() {
		defer wg.Done()
		co.result, co.err = w.client.Classify(ctx, input.Details)
	}()
	wg.Wait()

	return io, co
}

// mergeAnnotations combines the raw input with both settled legs. It is
// total over all four (success|failure)² branches; under fail-together any
// failed leg maps to an error and the surviving result is dropped.
func mergeAnnotations(input models.DreamInput, io interpretOutcome, co classifyOutcome) (*models.DreamDraft, error) {
	if annotationMergePolicy == policyFailTogether {
		if io.err != nil || co.err != nil {
			return nil, &AnnotationError{InterpretErr: io.err, ClassifyErr: co.err}
		}
	}

	return &models.DreamDraft{
		Title:           input.Title,
		Details:         input.Details,
		CulturalContext: input.CulturalContext,
		Mood:            input.Mood,
		Interpretation:  io.result.Interpretation,
		Summary:         co.result.Summary,
		Category:        co.result.Category,
		Tags:            co.result.Tags,
	}, nil
}

func validateInput(input models.DreamInput) error {
	details := strings.TrimSpace(input.Details)
	if len([]rune(details)) < models.MinDreamDetailsLength {
		return &ValidationError{
			Field:   "details",
			Message: fmt.Sprintf("dream details must be at least %d characters", models.MinDreamDetailsLength),
		}
	}
	return nil
}
