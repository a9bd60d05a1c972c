package services

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"dreamweaver/internal/database"
	"dreamweaver/internal/models"

	"github.com/google/uuid"
)

// DreamStore owns the dream collection for the lifetime of the process.
// The in-memory slice is the source of truth for the session; persistence
// is write-through and best-effort (a failed write is logged, never rolled
// back).
type DreamStore struct {
	mu     sync.Mutex
	store  database.Store
	dreams []models.DreamRecord
}

// NewDreamStore creates the store and loads the persisted collection.
// A missing blob yields an empty collection; a corrupt blob is logged and
// also yields an empty collection so a damaged local cache never takes the
// app down.
func NewDreamStore(store database.Store) *DreamStore {
	s := &DreamStore{store: store}
	s.load()
	return s
}

func (s *DreamStore) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dreams = []models.DreamRecord{}

	data, err := s.store.LoadBlob()
	if err != nil {
		log.Printf("⚠️ [DREAM-STORE] Failed to load stored dreams, starting empty: %v", err)
		return
	}
	if len(data) == 0 {
		return
	}

	var dreams []models.DreamRecord
	if err := json.Unmarshal(data, &dreams); err != nil {
		log.Printf("⚠️ [DREAM-STORE] Stored dreams are unreadable, starting empty: %v", err)
		return
	}

	s.dreams = dreams
	s.sortLocked()
	log.Printf("📖 [DREAM-STORE] Loaded %d dreams", len(s.dreams))
}

// Insert assigns identity and timestamp to a confirmed draft and persists
// the full collection. The finalized record is returned.
func (s *DreamStore) Insert(draft models.DreamDraft) models.DreamRecord {
	record := models.DreamRecord{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		Title:           draft.Title,
		Details:         draft.Details,
		CulturalContext: draft.CulturalContext,
		Mood:            draft.Mood,
		Interpretation:  draft.Interpretation,
		Summary:         draft.Summary,
		Category:        draft.Category,
		Tags:            append([]string(nil), draft.Tags...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Prepend so equal timestamps keep the newest insertion first after
	// the stable sort, matching timeline expectations.
	s.dreams = append([]models.DreamRecord{record}, s.dreams...)
	s.sortLocked()
	s.persistLocked()

	log.Printf("💾 [DREAM-STORE] Inserted dream %s (%d total)", record.ID, len(s.dreams))
	return record
}

// Update replaces only the supplied fields on the record matching id.
// Unknown ids are a silent no-op. ID and CreatedAt are never touched.
func (s *DreamStore) Update(id string, patch models.DreamUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.dreams {
		if s.dreams[i].ID != id {
			continue
		}

		d := &s.dreams[i]
		if patch.Title != nil {
			d.Title = *patch.Title
		}
		if patch.Details != nil {
			d.Details = *patch.Details
		}
		if patch.CulturalContext != nil {
			d.CulturalContext = *patch.CulturalContext
		}
		if patch.Mood != nil {
			d.Mood = *patch.Mood
		}
		if patch.Interpretation != nil {
			d.Interpretation = *patch.Interpretation
		}
		if patch.Summary != nil {
			d.Summary = *patch.Summary
		}
		if patch.Category != nil {
			d.Category = *patch.Category
		}
		if patch.Tags != nil {
			d.Tags = append([]string(nil), (*patch.Tags)...)
		}

		s.sortLocked()
		s.persistLocked()
		return
	}
}

// Delete removes the record matching id if present; no-op otherwise.
func (s *DreamStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.dreams {
		if s.dreams[i].ID == id {
			s.dreams = append(s.dreams[:i], s.dreams[i+1:]...)
			s.persistLocked()
			log.Printf("🗑️ [DREAM-STORE] Deleted dream %s", id)
			return
		}
	}
}

// List returns a copy of the collection, sorted by CreatedAt descending.
func (s *DreamStore) List() []models.DreamRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.DreamRecord, len(s.dreams))
	copy(out, s.dreams)
	return out
}

// Get returns the record matching id, if any.
func (s *DreamStore) Get(id string) (models.DreamRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.dreams {
		if d.ID == id {
			return d, true
		}
	}
	return models.DreamRecord{}, false
}

// sortLocked orders by CreatedAt descending. The stable sort keeps the
// relative order of records whose timestamps collide.
func (s *DreamStore) sortLocked() {
	sort.SliceStable(s.dreams, func(i, j int) bool {
		return s.dreams[i].CreatedAt.After(s.dreams[j].CreatedAt)
	})
}

// persistLocked writes the whole collection back to storage. Failures are
// logged only; the in-memory collection stays authoritative.
func (s *DreamStore) persistLocked() {
	data, err := json.Marshal(s.dreams)
	if err != nil {
		log.Printf("❌ [DREAM-STORE] Failed to serialize dreams: %v", err)
		return
	}
	if err := s.store.SaveBlob(data); err != nil {
		if m := GetMetrics(); m != nil {
			m.PersistFailures.Inc()
		}
		log.Printf("⚠️ [DREAM-STORE] Failed to persist dreams (keeping in-memory state): %v", err)
	}
}
