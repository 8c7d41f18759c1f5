// Package answers keeps the in-memory answer state for a report render or
// edit session. The store is handed to collaborators explicitly instead of
// floating in ambient context, so every writer funnels through the same
// merge function.
package answers

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// PreGrade is an automated or preliminary grading hint attached to an
// answer before a human grader finalises it.
type PreGrade struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}

// Data holds the student-entered answer payload.
type Data struct {
	Text string `json:"text,omitempty"`
}

// Record is the mutable state of one answer, keyed by its element id.
type Record struct {
	ElementID  uuid.UUID `json:"element_id"`
	Data       Data      `json:"data"`
	Score      *float64  `json:"score,omitempty"`
	GivenScore *float64  `json:"given_score,omitempty"`
	PreGrade   *PreGrade `json:"pre_grade,omitempty"`

	// Hint bookkeeping. HintSeq is the sequence number of the hint
	// currently shown; responses with an older sequence are discarded.
	Hint    string `json:"hint,omitempty"`
	HintSeq uint64 `json:"-"`
}

// Partial carries the fields of a single update. Nil fields are left
// untouched by the merge, so updates accumulate rather than overwrite.
type Partial struct {
	Text       *string
	Score      *float64
	GivenScore *float64
	PreGrade   *PreGrade
}

// Correctness is the tri-state grading indicator derived from a record.
type Correctness int

const (
	Undetermined Correctness = iota
	Correct
	Incorrect
)

// Correct wins over pre-grade hints: an explicit score set this session is
// authoritative, the pre-grade sign is a fallback, anything else stays
// neutral.
func (r Record) Correctness() Correctness {
	if r.Score != nil {
		if *r.Score > 0 {
			return Correct
		}
		return Incorrect
	}
	if r.PreGrade != nil {
		if r.PreGrade.Score > 0 {
			return Correct
		}
		return Incorrect
	}
	return Undetermined
}

// Store is the shared answer state contract. Implementations must be safe
// for concurrent readers; writes go through Update.
type Store interface {
	Get(id uuid.UUID) (Record, bool)
	Update(id uuid.UUID, partial Partial) Record
	Snapshot() []Record
	Subscribe(fn func(Record)) (cancel func())
}

// MemoryStore is the default Store: a guarded map with copy-on-merge
// records, so a returned Record can never alias live store state.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
	order   []uuid.UUID

	subMu       sync.Mutex
	subscribers map[uint64]func(Record)
	nextSubID   uint64

	hintSeq atomic.Uint64
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[uuid.UUID]Record),
		subscribers: make(map[uint64]func(Record)),
	}
}

// Seed loads server-supplied records wholesale, replacing any prior state.
func (s *MemoryStore) Seed(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[uuid.UUID]Record, len(records))
	s.order = s.order[:0]
	for _, record := range records {
		if _, exists := s.records[record.ElementID]; !exists {
			s.order = append(s.order, record.ElementID)
		}
		s.records[record.ElementID] = record
	}
}

// Get returns a copy of the record for the given answer element.
func (s *MemoryStore) Get(id uuid.UUID) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	return record, ok
}

// Update merges the partial into the existing record (creating one when
// absent) and returns the merged copy. Fields accumulate across calls.
func (s *MemoryStore) Update(id uuid.UUID, partial Partial) Record {
	s.mu.Lock()

	record, ok := s.records[id]
	if !ok {
		record = Record{ElementID: id}
		s.order = append(s.order, id)
	}

	if partial.Text != nil {
		record.Data.Text = *partial.Text
	}
	if partial.Score != nil {
		score := *partial.Score
		record.Score = &score
	}
	if partial.GivenScore != nil {
		given := *partial.GivenScore
		record.GivenScore = &given
	}
	if partial.PreGrade != nil {
		pre := *partial.PreGrade
		record.PreGrade = &pre
	}

	s.records[id] = record
	s.mu.Unlock()

	s.notify(record)
	return record
}

// Snapshot returns the records in insertion order, for autosave payloads.
func (s *MemoryStore) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Subscribe registers a callback invoked after every merge. The returned
// cancel function removes the subscription.
func (s *MemoryStore) Subscribe(fn func(Record)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// NextHintSeq issues the sequence number for an outgoing hint request.
func (s *MemoryStore) NextHintSeq() uint64 {
	return s.hintSeq.Add(1)
}

// ApplyHint records a hint response. A response older than the one already
// applied is discarded and the method reports false, guarding against a
// stale reply racing a newer keystroke.
func (s *MemoryStore) ApplyHint(id uuid.UUID, seq uint64, hint string) bool {
	s.mu.Lock()

	record, ok := s.records[id]
	if !ok {
		record = Record{ElementID: id}
		s.order = append(s.order, id)
	}
	if seq <= record.HintSeq {
		s.mu.Unlock()
		return false
	}

	record.Hint = hint
	record.HintSeq = seq
	s.records[id] = record
	s.mu.Unlock()

	s.notify(record)
	return true
}

func (s *MemoryStore) notify(record Record) {
	s.subMu.Lock()
	callbacks := make([]func(Record), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		callbacks = append(callbacks, fn)
	}
	s.subMu.Unlock()

	for _, fn := range callbacks {
		fn(record)
	}
}
