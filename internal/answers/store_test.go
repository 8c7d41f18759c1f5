package answers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func scorePtr(f float64) *float64 { return &f }

func TestUpdateMergesFieldsAcrossCalls(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()

	store.Update(id, Partial{Text: strPtr("a")})
	record := store.Update(id, Partial{Score: scorePtr(1)})

	require.Equal(t, "a", record.Data.Text)
	require.NotNil(t, record.Score)
	require.Equal(t, 1.0, *record.Score)

	stored, ok := store.Get(id)
	require.True(t, ok)
	require.Equal(t, record, stored)
	require.Len(t, store.Snapshot(), 1)
}

func TestUpdateReturnsDetachedCopy(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()

	first := store.Update(id, Partial{Score: scorePtr(1)})
	*first.Score = 0

	stored, _ := store.Get(id)
	require.Equal(t, 1.0, *stored.Score)
}

func TestCorrectnessIndicator(t *testing.T) {
	var neutral Record
	require.Equal(t, Undetermined, neutral.Correctness())

	preGraded := Record{PreGrade: &PreGrade{Score: 1}}
	require.Equal(t, Correct, preGraded.Correctness())

	preFailed := Record{PreGrade: &PreGrade{Score: 0}}
	require.Equal(t, Incorrect, preFailed.Correctness())

	// An explicit session score overrides the pre-grade hint.
	overridden := Record{Score: scorePtr(0), PreGrade: &PreGrade{Score: 1}}
	require.Equal(t, Incorrect, overridden.Correctness())

	graded := Record{Score: scorePtr(0.5)}
	require.Equal(t, Correct, graded.Correctness())
}

func TestApplyHintDiscardsStaleResponses(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()

	first := store.NextHintSeq()
	second := store.NextHintSeq()
	require.Greater(t, second, first)

	require.True(t, store.ApplyHint(id, second, "fresh"))
	require.False(t, store.ApplyHint(id, first, "stale"))

	record, _ := store.Get(id)
	require.Equal(t, "fresh", record.Hint)
}

func TestSubscribeReceivesMergesUntilCancelled(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()

	var seen []Record
	cancel := store.Subscribe(func(r Record) { seen = append(seen, r) })

	store.Update(id, Partial{Text: strPtr("x")})
	require.Len(t, seen, 1)

	cancel()
	store.Update(id, Partial{Text: strPtr("y")})
	require.Len(t, seen, 1)
}

func TestSeedReplacesState(t *testing.T) {
	store := NewMemoryStore()
	old := uuid.New()
	store.Update(old, Partial{Text: strPtr("gone")})

	fresh := uuid.New()
	store.Seed([]Record{{ElementID: fresh, Data: Data{Text: "loaded"}}})

	_, ok := store.Get(old)
	require.False(t, ok)

	record, ok := store.Get(fresh)
	require.True(t, ok)
	require.Equal(t, "loaded", record.Data.Text)
}
