package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/team-assistant/internal/ai"
)

func TestPendingStoreRoundTrip(t *testing.T) {
	store := newPendingStore(time.Minute)
	id := store.put(1, 100, 7, ai.TaskDraft{Title: "fix deploy"})

	task, ok := store.take(1, id)
	require.True(t, ok)
	assert.Equal(t, "fix deploy", task.Draft.Title)
	assert.Equal(t, int64(100), task.ChatID)

	// taken once, gone after
	_, ok = store.take(1, id)
	assert.False(t, ok)
}

func TestPendingStoreRejectsWrongUserOrID(t *testing.T) {
	store := newPendingStore(time.Minute)
	id := store.put(1, 100, 7, ai.TaskDraft{Title: "t"})

	_, ok := store.take(2, id)
	assert.False(t, ok)

	_, ok = store.take(1, "not-the-id")
	assert.False(t, ok)

	// the wrong id must not have consumed the draft
	_, ok = store.take(1, id)
	assert.True(t, ok)
}

func TestPendingStoreReplacesEarlierDraft(t *testing.T) {
	store := newPendingStore(time.Minute)
	oldID := store.put(1, 100, 7, ai.TaskDraft{Title: "old"})
	newID := store.put(1, 100, 8, ai.TaskDraft{Title: "new"})

	_, ok := store.take(1, oldID)
	assert.False(t, ok)

	task, ok := store.take(1, newID)
	require.True(t, ok)
	assert.Equal(t, "new", task.Draft.Title)
}

func TestPendingStoreExpires(t *testing.T) {
	store := newPendingStore(time.Nanosecond)
	id := store.put(1, 100, 7, ai.TaskDraft{Title: "t"})

	time.Sleep(time.Millisecond)
	_, ok := store.take(1, id)
	assert.False(t, ok)
}
