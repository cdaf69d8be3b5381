package bot

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xaenox/team-assistant/internal/ai"
)

// pendingTask is a task draft waiting for the user to confirm or
// dismiss it via an inline keyboard.
type pendingTask struct {
	ID        string
	ChatID    int64
	MessageID int64
	Draft     ai.TaskDraft
	CreatedAt time.Time
}

// pendingStore keeps at most one pending draft per user, expiring
// unconfirmed drafts after the TTL.
type pendingStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	byUser map[int64]*pendingTask
}

func newPendingStore(ttl time.Duration) *pendingStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &pendingStore{ttl: ttl, byUser: make(map[int64]*pendingTask)}
}

// put stores a draft for the user, replacing any earlier one, and
// returns its id for the keyboard callback.
func (s *pendingStore) put(userID, chatID, messageID int64, draft ai.TaskDraft) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &pendingTask{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		MessageID: messageID,
		Draft:     draft,
		CreatedAt: time.Now(),
	}
	s.byUser[userID] = task
	return task.ID
}

// take removes and returns the user's draft when the id matches and the
// draft has not expired.
func (s *pendingStore) take(userID int64, id string) (*pendingTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.byUser[userID]
	if !ok || task.ID != id {
		return nil, false
	}
	delete(s.byUser, userID)
	if time.Since(task.CreatedAt) > s.ttl {
		return nil, false
	}
	return task, true
}
