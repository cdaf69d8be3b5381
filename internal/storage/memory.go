package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/team-assistant/internal/models"
)

// MemoryStorage keeps everything in maps. Used for tests and for running
// without Postgres; the raw SQL executor is unavailable in this mode.
type MemoryStorage struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[int64]*models.User
	chats        map[int64]*models.Chat
	messages     []*models.Message
	tasks        map[string]*models.Task
	questions    map[int64]*models.UnansweredQuestion
	productivity map[string]*models.TeamProductivity
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:        make(map[int64]*models.User),
		chats:        make(map[int64]*models.Chat),
		tasks:        make(map[string]*models.Task),
		questions:    make(map[int64]*models.UnansweredQuestion),
		productivity: make(map[string]*models.TeamProductivity),
	}
}

func (s *MemoryStorage) id() int64 {
	s.nextID++
	return s.nextID
}

func productivityKey(userID int64, day time.Time) string {
	return fmt.Sprintf("%d:%s", userID, day.UTC().Format("2006-01-02"))
}

func (s *MemoryStorage) bumpProductivity(userID int64, messages, created, completed int) {
	key := productivityKey(userID, time.Now())
	p, ok := s.productivity[key]
	if !ok {
		p = &models.TeamProductivity{ID: s.id(), UserID: userID, Date: time.Now().UTC()}
		s.productivity[key] = p
	}
	p.MessageCount += messages
	p.TasksCreated += created
	p.TasksCompleted += completed
}

func (s *MemoryStorage) StoreMessage(ctx context.Context, msg *models.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[msg.ChatID]; !ok {
		s.chats[msg.ChatID] = &models.Chat{
			ID:       s.id(),
			ChatID:   msg.ChatID,
			ChatName: chatNameOrFallback(msg.ChatName, msg.ChatID),
			IsActive: true,
		}
	}
	if _, ok := s.users[msg.SenderID]; !ok {
		firstName, lastName := splitName(msg.SenderName)
		s.users[msg.SenderID] = &models.User{
			ID:        s.id(),
			UserID:    msg.SenderID,
			FirstName: firstName,
			LastName:  lastName,
			IsBot:     msg.IsBot,
			CreatedAt: time.Now().UTC(),
		}
	}

	stored := *msg
	stored.ID = s.id()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}
	if stored.Attachments == "" {
		stored.Attachments = "[]"
	}
	if stored.Category == "" {
		stored.Category = "default"
	}
	s.messages = append(s.messages, &stored)
	s.bumpProductivity(msg.SenderID, 1, 0, 0)
	msg.ID = stored.ID
	return stored.ID, nil
}

func (s *MemoryStorage) RecentChatMessages(ctx context.Context, chatID int64, within time.Duration, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-within)
	var result []models.Message
	for _, m := range s.messages {
		if m.ChatID != chatID || m.Timestamp.Before(cutoff) {
			continue
		}
		msg := *m
		if u, ok := s.users[m.SenderID]; ok {
			msg.SenderName = u.DisplayName()
		}
		result = append(result, msg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStorage) ActiveChats(ctx context.Context, limit int) ([]models.ChatActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.ChatActivity
	for _, c := range s.chats {
		if !c.IsActive {
			continue
		}
		activity := models.ChatActivity{Chat: *c}
		for _, m := range s.messages {
			if m.ChatID != c.ChatID {
				continue
			}
			activity.MessageCount++
			if activity.LastMessageTime == nil || m.Timestamp.After(*activity.LastMessageTime) {
				t := m.Timestamp
				activity.LastMessageTime = &t
			}
		}
		result = append(result, activity)
	}
	sort.Slice(result, func(i, j int) bool {
		ti, tj := result[i].LastMessageTime, result[j].LastMessageTime
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStorage) StoreUnansweredQuestion(ctx context.Context, q *models.UnansweredQuestion) (int64, error) {
	if q.IsBot {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *q
	stored.ID = s.id()
	if stored.AskedAt.IsZero() {
		stored.AskedAt = time.Now().UTC()
	}
	s.questions[stored.ID] = &stored
	q.ID = stored.ID
	return stored.ID, nil
}

func (s *MemoryStorage) MarkQuestionAnswered(ctx context.Context, messageID, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range s.questions {
		if q.MessageID == messageID && q.ChatID == chatID && !q.IsAnswered {
			now := time.Now().UTC()
			q.IsAnswered = true
			q.AnsweredAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) PendingReminders(ctx context.Context, targetUserID int64, olderThan time.Duration) ([]models.UnansweredQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var result []models.UnansweredQuestion
	for _, q := range s.questions {
		if q.TargetUserID == targetUserID && !q.IsAnswered && !q.AskedAt.After(cutoff) && q.ReminderCount < 3 {
			result = append(result, *q)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AskedAt.Before(result[j].AskedAt)
	})
	return result, nil
}

func (s *MemoryStorage) BumpReminder(ctx context.Context, questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.questions[questionID]; ok {
		q.ReminderCount++
	}
	return nil
}

func (s *MemoryStorage) StoreTask(ctx context.Context, t *models.Task) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *t
	stored.ID = s.id()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.tasks[stored.LinearID] = &stored
	if stored.AssigneeID != 0 {
		s.bumpProductivity(stored.AssigneeID, 0, 1, 0)
	}
	t.ID = stored.ID
	return stored.ID, nil
}

func (s *MemoryStorage) UpdateTaskStatus(ctx context.Context, linearID, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[linearID]
	if !ok {
		return false, nil
	}
	wasDone := isDoneStatus(t.Status)
	t.Status = status
	if isDoneStatus(status) && !wasDone && t.AssigneeID != 0 {
		s.bumpProductivity(t.AssigneeID, 0, 0, 1)
	}
	return true, nil
}

func (s *MemoryStorage) OpenTasks(ctx context.Context, limit int) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Task
	for _, t := range s.tasks {
		if t.LinearID == "" || isClosedStatus(t.Status) {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStorage) DueTasks(ctx context.Context, days int) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	horizon := today.AddDate(0, 0, days+1)
	var result []models.Task
	for _, t := range s.tasks {
		if t.DueDate == nil || isDoneStatus(t.Status) {
			continue
		}
		if !t.DueDate.Before(today) && t.DueDate.Before(horizon) {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DueDate.Before(*result[j].DueDate)
	})
	return result, nil
}

func (s *MemoryStorage) TeamProductivity(ctx context.Context, days int) ([]models.ProductivitySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	byUser := make(map[int64]*models.ProductivitySummary)
	for _, p := range s.productivity {
		if p.Date.Before(cutoff) {
			continue
		}
		summary, ok := byUser[p.UserID]
		if !ok {
			name := fmt.Sprintf("User %d", p.UserID)
			if u, exists := s.users[p.UserID]; exists {
				name = u.DisplayName()
			}
			summary = &models.ProductivitySummary{UserID: p.UserID, Name: name}
			byUser[p.UserID] = summary
		}
		summary.TotalMessages += p.MessageCount
		summary.TasksCreated += p.TasksCreated
		summary.TasksCompleted += p.TasksCompleted
	}

	var result []models.ProductivitySummary
	for _, summary := range byUser {
		result = append(result, *summary)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TotalMessages > result[j].TotalMessages
	})
	return result, nil
}

func (s *MemoryStorage) DB() *sql.DB {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
