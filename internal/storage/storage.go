package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/xaenox/team-assistant/internal/models"
)

// Storage is the relational store behind the assistant. All writes are
// single short transactions; nothing here spans a model call.
type Storage interface {
	// StoreMessage inserts a message, creating the chat and user rows if
	// needed, and bumps the sender's daily productivity counter.
	StoreMessage(ctx context.Context, msg *models.Message) (int64, error)
	RecentChatMessages(ctx context.Context, chatID int64, within time.Duration, limit int) ([]models.Message, error)
	ActiveChats(ctx context.Context, limit int) ([]models.ChatActivity, error)

	// StoreUnansweredQuestion refuses questions originating from bot
	// accounts and returns (0, nil) for them.
	StoreUnansweredQuestion(ctx context.Context, q *models.UnansweredQuestion) (int64, error)
	MarkQuestionAnswered(ctx context.Context, messageID, chatID int64) (bool, error)
	PendingReminders(ctx context.Context, targetUserID int64, olderThan time.Duration) ([]models.UnansweredQuestion, error)
	BumpReminder(ctx context.Context, questionID int64) error

	StoreTask(ctx context.Context, t *models.Task) (int64, error)
	UpdateTaskStatus(ctx context.Context, linearID, status string) (bool, error)
	DueTasks(ctx context.Context, days int) ([]models.Task, error)
	// OpenTasks lists tracker-backed tasks that are neither done nor
	// canceled, oldest first.
	OpenTasks(ctx context.Context, limit int) ([]models.Task, error)

	TeamProductivity(ctx context.Context, days int) ([]models.ProductivitySummary, error)

	// DB exposes the underlying handle for the raw query executor.
	// May be nil for implementations without one.
	DB() *sql.DB
	Close() error
}
