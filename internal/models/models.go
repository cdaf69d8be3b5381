package models

import "time"

// User is a chat participant. UserID matches the Telegram user id.
type User struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsBot     bool      `json:"is_bot"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName prefers username, then "first last", then "Unknown".
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name != "" {
		return name
	}
	return "Unknown"
}

// Chat is a monitored conversation.
type Chat struct {
	ID              int64      `json:"id"`
	ChatID          int64      `json:"chat_id"`
	ChatName        string     `json:"chat_name"`
	IsActive        bool       `json:"is_active"`
	LastSummaryTime *time.Time `json:"last_summary_time,omitempty"`
	LinearTeamID    string     `json:"linear_team_id,omitempty"`
}

// ChatActivity is a Chat plus the aggregates the context router shows the model.
type ChatActivity struct {
	Chat
	MessageCount    int        `json:"message_count"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
}

// Message is an observed chat event. MessageID is unique only within a chat.
type Message struct {
	ID          int64     `json:"id"`
	MessageID   int64     `json:"message_id"`
	ChatID      int64     `json:"chat_id"`
	ChatName    string    `json:"chat_name,omitempty"`
	SenderID    int64     `json:"sender_id"`
	SenderName  string    `json:"sender_name,omitempty"`
	Text        string    `json:"text"`
	Attachments string    `json:"attachments"`
	Timestamp   time.Time `json:"timestamp"`
	IsImportant bool      `json:"is_important"`
	IsProcessed bool      `json:"is_processed"`
	Category    string    `json:"category"`
	IsBot       bool      `json:"is_bot"`
}

// Task mirrors a Linear issue. Linear stays the source of truth for status.
type Task struct {
	ID          int64      `json:"id"`
	LinearID    string     `json:"linear_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssigneeID  int64      `json:"assignee_id,omitempty"`
	MessageID   int64      `json:"message_id,omitempty"`
	ChatID      int64      `json:"chat_id,omitempty"`
}

// UnansweredQuestion tracks a question directed at a specific user.
// Never created for messages sent by bots.
type UnansweredQuestion struct {
	ID            int64      `json:"id"`
	MessageID     int64      `json:"message_id"`
	ChatID        int64      `json:"chat_id"`
	TargetUserID  int64      `json:"target_user_id"`
	SenderID      int64      `json:"sender_id,omitempty"`
	Question      string     `json:"question"`
	AskedAt       time.Time  `json:"asked_at"`
	IsAnswered    bool       `json:"is_answered"`
	AnsweredAt    *time.Time `json:"answered_at,omitempty"`
	ReminderCount int        `json:"reminder_count"`
	IsBot         bool       `json:"is_bot"`
}

// TeamProductivity is a daily per-user rollup; at most one row per (user, day).
type TeamProductivity struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Date            time.Time `json:"date"`
	MessageCount    int       `json:"message_count"`
	TasksCreated    int       `json:"tasks_created"`
	TasksCompleted  int       `json:"tasks_completed"`
	AvgResponseTime int       `json:"avg_response_time"`
}

// ProductivitySummary is the period aggregate joined with user names.
type ProductivitySummary struct {
	UserID         int64   `json:"user_id"`
	Name           string  `json:"name"`
	TotalMessages  int     `json:"total_messages"`
	TasksCreated   int     `json:"tasks_created"`
	TasksCompleted int     `json:"tasks_completed"`
	AvgResponse    float64 `json:"avg_response_time"`
}
