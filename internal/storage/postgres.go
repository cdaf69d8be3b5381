package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/xaenox/team-assistant/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) StoreMessage(ctx context.Context, msg *models.Message) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (chat_id, chat_name)
		VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE
		SET chat_name = COALESCE(NULLIF($3, ''), chats.chat_name)`,
		msg.ChatID, chatNameOrFallback(msg.ChatName, msg.ChatID), msg.ChatName)
	if err != nil {
		return 0, fmt.Errorf("error upserting chat: %v", err)
	}

	firstName, lastName := splitName(msg.SenderName)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, first_name, last_name, is_bot)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET is_bot = EXCLUDED.is_bot`,
		msg.SenderID, firstName, lastName, msg.IsBot)
	if err != nil {
		return 0, fmt.Errorf("error upserting user: %v", err)
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	attachments := msg.Attachments
	if attachments == "" {
		attachments = "[]"
	}
	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (message_id, chat_id, sender_id, text, attachments, timestamp, category, is_bot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		msg.MessageID, msg.ChatID, msg.SenderID, msg.Text, attachments, ts, categoryOrDefault(msg.Category), msg.IsBot,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error inserting message: %v", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO team_productivity (user_id, date, message_count)
		VALUES ($1, CURRENT_DATE, 1)
		ON CONFLICT (user_id, date) DO UPDATE SET message_count = team_productivity.message_count + 1`,
		msg.SenderID)
	if err != nil {
		return 0, fmt.Errorf("error updating productivity: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing message: %v", err)
	}
	msg.ID = id
	return id, nil
}

func (s *PostgresStorage) RecentChatMessages(ctx context.Context, chatID int64, within time.Duration, limit int) ([]models.Message, error) {
	cutoff := time.Now().UTC().Add(-within)
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.message_id, m.chat_id, COALESCE(m.sender_id, 0), COALESCE(m.text, ''),
		       m.timestamp, m.is_important, m.category, m.is_bot,
		       COALESCE(u.username, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, '')
		FROM messages m
		LEFT JOIN users u ON u.user_id = m.sender_id
		WHERE m.chat_id = $1 AND m.timestamp >= $2
		ORDER BY m.timestamp DESC
		LIMIT $3`,
		chatID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %v", err)
	}
	defer rows.Close()

	var result []models.Message
	for rows.Next() {
		var m models.Message
		var username, firstName, lastName string
		if err := rows.Scan(&m.ID, &m.MessageID, &m.ChatID, &m.SenderID, &m.Text,
			&m.Timestamp, &m.IsImportant, &m.Category, &m.IsBot,
			&username, &firstName, &lastName); err != nil {
			return nil, fmt.Errorf("error scanning message: %v", err)
		}
		u := models.User{Username: username, FirstName: firstName, LastName: lastName}
		m.SenderName = u.DisplayName()
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *PostgresStorage) ActiveChats(ctx context.Context, limit int) ([]models.ChatActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.chat_id, COALESCE(c.chat_name, ''), c.is_active, COALESCE(c.linear_team_id, ''),
		       (SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.chat_id),
		       (SELECT MAX(m.timestamp) FROM messages m WHERE m.chat_id = c.chat_id)
		FROM chats c
		WHERE c.is_active
		ORDER BY 7 DESC NULLS LAST
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("error querying chats: %v", err)
	}
	defer rows.Close()

	var result []models.ChatActivity
	for rows.Next() {
		var c models.ChatActivity
		var last sql.NullTime
		if err := rows.Scan(&c.ID, &c.ChatID, &c.ChatName, &c.IsActive, &c.LinearTeamID, &c.MessageCount, &last); err != nil {
			return nil, fmt.Errorf("error scanning chat: %v", err)
		}
		if last.Valid {
			t := last.Time
			c.LastMessageTime = &t
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *PostgresStorage) StoreUnansweredQuestion(ctx context.Context, q *models.UnansweredQuestion) (int64, error) {
	if q.IsBot {
		s.logger.Debug("Skipping question from bot", zap.Int64("message_id", q.MessageID))
		return 0, nil
	}

	askedAt := q.AskedAt
	if askedAt.IsZero() {
		askedAt = time.Now().UTC()
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO unanswered_questions (message_id, chat_id, target_user_id, sender_id, question, asked_at, is_bot)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		q.MessageID, q.ChatID, q.TargetUserID, nullableID(q.SenderID), q.Question, askedAt, q.IsBot,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error storing question: %v", err)
	}
	q.ID = id
	return id, nil
}

func (s *PostgresStorage) MarkQuestionAnswered(ctx context.Context, messageID, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE unanswered_questions
		SET is_answered = TRUE, answered_at = NOW()
		WHERE message_id = $1 AND chat_id = $2 AND NOT is_answered`,
		messageID, chatID)
	if err != nil {
		return false, fmt.Errorf("error marking question answered: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %v", err)
	}
	return affected > 0, nil
}

func (s *PostgresStorage) PendingReminders(ctx context.Context, targetUserID int64, olderThan time.Duration) ([]models.UnansweredQuestion, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, chat_id, target_user_id, COALESCE(sender_id, 0), COALESCE(question, ''),
		       asked_at, reminder_count, is_bot
		FROM unanswered_questions
		WHERE target_user_id = $1 AND NOT is_answered AND asked_at <= $2 AND reminder_count < 3
		ORDER BY asked_at`,
		targetUserID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error querying reminders: %v", err)
	}
	defer rows.Close()

	var result []models.UnansweredQuestion
	for rows.Next() {
		var q models.UnansweredQuestion
		if err := rows.Scan(&q.ID, &q.MessageID, &q.ChatID, &q.TargetUserID, &q.SenderID,
			&q.Question, &q.AskedAt, &q.ReminderCount, &q.IsBot); err != nil {
			return nil, fmt.Errorf("error scanning reminder: %v", err)
		}
		result = append(result, q)
	}
	return result, rows.Err()
}

func (s *PostgresStorage) BumpReminder(ctx context.Context, questionID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE unanswered_questions
		SET reminder_count = reminder_count + 1, last_reminder_at = NOW()
		WHERE id = $1`,
		questionID)
	if err != nil {
		return fmt.Errorf("error updating reminder: %v", err)
	}
	return nil
}

func (s *PostgresStorage) StoreTask(ctx context.Context, t *models.Task) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tasks (linear_id, title, description, status, due_date, assignee_id, message_id, chat_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		t.LinearID, t.Title, t.Description, t.Status, t.DueDate, nullableID(t.AssigneeID), t.MessageID, t.ChatID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error inserting task: %v", err)
	}

	if t.AssigneeID != 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO team_productivity (user_id, date, tasks_created)
			VALUES ($1, CURRENT_DATE, 1)
			ON CONFLICT (user_id, date) DO UPDATE SET tasks_created = team_productivity.tasks_created + 1`,
			t.AssigneeID)
		if err != nil {
			return 0, fmt.Errorf("error updating productivity: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing task: %v", err)
	}
	t.ID = id
	return id, nil
}

func (s *PostgresStorage) UpdateTaskStatus(ctx context.Context, linearID, status string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	var oldStatus string
	var assigneeID sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(status, ''), assignee_id FROM tasks WHERE linear_id = $1 FOR UPDATE`,
		linearID).Scan(&oldStatus, &assigneeID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error loading task: %v", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE tasks SET status = $1 WHERE linear_id = $2`, status, linearID)
	if err != nil {
		return false, fmt.Errorf("error updating task status: %v", err)
	}

	if isDoneStatus(status) && !isDoneStatus(oldStatus) && assigneeID.Valid {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO team_productivity (user_id, date, tasks_completed)
			VALUES ($1, CURRENT_DATE, 1)
			ON CONFLICT (user_id, date) DO UPDATE SET tasks_completed = team_productivity.tasks_completed + 1`,
			assigneeID.Int64)
		if err != nil {
			return false, fmt.Errorf("error updating productivity: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("error committing status update: %v", err)
	}
	return true, nil
}

func (s *PostgresStorage) DueTasks(ctx context.Context, days int) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(linear_id, ''), COALESCE(title, ''), COALESCE(description, ''),
		       COALESCE(status, ''), created_at, due_date, COALESCE(assignee_id, 0),
		       COALESCE(message_id, 0), COALESCE(chat_id, 0)
		FROM tasks
		WHERE due_date >= CURRENT_DATE
		  AND due_date < CURRENT_DATE + ($1 + 1) * INTERVAL '1 day'
		  AND LOWER(COALESCE(status, '')) NOT IN ('done', 'completed', 'merged')
		ORDER BY due_date`,
		days)
	if err != nil {
		return nil, fmt.Errorf("error querying due tasks: %v", err)
	}
	defer rows.Close()

	var result []models.Task
	for rows.Next() {
		var t models.Task
		var due sql.NullTime
		if err := rows.Scan(&t.ID, &t.LinearID, &t.Title, &t.Description, &t.Status,
			&t.CreatedAt, &due, &t.AssigneeID, &t.MessageID, &t.ChatID); err != nil {
			return nil, fmt.Errorf("error scanning task: %v", err)
		}
		if due.Valid {
			d := due.Time
			t.DueDate = &d
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *PostgresStorage) OpenTasks(ctx context.Context, limit int) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(linear_id, ''), COALESCE(title, ''), COALESCE(description, ''),
		       COALESCE(status, ''), created_at, due_date, COALESCE(assignee_id, 0),
		       COALESCE(message_id, 0), COALESCE(chat_id, 0)
		FROM tasks
		WHERE COALESCE(linear_id, '') <> ''
		  AND LOWER(COALESCE(status, '')) NOT IN ('done', 'completed', 'merged', 'canceled')
		ORDER BY created_at
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("error querying open tasks: %v", err)
	}
	defer rows.Close()

	var result []models.Task
	for rows.Next() {
		var t models.Task
		var due sql.NullTime
		if err := rows.Scan(&t.ID, &t.LinearID, &t.Title, &t.Description, &t.Status,
			&t.CreatedAt, &due, &t.AssigneeID, &t.MessageID, &t.ChatID); err != nil {
			return nil, fmt.Errorf("error scanning task: %v", err)
		}
		if due.Valid {
			d := due.Time
			t.DueDate = &d
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *PostgresStorage) TeamProductivity(ctx context.Context, days int) ([]models.ProductivitySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.user_id,
		       COALESCE(u.username, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
		       COALESCE(SUM(p.message_count), 0),
		       COALESCE(SUM(p.tasks_created), 0),
		       COALESCE(SUM(p.tasks_completed), 0),
		       COALESCE(AVG(p.avg_response_time), 0)
		FROM team_productivity p
		LEFT JOIN users u ON u.user_id = p.user_id
		WHERE p.date >= CURRENT_DATE - $1 * INTERVAL '1 day'
		GROUP BY p.user_id, u.username, u.first_name, u.last_name
		ORDER BY 5 DESC`,
		days)
	if err != nil {
		return nil, fmt.Errorf("error querying productivity: %v", err)
	}
	defer rows.Close()

	var result []models.ProductivitySummary
	for rows.Next() {
		var p models.ProductivitySummary
		var username, firstName, lastName string
		if err := rows.Scan(&p.UserID, &username, &firstName, &lastName,
			&p.TotalMessages, &p.TasksCreated, &p.TasksCompleted, &p.AvgResponse); err != nil {
			return nil, fmt.Errorf("error scanning productivity: %v", err)
		}
		u := models.User{Username: username, FirstName: firstName, LastName: lastName}
		p.Name = u.DisplayName()
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *PostgresStorage) DB() *sql.DB {
	return s.db
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func isDoneStatus(status string) bool {
	switch status {
	case "Done", "done", "Completed", "completed", "Merged", "merged":
		return true
	}
	return false
}

// isClosedStatus covers everything that takes a task out of the open
// set, including cancellation, which never counts as completed work.
func isClosedStatus(status string) bool {
	return isDoneStatus(status) || strings.EqualFold(status, "canceled")
}

func splitName(full string) (string, string) {
	for i := 0; i < len(full); i++ {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}

func categoryOrDefault(category string) string {
	if category == "" {
		return "default"
	}
	return category
}

func chatNameOrFallback(name string, chatID int64) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("Chat %d", chatID)
}
