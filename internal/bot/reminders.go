package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RunReminders periodically nudges the admin about questions that have
// waited too long. Each question is reminded at most three times; the
// storage layer enforces the cap.
func (b *Bot) RunReminders(ctx context.Context, interval, minAge time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	if minAge <= 0 {
		minAge = 2 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	dueTicker := time.NewTicker(24 * time.Hour)
	defer dueTicker.Stop()
	syncTicker := time.NewTicker(30 * time.Minute)
	defer syncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.remindOnce(ctx, minAge)
		case <-dueTicker.C:
			b.reportDueTasks(ctx)
		case <-syncTicker.C:
			b.syncTaskStatuses(ctx)
		}
	}
}

func (b *Bot) remindOnce(ctx context.Context, minAge time.Duration) {
	questions, err := b.storage.PendingReminders(ctx, b.adminID, minAge)
	if err != nil {
		b.logger.Error("Failed to load pending reminders", zap.Error(err))
		return
	}

	for _, q := range questions {
		text := fmt.Sprintf("⏰ Unanswered question from %s:\n%s",
			q.AskedAt.Format("Jan 2 15:04"), truncateText(q.Question, 300))

		if suggestion, err := b.ai.SuggestResponse(ctx, q.Question); err == nil && suggestion != "" {
			text += "\n\nDraft reply:\n" + suggestion
		}

		b.sendMessage(b.adminID, text)
		if err := b.storage.BumpReminder(ctx, q.ID); err != nil {
			b.logger.Error("Failed to bump reminder",
				zap.Error(err), zap.Int64("question_id", q.ID))
		}
	}
}

// syncTaskStatuses pulls the current workflow state of every open
// tracker-backed task and records transitions. Completion counts toward
// the assignee's productivity exactly once; the storage layer handles
// that on the transition.
func (b *Bot) syncTaskStatuses(ctx context.Context) {
	if b.linear == nil {
		return
	}

	tasks, err := b.storage.OpenTasks(ctx, 100)
	if err != nil {
		b.logger.Error("Failed to load open tasks", zap.Error(err))
		return
	}

	for _, t := range tasks {
		status, err := b.linear.IssueStatus(ctx, t.LinearID)
		if err != nil {
			b.logger.Warn("Failed to fetch issue status",
				zap.Error(err), zap.String("linear_id", t.LinearID))
			continue
		}
		if status == "" || strings.EqualFold(status, t.Status) {
			continue
		}
		if _, err := b.storage.UpdateTaskStatus(ctx, t.LinearID, status); err != nil {
			b.logger.Error("Failed to update task status",
				zap.Error(err), zap.String("linear_id", t.LinearID))
			continue
		}
		b.logger.Info("Task status synced",
			zap.String("linear_id", t.LinearID),
			zap.String("status", status))
	}
}

// reportDueTasks sends the admin a daily digest of tasks due within the
// next three days.
func (b *Bot) reportDueTasks(ctx context.Context) {
	tasks, err := b.storage.DueTasks(ctx, 3)
	if err != nil {
		b.logger.Error("Failed to load due tasks", zap.Error(err))
		return
	}
	if len(tasks) == 0 {
		return
	}

	text := "📅 Tasks due soon:\n"
	for _, t := range tasks {
		text += fmt.Sprintf("- %s (due %s)\n", t.Title, t.DueDate.Format("Jan 2"))
	}
	b.sendMessage(b.adminID, text)
}
