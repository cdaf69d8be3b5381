package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/xaenox/team-assistant/internal/models"
)

// MessageAnalysis is the per-message triage used by the passive
// pipeline: categorization plus question/task flags.
type MessageAnalysis struct {
	Category       string `json:"category"`
	IsImportant    bool   `json:"is_important"`
	IsQuestion     bool   `json:"is_question"`
	HasTask        bool   `json:"has_task"`
	ContextSummary string `json:"context_summary"`
}

const analyzeSystemPrompt = `You triage a message from a team work chat.
Respond with a JSON object:
{
  "category": "one of: question, status_update, decision, task, social, other",
  "is_important": true when the message needs follow-up or records a decision,
  "is_question": true when the message asks something and expects an answer,
  "has_task": true when the message contains actionable work,
  "context_summary": "one sentence summary"
}`

// AnalyzeMessage triages one message. Errors degrade to a neutral
// analysis with category "error" so the message pipeline never stalls.
func (c *Client) AnalyzeMessage(ctx context.Context, text string) MessageAnalysis {
	var analysis MessageAnalysis
	if err := c.completeJSON(ctx, analyzeSystemPrompt, "Message: "+text, &analysis); err != nil {
		c.logger.Error("Message analysis failed", zap.Error(err))
		return MessageAnalysis{Category: "error"}
	}
	if analysis.Category == "" {
		analysis.Category = "other"
	}
	return analysis
}

// TaskDraft is a task extracted from free text, ready for review before
// it reaches the tracker.
type TaskDraft struct {
	IsTask      bool   `json:"is_task"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
}

const extractTaskSystemPrompt = `You extract a task from a work chat message.
Respond with a JSON object:
{
  "is_task": true only when the message describes concrete actionable work,
  "title": "imperative, under 80 characters",
  "description": "details from the message, verbatim facts only",
  "assignee": "name if the message names one, else empty",
  "due_date": "YYYY-MM-DD if the message states one, else empty",
  "priority": "urgent, high, normal or low; normal when unstated"
}
Do not invent details absent from the message.`

// ExtractTask pulls a task draft out of a message. Returns nil when the
// message carries no task or the extraction produced no usable title.
func (c *Client) ExtractTask(ctx context.Context, text string) *TaskDraft {
	var draft TaskDraft
	if err := c.completeJSON(ctx, extractTaskSystemPrompt, "Message: "+text, &draft); err != nil {
		c.logger.Error("Task extraction failed", zap.Error(err))
		return nil
	}
	if !draft.IsTask || draft.Title == "" {
		return nil
	}
	if draft.Priority == "" {
		draft.Priority = "normal"
	}
	return &draft
}

// QuestionTarget decides whether a message is a question directed at the
// admin that should be tracked until answered. Bot messages and the
// admin's own messages are never tracked.
func (c *Client) QuestionTarget(ctx context.Context, msg *models.Message, sender *models.User, adminID int64) *models.UnansweredQuestion {
	if sender != nil && sender.IsBot {
		return nil
	}
	if msg.SenderID == adminID {
		return nil
	}
	analysis := c.AnalyzeMessage(ctx, msg.Text)
	if !analysis.IsQuestion {
		return nil
	}
	return &models.UnansweredQuestion{
		MessageID:    msg.MessageID,
		ChatID:       msg.ChatID,
		SenderID:     msg.SenderID,
		TargetUserID: adminID,
		Question:     msg.Text,
		AskedAt:      msg.Timestamp,
	}
}
