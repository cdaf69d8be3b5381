// Package bot wires Telegram updates to the assistant: passive message
// observation plus the question-answering and task commands.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/team-assistant/internal/ai"
	"github.com/xaenox/team-assistant/internal/linear"
	"github.com/xaenox/team-assistant/internal/models"
	"github.com/xaenox/team-assistant/internal/query"
	"github.com/xaenox/team-assistant/internal/storage"
)

// telegramAPI is the slice of the Telegram client the bot uses. Tests
// plug in fakes; production passes *tgbotapi.BotAPI.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TaskTracker is the issue-tracker surface the bot depends on.
// Satisfied by *linear.Client; nil disables task features.
type TaskTracker interface {
	TeamForChat(chatID int64) (string, error)
	CreateIssue(ctx context.Context, title, description, teamID, assigneeID string, dueDate *time.Time) (*linear.Issue, error)
	IssueStatus(ctx context.Context, issueID string) (string, error)
}

type Bot struct {
	api      telegramAPI
	storage  storage.Storage
	ai       *ai.Client
	agent    *ai.Agent
	executor query.Runner
	enricher *query.Enricher
	linear   TaskTracker
	pending  *pendingStore
	logger   *zap.Logger

	username      string
	adminID       int64
	contextWindow time.Duration
}

func New(token string, store storage.Storage, client *ai.Client, agent *ai.Agent,
	executor query.Runner, enricher *query.Enricher, tracker TaskTracker,
	adminID int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:           api,
		storage:       store,
		ai:            client,
		agent:         agent,
		executor:      executor,
		enricher:      enricher,
		linear:        tracker,
		pending:       newPendingStore(30 * time.Minute),
		logger:        logger,
		username:      api.Self.UserName,
		adminID:       adminID,
		contextWindow: 24 * time.Hour,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started", zap.String("username", b.username))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery != nil {
				go b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if content == "" || message.From == nil {
		return
	}

	msg := &models.Message{
		MessageID:  int64(message.MessageID),
		ChatID:     message.Chat.ID,
		ChatName:   message.Chat.Title,
		SenderID:   message.From.ID,
		SenderName: senderName(message.From),
		Text:       content,
		Timestamp:  time.Unix(int64(message.Date), 0),
		IsBot:      message.From.IsBot,
	}

	if _, err := b.storage.StoreMessage(ctx, msg); err != nil {
		b.logger.Error("Failed to store message",
			zap.Error(err),
			zap.Int64("chat_id", msg.ChatID))
		return
	}

	// a reply may close an open question addressed to the admin
	if message.ReplyToMessage != nil && message.From.ID == b.adminID {
		answered, err := b.storage.MarkQuestionAnswered(ctx,
			int64(message.ReplyToMessage.MessageID), message.Chat.ID)
		if err != nil {
			b.logger.Error("Failed to mark question answered", zap.Error(err))
		} else if answered {
			b.logger.Info("Question answered",
				zap.Int64("message_id", int64(message.ReplyToMessage.MessageID)))
		}
	}

	b.observe(ctx, msg, message)
}

// observe runs the passive pipeline on a stored message: intent
// classification, task handling, and question tracking. Question
// tracking runs on every message; a question can score as a task
// candidate and still deserves an answer.
func (b *Bot) observe(ctx context.Context, msg *models.Message, raw *tgbotapi.Message) {
	recent, err := b.storage.RecentChatMessages(ctx, msg.ChatID, b.contextWindow, 10)
	if err != nil {
		b.logger.Error("Failed to load chat context", zap.Error(err))
	}

	intent := b.ai.ClassifyIntent(ctx, msg.Text, recent)
	b.logger.Debug("Message classified",
		zap.String("primary", intent.PrimaryIntent),
		zap.Int64("chat_id", msg.ChatID))

	switch intent.PrimaryIntent {
	case ai.IntentTaskCreation:
		b.createTaskFromIntent(ctx, msg, intent)
	case ai.IntentTaskCandidate:
		b.suggestTask(msg, raw, intent)
	case ai.IntentDatabaseQuery:
		if intent.SQLQuery != "" {
			b.answerWithSQL(ctx, msg.ChatID, raw.MessageID, msg.Text, intent.SQLQuery)
		} else {
			b.answerDataQuestion(ctx, msg.ChatID, raw.MessageID, msg.Text, false)
		}
	}

	b.trackQuestion(ctx, msg)
}

func (b *Bot) trackQuestion(ctx context.Context, msg *models.Message) {
	sender := &models.User{UserID: msg.SenderID, IsBot: msg.IsBot}
	question := b.ai.QuestionTarget(ctx, msg, sender, b.adminID)
	if question == nil {
		return
	}
	if _, err := b.storage.StoreUnansweredQuestion(ctx, question); err != nil {
		b.logger.Error("Failed to store question", zap.Error(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
			b.logger.Error("Failed to ack callback", zap.Error(err))
		}
	}()

	action, id, ok := strings.Cut(callback.Data, ":")
	if !ok || callback.From == nil || callback.Message == nil {
		return
	}

	switch action {
	case "task_yes":
		task, found := b.pending.take(callback.From.ID, id)
		if !found {
			b.sendMessage(callback.Message.Chat.ID, "This suggestion has expired.")
			return
		}
		b.createTask(ctx, task.ChatID, task.MessageID, task.Draft.Title, task.Draft.Description)
	case "task_no":
		b.pending.take(callback.From.ID, id)
	}
}

func senderName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name != "" {
		return name
	}
	return "Unknown"
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// sendMarkdown sends pre-escaped MarkdownV2 text.
func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendReply(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyToID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	b.sendMessage(chatID, "⚠️ "+text)
}

// sendStatus posts a status line and returns an updater that edits it
// in place, for long-running commands.
func (b *Bot) sendStatus(chatID int64, text string) func(string) {
	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		b.logger.Error("Failed to send status message", zap.Error(err))
		return func(string) {}
	}
	return func(update string) {
		edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, update)
		if _, err := b.api.Send(edit); err != nil {
			b.logger.Debug("Failed to edit status message", zap.Error(err))
		}
	}
}

func escapeMarkdown(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}
