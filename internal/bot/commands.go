package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/team-assistant/internal/ai"
	"github.com/xaenox/team-assistant/internal/linear"
	"github.com/xaenox/team-assistant/internal/models"
	"github.com/xaenox/team-assistant/internal/query"
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "ask":
		b.handleAsk(ctx, message)
	case "agent":
		b.handleAgent(ctx, message)
	case "reason":
		b.handleReason(ctx, message)
	case "summary":
		b.handleSummary(ctx, message)
	case "productivity":
		b.handleProductivity(ctx, message)
	case "createtask":
		b.handleCreateTask(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

// isAdmin gates the manager-only commands. Non-admins are ignored
// silently so the bot stays invisible in group chats.
func (b *Bot) isAdmin(message *tgbotapi.Message) bool {
	return message.From != nil && message.From.ID == b.adminID
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Hi! I watch your team chats and answer questions about them.

I keep track of messages, open questions and tasks, and I can create Linear issues for you.
Use /help to see what I can do.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/ask <question> - Answer a question about your team chats. Add --details to see how the answer was found.
/agent <question> - Run a multi-step investigation for complex questions.
/reason <question> - Think a question through step by step with self-checking.
/summary [today|yesterday|week|month] - Summarize recent activity.
/productivity [days] - Per-person activity report, default 7 days.
/createtask Title | Description - Create a Linear issue.
/help - Show this help message.

I also watch messages: questions addressed to you are tracked until answered, and messages that look like work get a task suggestion.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleAsk(ctx context.Context, message *tgbotapi.Message) {
	if !b.isAdmin(message) {
		return
	}
	args := strings.TrimSpace(message.CommandArguments())
	details := false
	if strings.Contains(args, "--details") {
		details = true
		args = strings.TrimSpace(strings.ReplaceAll(args, "--details", ""))
	}
	if args == "" {
		b.sendMessage(message.Chat.ID, "Usage: /ask <question> [--details]")
		return
	}
	b.answerDataQuestion(ctx, message.Chat.ID, message.MessageID, args, details)
}

// answerDataQuestion is the full route-fetch-answer pipeline behind
// /ask and auto-detected data questions.
func (b *Bot) answerDataQuestion(ctx context.Context, chatID int64, replyToID int, question string, details bool) {
	chats, err := b.storage.ActiveChats(ctx, 20)
	if err != nil {
		b.logger.Error("Failed to load chat list", zap.Error(err))
	}
	recent, err := b.storage.RecentChatMessages(ctx, chatID, b.contextWindow, 10)
	if err != nil {
		b.logger.Error("Failed to load recent messages", zap.Error(err))
	}

	route := b.ai.RouteContext(ctx, question, chats, recent)
	if route.Type == ai.RouteError {
		// routing failed, not answering; fall back to what is at hand
		b.logger.Warn("Context routing failed, answering from available context",
			zap.Error(route.Err))
		route = ai.Route{Type: ai.RouteAvailableContext, Reasoning: "routing unavailable"}
	}

	actx := b.buildAnswerContext(ctx, route, chats, recent)
	answer, err := b.ai.Answer(ctx, question, actx)
	if err != nil {
		b.logger.Error("Answer synthesis failed", zap.Error(err))
		b.sendErrorMessage(chatID, "I couldn't put an answer together. Please try again.")
		return
	}

	if details {
		answer += "\n\n" + routeDetails(route, actx)
	}
	b.sendReply(chatID, replyToID, answer)
}

// buildAnswerContext fetches whatever the route asked for.
func (b *Bot) buildAnswerContext(ctx context.Context, route ai.Route, chats []models.ChatActivity, recent []models.Message) ai.AnswerContext {
	actx := ai.AnswerContext{Kind: route.Type, Chats: chats, Recent: recent}
	switch route.Type {
	case ai.RouteDatabaseQuery:
		sqlText := query.Repair(route.SQLQuery)
		result := b.executor.Run(ctx, sqlText)
		if _, isErr := result.ErrorMessage(); !isErr {
			result = b.enricher.Enrich(ctx, result)
		}
		actx.SQLQuery = sqlText
		actx.Result = result
	case ai.RouteChatHistory:
		actx.Transcript = b.fetchTranscript(ctx, route.ChatIDs, route.MessageCount)
	}
	return actx
}

// answerWithSQL answers a data question with a query the intent
// classifier already proposed, skipping the routing round trip.
func (b *Bot) answerWithSQL(ctx context.Context, chatID int64, replyToID int, question, sqlText string) {
	repaired := query.Repair(sqlText)
	result := b.executor.Run(ctx, repaired)
	if _, isErr := result.ErrorMessage(); !isErr {
		result = b.enricher.Enrich(ctx, result)
	}

	answer, err := b.ai.Answer(ctx, question, ai.AnswerContext{
		Kind:     ai.RouteDatabaseQuery,
		SQLQuery: repaired,
		Result:   result,
	})
	if err != nil {
		b.logger.Error("Answer synthesis failed", zap.Error(err))
		b.sendErrorMessage(chatID, "I couldn't put an answer together. Please try again.")
		return
	}
	b.sendReply(chatID, replyToID, answer)
}

func (b *Bot) fetchTranscript(ctx context.Context, chatIDs []int64, count int) string {
	var parts []string
	for _, chatID := range chatIDs {
		msgs, err := b.storage.RecentChatMessages(ctx, chatID, 7*24*time.Hour, count)
		if err != nil {
			b.logger.Error("Failed to load transcript",
				zap.Error(err), zap.Int64("chat_id", chatID))
			continue
		}
		for _, msg := range msgs {
			parts = append(parts, fmt.Sprintf("[%s] %s: %s",
				msg.Timestamp.Format("2006-01-02 15:04"), msg.SenderName, msg.Text))
		}
	}
	if len(parts) == 0 {
		return "(no messages found)"
	}
	return strings.Join(parts, "\n")
}

func routeDetails(route ai.Route, actx ai.AnswerContext) string {
	switch route.Type {
	case ai.RouteDatabaseQuery:
		rows := 0
		if actx.Result != nil {
			rows = len(actx.Result.Rows)
		}
		return fmt.Sprintf("How I answered: ran a database lookup (%s), %d rows.", route.Explanation, rows)
	case ai.RouteChatHistory:
		return fmt.Sprintf("How I answered: read recent history of %d chat(s). %s", len(route.ChatIDs), route.Explanation)
	default:
		return "How I answered: from the chat overview already at hand. " + route.Reasoning
	}
}

func (b *Bot) handleAgent(ctx context.Context, message *tgbotapi.Message) {
	if !b.isAdmin(message) {
		return
	}
	question := strings.TrimSpace(message.CommandArguments())
	if question == "" {
		b.sendMessage(message.Chat.ID, "Usage: /agent <question>")
		return
	}

	progress := b.sendStatus(message.Chat.ID, "Working on it...")
	report, err := b.agent.Run(ctx, question, progress)
	if err != nil {
		b.logger.Error("Agent run failed", zap.Error(err), zap.String("question", question))
		progress("⚠️ The investigation failed. Please try again.")
		return
	}

	failed := 0
	for _, step := range report.Steps {
		if step.Err != "" {
			failed++
		}
	}
	answer := report.Answer
	if failed > 0 {
		answer += fmt.Sprintf("\n\n(%d of %d lookups failed; the answer covers what succeeded)",
			failed, len(report.Steps))
	}
	progress(answer)
}

func (b *Bot) handleReason(ctx context.Context, message *tgbotapi.Message) {
	if !b.isAdmin(message) {
		return
	}
	question := strings.TrimSpace(message.CommandArguments())
	if question == "" {
		b.sendMessage(message.Chat.ID, "Usage: /reason <question>")
		return
	}

	progress := b.sendStatus(message.Chat.ID, "Thinking it through...")
	result := b.ai.Reason(ctx, question)

	answer := result.FinalAnswer
	if result.BestEffort {
		answer += "\n\n(I could not fully verify this answer; treat it as a best effort.)"
	}
	progress(answer)
}

func (b *Bot) handleSummary(ctx context.Context, message *tgbotapi.Message) {
	if !b.isAdmin(message) {
		return
	}

	window := 24 * time.Hour
	label := "the last day"
	if arg := strings.TrimSpace(message.CommandArguments()); arg != "" {
		if period, ok := ai.DetectPeriod(arg); ok {
			window, label = periodWindow(period)
		}
	}

	msgs, err := b.storage.RecentChatMessages(ctx, message.Chat.ID, window, 200)
	if err != nil {
		b.logger.Error("Failed to load messages for summary", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "I couldn't load the messages to summarize.")
		return
	}
	if len(msgs) == 0 {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Nothing happened in %s.", label))
		return
	}

	summary, err := b.ai.SummarizeChat(ctx, message.Chat.Title, msgs)
	if err != nil {
		b.logger.Error("Summary failed", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "I couldn't build the summary. Please try again.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Summary for %s:\n\n%s", label, summary))
}

func periodWindow(period ai.Period) (time.Duration, string) {
	switch period {
	case ai.PeriodToday:
		return 24 * time.Hour, "today"
	case ai.PeriodYesterday:
		return 48 * time.Hour, "the last two days"
	case ai.PeriodWeek, ai.PeriodLastWeek:
		return 7 * 24 * time.Hour, "the last week"
	case ai.PeriodMonth, ai.PeriodLastMonth:
		return 30 * 24 * time.Hour, "the last month"
	case ai.PeriodYear:
		return 365 * 24 * time.Hour, "the last year"
	default:
		return 24 * time.Hour, "the last day"
	}
}

func (b *Bot) handleProductivity(ctx context.Context, message *tgbotapi.Message) {
	if !b.isAdmin(message) {
		return
	}

	days := 7
	if arg := strings.TrimSpace(message.CommandArguments()); arg != "" {
		if parsed, err := strconv.Atoi(arg); err == nil && parsed > 0 && parsed <= 365 {
			days = parsed
		}
	}

	rows, err := b.storage.TeamProductivity(ctx, days)
	if err != nil {
		b.logger.Error("Failed to load productivity", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "I couldn't load the productivity data.")
		return
	}
	if len(rows) == 0 {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("No activity recorded in the last %d days.", days))
		return
	}

	report, err := b.ai.AnalyzeProductivity(ctx, rows)
	if err != nil {
		b.logger.Error("Productivity analysis failed", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "I couldn't build the report. Please try again.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Productivity, last %d days:\n\n%s", days, report))
}

func (b *Bot) handleCreateTask(ctx context.Context, message *tgbotapi.Message) {
	if !b.isAdmin(message) {
		return
	}
	args := strings.TrimSpace(message.CommandArguments())
	if args == "" {
		b.sendMessage(message.Chat.ID, "Usage: /createtask Title | Description")
		return
	}

	title, description, _ := strings.Cut(args, "|")
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		b.sendMessage(message.Chat.ID, "The task needs a title: /createtask Title | Description")
		return
	}

	b.createTask(ctx, message.Chat.ID, int64(message.MessageID), title, description)
}

// createTask pushes a task to Linear and mirrors it into storage.
func (b *Bot) createTask(ctx context.Context, chatID, messageID int64, title, description string) {
	if b.linear == nil {
		b.sendErrorMessage(chatID, "Task creation is not configured.")
		return
	}

	teamID, err := b.linear.TeamForChat(chatID)
	if err != nil {
		b.logger.Error("No Linear team for chat", zap.Error(err), zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "No task tracker team is configured for this chat.")
		return
	}

	issue, err := b.linear.CreateIssue(ctx, title, description, teamID, "", nil)
	if err != nil {
		b.logger.Error("Linear issue creation failed", zap.Error(err))
		switch {
		case errors.Is(err, linear.ErrAuth):
			b.sendErrorMessage(chatID, "The task tracker rejected my credentials. Check the Linear API key.")
		case errors.Is(err, linear.ErrValidation):
			b.sendErrorMessage(chatID, "The task tracker rejected the task details. Try a shorter title or description.")
		default:
			b.sendErrorMessage(chatID, "Task creation failed. Please try again.")
		}
		return
	}

	task := &models.Task{
		LinearID:    issue.ID,
		Title:       issue.Title,
		Description: description,
		Status:      "todo",
		CreatedAt:   time.Now(),
		MessageID:   messageID,
		ChatID:      chatID,
	}
	if _, err := b.storage.StoreTask(ctx, task); err != nil {
		b.logger.Error("Failed to mirror task", zap.Error(err), zap.String("linear_id", issue.ID))
	}

	b.sendMarkdown(chatID, fmt.Sprintf("✅ Created *%s*: %s\n%s",
		escapeMarkdown(issue.Identifier), escapeMarkdown(issue.Title), escapeMarkdown(issue.URL)))
}

// createTaskFromIntent handles an explicit "create a task" instruction.
func (b *Bot) createTaskFromIntent(ctx context.Context, msg *models.Message, intent ai.Intent) {
	title := intent.TaskTitle
	description := intent.TaskDescription
	if title == "" {
		draft := b.ai.ExtractTask(ctx, msg.Text)
		if draft == nil {
			b.sendReply(msg.ChatID, int(msg.MessageID), "I couldn't work out what the task should be. Try /createtask Title | Description.")
			return
		}
		title, description = draft.Title, draft.Description
	}
	b.createTask(ctx, msg.ChatID, msg.MessageID, title, description)
}

// suggestTask offers an inline yes/no keyboard for a message that looks
// like work but did not ask for a task.
func (b *Bot) suggestTask(msg *models.Message, raw *tgbotapi.Message, intent ai.Intent) {
	title := intent.TaskTitle
	if title == "" {
		title = truncateText(msg.Text, 80)
	}
	draft := ai.TaskDraft{Title: title, Description: intent.TaskDescription}
	id := b.pending.put(msg.SenderID, msg.ChatID, msg.MessageID, draft)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Create task", "task_yes:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Dismiss", "task_no:"+id),
		),
	)

	reply := tgbotapi.NewMessage(msg.ChatID, fmt.Sprintf("This looks like a task: %q. Create it?", title))
	reply.ReplyToMessageID = raw.MessageID
	reply.ReplyMarkup = keyboard
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error("Failed to send task suggestion", zap.Error(err))
	}
}

func truncateText(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
