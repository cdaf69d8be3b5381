package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/team-assistant/internal/models"
	"github.com/xaenox/team-assistant/internal/query"
)

// AnswerContext is everything the synthesizer may draw on. Kind mirrors
// the route that produced it; unused fields stay zero.
type AnswerContext struct {
	Kind       string
	SQLQuery   string
	Result     *query.Result
	Transcript string
	Chats      []models.ChatActivity
	Recent     []models.Message
}

const answerSystemPrompt = `You answer questions about a team's Telegram chats for a manager.

Rules:
- Answer in the language of the question.
- Never mention SQL, queries, tables, joins, databases or column names. The reader sees an assistant, not a database.
- Use names of people and chats, never numeric ids.
- Include the concrete values from the data: counts, dates, names.
- If the data is empty, say plainly that nothing matching was found.
- If the data contains an error notice, say the information is unavailable right now. Do not speculate about the cause.
- Be concise. A few sentences, or a short list when listing is natural.`

// Answer turns retrieved context into a final reply to the user.
func (c *Client) Answer(ctx context.Context, question string, actx AnswerContext) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", question)

	switch actx.Kind {
	case RouteDatabaseQuery:
		b.WriteString("\nData retrieved for this question:\n")
		b.WriteString(formatResult(actx.Result, 10))
	case RouteChatHistory:
		b.WriteString("\nChat transcript:\n")
		b.WriteString(actx.Transcript)
	default:
		if len(actx.Chats) > 0 {
			b.WriteString("\nActive chats:\n")
			b.WriteString(formatChats(actx.Chats, 20))
		}
		if len(actx.Recent) > 0 {
			b.WriteString("\n\nRecent messages:\n")
			b.WriteString(formatMessages(actx.Recent, 10))
		}
	}

	return c.complete(ctx, answerSystemPrompt, b.String())
}

// formatResult renders a query result as aligned text, capped at limit
// rows. The error sentinel and the empty case get explicit markers so
// the model cannot mistake them for data.
func formatResult(result *query.Result, limit int) string {
	if msg, isErr := result.ErrorMessage(); isErr {
		return "ERROR: " + msg
	}
	if result.Empty() {
		return "(no rows found)"
	}

	rows := result.Rows
	truncated := false
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		truncated = true
	}

	var b strings.Builder
	b.WriteString(strings.Join(result.Columns, " | "))
	b.WriteString("\n")
	for _, row := range rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = cellText(row[col])
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	if truncated {
		fmt.Fprintf(&b, "... and %d more rows\n", len(result.Rows)-limit)
	}
	return b.String()
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
