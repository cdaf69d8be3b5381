package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/team-assistant/internal/models"
)

const summarySystemPrompt = `You summarize a work chat transcript for a manager who has not read it.
Cover: decisions made, open questions, work in progress, and anything blocked. Skip social chatter.
Write in the dominant language of the transcript. Use short bullet points.`

// SummarizeChat condenses a transcript into a manager-facing digest.
func (c *Client) SummarizeChat(ctx context.Context, chatName string, msgs []models.Message) (string, error) {
	if len(msgs) == 0 {
		return "", fmt.Errorf("nothing to summarize")
	}
	user := fmt.Sprintf("Chat: %s\n\nTranscript:\n%s", chatName, formatMessages(msgs, 200))
	return c.complete(ctx, summarySystemPrompt, user)
}

const productivitySystemPrompt = `You comment on team productivity numbers for a manager.
Point out the most and least active people, notable task throughput, and any imbalance worth a conversation.
Stay factual; the numbers are the evidence. A short paragraph plus bullets at most.`

// AnalyzeProductivity narrates per-user rollups for a reporting period.
func (c *Client) AnalyzeProductivity(ctx context.Context, rows []models.ProductivitySummary) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no productivity data for the period")
	}
	var b strings.Builder
	b.WriteString("Per-person totals for the period:\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "- %s: %d messages, %d tasks created, %d tasks completed\n",
			row.Name, row.TotalMessages, row.TasksCreated, row.TasksCompleted)
	}
	return c.complete(ctx, productivitySystemPrompt, b.String())
}

const suggestSystemPrompt = `You draft a short reply to a question asked in a team chat, for the recipient to edit and send.
Keep it direct and polite, in the language of the question. Never fabricate facts; when the answer requires knowledge you lack, draft a reply that asks the one clarifying question needed.`

// SuggestResponse drafts a reply to a tracked unanswered question.
func (c *Client) SuggestResponse(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, suggestSystemPrompt, "Question: "+question)
}
