package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/team-assistant/internal/models"
	"github.com/xaenox/team-assistant/internal/query"
)

const (
	IntentTaskCreation  = "task_creation"
	IntentTaskCandidate = "task_candidate"
	IntentDatabaseQuery = "database_query"
	IntentOther         = "other"
)

// Intent is the classification of one incoming message. Scores run 1-10;
// the optional fields are filled only when the matching score dominates.
type Intent struct {
	TaskCreationScore  int    `json:"task_creation_score"`
	TaskCandidateScore int    `json:"task_candidate_score"`
	DatabaseQueryScore int    `json:"database_query_score"`
	PrimaryIntent      string `json:"primary_intent"`
	TaskTitle          string `json:"task_title"`
	TaskDescription    string `json:"task_description"`
	SQLQuery           string `json:"sql_query"`
	Reasoning          string `json:"reasoning"`
}

// intentPrecedence breaks score ties: an explicit task instruction beats
// a task-worthy remark beats a data question.
var intentPrecedence = []struct {
	name  string
	score func(Intent) int
}{
	{IntentTaskCreation, func(i Intent) int { return i.TaskCreationScore }},
	{IntentTaskCandidate, func(i Intent) int { return i.TaskCandidateScore }},
	{IntentDatabaseQuery, func(i Intent) int { return i.DatabaseQueryScore }},
}

var intentTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        "analyze_message",
		Description: "Record the intent analysis of a team chat message",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"task_creation_score": {"type": "integer", "minimum": 1, "maximum": 10, "description": "How strongly the message is a direct instruction to create a task"},
				"task_candidate_score": {"type": "integer", "minimum": 1, "maximum": 10, "description": "How strongly the message describes work worth tracking as a task, without asking for one"},
				"database_query_score": {"type": "integer", "minimum": 1, "maximum": 10, "description": "How strongly the message is a question answerable from stored chat data"},
				"primary_intent": {"type": "string", "enum": ["task_creation", "task_candidate", "database_query", "other"]},
				"task_title": {"type": "string", "description": "Short task title when a task intent applies, empty otherwise"},
				"task_description": {"type": "string", "description": "Task details when a task intent applies, empty otherwise"},
				"sql_query": {"type": "string", "description": "A candidate SELECT query when the message is a data question, empty otherwise"},
				"reasoning": {"type": "string", "description": "One sentence explaining the scores"}
			},
			"required": ["task_creation_score", "task_candidate_score", "database_query_score", "primary_intent", "reasoning"]
		}`),
	},
}

const intentSystemPrompt = `You analyze messages from a team work chat and score three intents on a 1-10 scale:
- task_creation: the author explicitly asks for a task to be created ("create a task", "заведи задачу").
- task_candidate: the message describes actionable work but does not ask for a task.
- database_query: the message asks about stored team data (messages, tasks, activity, productivity).
A message that is none of these gets low scores everywhere and primary_intent "other".

Stored data lives in these tables:
` + "`" + `
%s
` + "`" + `
When database_query applies, propose a single SELECT statement in sql_query.
Recent chat context, when present, helps disambiguate short replies.`

// ClassifyIntent scores message text against the three intents. It never
// fails: any model or decode error degrades to a neutral "other" intent
// so message handling keeps moving.
func (c *Client) ClassifyIntent(ctx context.Context, text string, recent []models.Message) Intent {
	system := fmt.Sprintf(intentSystemPrompt, query.SchemaCatalog)

	user := "Message: " + text
	if len(recent) > 0 {
		user = "Recent chat context:\n" + formatMessages(recent, 10) + "\n\n" + user
	}

	reply, err := c.completeTools(ctx, system, user, []openai.Tool{intentTool}, "analyze_message")
	if err != nil {
		c.logger.Error("Intent classification failed", zap.Error(err))
		return neutralIntent("classification unavailable: " + err.Error())
	}
	if reply.Call == nil {
		c.logger.Warn("Intent classification returned no tool call")
		return neutralIntent("model returned no structured analysis")
	}

	var intent Intent
	if err := reply.Call.Decode(&intent); err != nil {
		c.logger.Error("Intent arguments malformed",
			zap.Error(err),
			zap.String("arguments", reply.Call.Arguments))
		return neutralIntent("model returned malformed analysis")
	}

	intent.TaskCreationScore = clampScore(intent.TaskCreationScore)
	intent.TaskCandidateScore = clampScore(intent.TaskCandidateScore)
	intent.DatabaseQueryScore = clampScore(intent.DatabaseQueryScore)
	intent.PrimaryIntent = resolvePrimary(intent)
	return intent
}

// resolvePrimary honors a model-declared "other"; for anything else it
// recomputes the primary from the clamped scores so the label always
// agrees with the numbers.
func resolvePrimary(intent Intent) string {
	if intent.PrimaryIntent == IntentOther {
		return IntentOther
	}
	best := intentPrecedence[0]
	for _, candidate := range intentPrecedence[1:] {
		if candidate.score(intent) > best.score(intent) {
			best = candidate
		}
	}
	return best.name
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

func neutralIntent(reasoning string) Intent {
	return Intent{
		TaskCreationScore:  1,
		TaskCandidateScore: 1,
		DatabaseQueryScore: 1,
		PrimaryIntent:      IntentOther,
		Reasoning:          reasoning,
	}
}
