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
	RouteDatabaseQuery    = "database_query"
	RouteChatHistory      = "chat_history"
	RouteAvailableContext = "available_context"
	RouteError            = "error"
)

// Route is the context decision for one question: what data the answer
// needs and how to fetch it.
type Route struct {
	Type         string
	SQLQuery     string
	Explanation  string
	ChatIDs      []int64
	MessageCount int
	Reasoning    string
	Err          error
}

var routerTools = []openai.Tool{
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        "request_database_data",
			Description: "Fetch data with a SQL SELECT when the question needs counting, aggregation, filtering by time, or anything across many messages",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"sql_query": {"type": "string", "description": "A single PostgreSQL SELECT statement"},
					"explanation": {"type": "string", "description": "What the query retrieves and why it answers the question"}
				},
				"required": ["sql_query", "explanation"]
			}`),
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        "request_chat_history",
			Description: "Fetch recent raw messages from specific chats when the question is about what was literally said or discussed",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"chat_ids": {"type": "array", "items": {"type": "integer"}, "description": "Chats to read, by chat_id from the chat list"},
					"message_count": {"type": "integer", "description": "How many recent messages per chat, at most 200"},
					"explanation": {"type": "string", "description": "Why raw history answers the question"}
				},
				"required": ["chat_ids", "message_count", "explanation"]
			}`),
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        "answer_from_available_context",
			Description: "Answer directly when the chat list and recent messages already shown are enough, or when no stored data can help",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"reasoning": {"type": "string", "description": "Why no further data is needed"}
				},
				"required": ["reasoning"]
			}`),
		},
	},
}

const routerSystemPrompt = `You decide what stored data is needed to answer a question about a team's Telegram chats.

Available tables:
` + "`" + `
%s
` + "`" + `
Pick exactly one tool:
- request_database_data for statistics, counts, superlatives ("who wrote the most", "how many", "самый активный"), time-bounded questions, or anything spanning many messages. Write real PostgreSQL.
- request_chat_history when the question is about the content of a recent conversation and reading the raw messages answers it.
- answer_from_available_context when the data already shown below suffices, or when no stored data can possibly help.

Questions with aggregation words almost always need request_database_data, not raw history.`

type databaseArgs struct {
	SQLQuery    string `json:"sql_query"`
	Explanation string `json:"explanation"`
}

type historyArgs struct {
	ChatIDs      []int64 `json:"chat_ids"`
	MessageCount int     `json:"message_count"`
	Explanation  string  `json:"explanation"`
}

type contextArgs struct {
	Reasoning string `json:"reasoning"`
}

// RouteContext asks the model which data source answers the question.
// The chat inventory and a slice of recent messages are shown so the
// model can route to concrete chat ids or decide nothing more is needed.
func (c *Client) RouteContext(ctx context.Context, question string, chats []models.ChatActivity, recent []models.Message) Route {
	system := fmt.Sprintf(routerSystemPrompt, query.SchemaCatalog)

	user := "Question: " + question
	if period, ok := DetectPeriod(question); ok {
		user += fmt.Sprintf("\n\nTime hint: the question refers to period %q.", period)
	}
	if len(chats) > 0 {
		user += "\n\nActive chats:\n" + formatChats(chats, 20)
	}
	if len(recent) > 0 {
		user += "\n\nRecent messages:\n" + formatMessages(recent, 10)
	}

	reply, err := c.completeTools(ctx, system, user, routerTools, "")
	if err != nil {
		c.logger.Error("Context routing failed", zap.Error(err))
		return Route{Type: RouteError, Err: err}
	}
	if reply.Call == nil {
		// plain text reply means the model chose to answer directly
		return Route{Type: RouteAvailableContext, Reasoning: reply.Text}
	}

	switch reply.Call.Name {
	case "request_database_data":
		var args databaseArgs
		if err := reply.Call.Decode(&args); err != nil {
			return c.malformedRoute(reply.Call, err)
		}
		return Route{Type: RouteDatabaseQuery, SQLQuery: args.SQLQuery, Explanation: args.Explanation}
	case "request_chat_history":
		var args historyArgs
		if err := reply.Call.Decode(&args); err != nil {
			return c.malformedRoute(reply.Call, err)
		}
		if args.MessageCount <= 0 || args.MessageCount > 200 {
			args.MessageCount = 50
		}
		return Route{Type: RouteChatHistory, ChatIDs: args.ChatIDs, MessageCount: args.MessageCount, Explanation: args.Explanation}
	case "answer_from_available_context":
		var args contextArgs
		if err := reply.Call.Decode(&args); err != nil {
			return c.malformedRoute(reply.Call, err)
		}
		return Route{Type: RouteAvailableContext, Reasoning: args.Reasoning}
	default:
		c.logger.Warn("Router called unknown tool", zap.String("tool", reply.Call.Name))
		return Route{Type: RouteAvailableContext, Reasoning: "no data source selected"}
	}
}

func (c *Client) malformedRoute(call *FunctionCall, err error) Route {
	c.logger.Error("Router arguments malformed",
		zap.Error(err),
		zap.String("tool", call.Name),
		zap.String("arguments", call.Arguments))
	return Route{Type: RouteError, Err: err}
}
