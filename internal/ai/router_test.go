package ai

import (
	"context"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/team-assistant/internal/models"
)

func TestRouteContextDatabaseQuery(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("request_database_data", `{
			"sql_query": "SELECT sender_id, COUNT(*) FROM messages GROUP BY sender_id",
			"explanation": "counts messages per person"
		}`),
	}}
	client := testClient(api)

	route := client.RouteContext(context.Background(), "who writes the most?", nil, nil)

	assert.Equal(t, RouteDatabaseQuery, route.Type)
	assert.Contains(t, route.SQLQuery, "GROUP BY sender_id")
	assert.NotEmpty(t, route.Explanation)
	assert.NoError(t, route.Err)
}

func TestRouteContextChatHistory(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("request_chat_history", `{
			"chat_ids": [42, 43],
			"message_count": 30,
			"explanation": "the question is about a recent discussion"
		}`),
	}}
	client := testClient(api)

	route := client.RouteContext(context.Background(), "what did we decide about the release?", nil, nil)

	assert.Equal(t, RouteChatHistory, route.Type)
	assert.Equal(t, []int64{42, 43}, route.ChatIDs)
	assert.Equal(t, 30, route.MessageCount)
}

func TestRouteContextClampsMessageCount(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("request_chat_history", `{
			"chat_ids": [42],
			"message_count": 100000,
			"explanation": "everything"
		}`),
	}}
	client := testClient(api)

	route := client.RouteContext(context.Background(), "show me everything", nil, nil)

	assert.Equal(t, 50, route.MessageCount)
}

func TestRouteContextAvailableContext(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("answer_from_available_context", `{
			"reasoning": "the chat list already answers this"
		}`),
	}}
	client := testClient(api)

	route := client.RouteContext(context.Background(), "which chats do you watch?", nil, nil)

	assert.Equal(t, RouteAvailableContext, route.Type)
	assert.NotEmpty(t, route.Reasoning)
}

func TestRouteContextPlainTextFallsBackToAvailableContext(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("I can answer that directly."),
	}}
	client := testClient(api)

	route := client.RouteContext(context.Background(), "hello?", nil, nil)

	assert.Equal(t, RouteAvailableContext, route.Type)
}

func TestRouteContextErrorRoute(t *testing.T) {
	api := &scriptedCompleter{errs: []error{fmt.Errorf("connection reset")}}
	client := testClient(api)

	route := client.RouteContext(context.Background(), "who writes the most?", nil, nil)

	assert.Equal(t, RouteError, route.Type)
	assert.Error(t, route.Err)
}

func TestRouteContextIncludesPeriodHintAndChats(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("answer_from_available_context", `{"reasoning": "ok"}`),
	}}
	client := testClient(api)

	chats := []models.ChatActivity{
		{Chat: models.Chat{ChatID: 7, ChatName: "backend"}, MessageCount: 120},
	}
	client.RouteContext(context.Background(), "что было вчера?", chats, nil)

	require.Len(t, api.requests, 1)
	user := api.requests[0].Messages[1].Content
	assert.Contains(t, user, "yesterday")
	assert.Contains(t, user, "backend")
}
