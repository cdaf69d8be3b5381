package ai

import (
	"context"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIntentScoresAndPrimary(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("analyze_message", `{
			"task_creation_score": 2,
			"task_candidate_score": 3,
			"database_query_score": 9,
			"primary_intent": "database_query",
			"sql_query": "SELECT COUNT(*) FROM messages",
			"reasoning": "asks about message volume"
		}`),
	}}
	client := testClient(api)

	intent := client.ClassifyIntent(context.Background(), "how many messages today?", nil)

	assert.Equal(t, IntentDatabaseQuery, intent.PrimaryIntent)
	assert.Equal(t, 9, intent.DatabaseQueryScore)
	assert.Equal(t, "SELECT COUNT(*) FROM messages", intent.SQLQuery)
}

func TestClassifyIntentClampsScores(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("analyze_message", `{
			"task_creation_score": 0,
			"task_candidate_score": 15,
			"database_query_score": -3,
			"primary_intent": "task_candidate",
			"reasoning": "out of range scores"
		}`),
	}}
	client := testClient(api)

	intent := client.ClassifyIntent(context.Background(), "we should fix the deploy script", nil)

	assert.Equal(t, 1, intent.TaskCreationScore)
	assert.Equal(t, 10, intent.TaskCandidateScore)
	assert.Equal(t, 1, intent.DatabaseQueryScore)
	assert.Equal(t, IntentTaskCandidate, intent.PrimaryIntent)
}

func TestClassifyIntentRecomputesMismatchedPrimary(t *testing.T) {
	// the label disagrees with the scores; the scores win
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("analyze_message", `{
			"task_creation_score": 9,
			"task_candidate_score": 2,
			"database_query_score": 3,
			"primary_intent": "database_query",
			"task_title": "Fix login",
			"reasoning": "explicit instruction"
		}`),
	}}
	client := testClient(api)

	intent := client.ClassifyIntent(context.Background(), "create a task to fix login", nil)

	assert.Equal(t, IntentTaskCreation, intent.PrimaryIntent)
}

func TestClassifyIntentTieBreaksByPrecedence(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("analyze_message", `{
			"task_creation_score": 7,
			"task_candidate_score": 7,
			"database_query_score": 7,
			"primary_intent": "task_candidate",
			"reasoning": "ambiguous"
		}`),
	}}
	client := testClient(api)

	intent := client.ClassifyIntent(context.Background(), "ambiguous message", nil)

	assert.Equal(t, IntentTaskCreation, intent.PrimaryIntent)
}

func TestClassifyIntentHonorsModelOther(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("analyze_message", `{
			"task_creation_score": 3,
			"task_candidate_score": 2,
			"database_query_score": 2,
			"primary_intent": "other",
			"reasoning": "just chatting"
		}`),
	}}
	client := testClient(api)

	intent := client.ClassifyIntent(context.Background(), "good morning everyone", nil)

	assert.Equal(t, IntentOther, intent.PrimaryIntent)
}

func TestClassifyIntentDegradesOnError(t *testing.T) {
	api := &scriptedCompleter{errs: []error{fmt.Errorf("rate limited")}}
	client := testClient(api)

	intent := client.ClassifyIntent(context.Background(), "anything", nil)

	assert.Equal(t, IntentOther, intent.PrimaryIntent)
	assert.Equal(t, 1, intent.TaskCreationScore)
	assert.Equal(t, 1, intent.TaskCandidateScore)
	assert.Equal(t, 1, intent.DatabaseQueryScore)
	assert.NotEmpty(t, intent.Reasoning)
}

func TestClassifyIntentDegradesOnMalformedArguments(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("analyze_message", `{"task_creation_score": not json`),
	}}
	client := testClient(api)

	intent := client.ClassifyIntent(context.Background(), "anything", nil)

	assert.Equal(t, IntentOther, intent.PrimaryIntent)
}

func TestClassifyIntentForcesTool(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolResponse("analyze_message", `{
			"task_creation_score": 1,
			"task_candidate_score": 1,
			"database_query_score": 1,
			"primary_intent": "other",
			"reasoning": "nothing"
		}`),
	}}
	client := testClient(api)

	client.ClassifyIntent(context.Background(), "hello", nil)

	require.Len(t, api.requests, 1)
	choice, ok := api.requests[0].ToolChoice.(openai.ToolChoice)
	require.True(t, ok)
	assert.Equal(t, "analyze_message", choice.Function.Name)
}
