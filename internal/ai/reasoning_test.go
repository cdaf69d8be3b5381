package ai

import (
	"context"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonAcceptsValidFirstAttempt(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("Step by step reasoning... conclusion: five."),
		textResponse(`{"is_valid": true, "errors": [], "needs_another_attempt": false, "final_answer": "Five."}`),
	}}
	client := testClient(api)

	result := client.Reason(context.Background(), "how many?")

	assert.True(t, result.Success)
	assert.False(t, result.BestEffort)
	assert.Equal(t, "Five.", result.FinalAnswer)
	require.Len(t, result.Attempts, 1)
	assert.True(t, result.Attempts[0].Verification.IsValid)
}

func TestReasonRetriesWithPriorIssues(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("first reasoning"),
		textResponse(`{"is_valid": false, "errors": ["confused Monday with Tuesday"], "needs_another_attempt": true, "final_answer": ""}`),
		textResponse("second reasoning"),
		textResponse(`{"is_valid": true, "errors": [], "needs_another_attempt": false, "final_answer": "Tuesday."}`),
	}}
	client := testClient(api)

	result := client.Reason(context.Background(), "which day?")

	assert.True(t, result.Success)
	assert.Equal(t, "Tuesday.", result.FinalAnswer)
	require.Len(t, result.Attempts, 2)

	// the second reasoning prompt must carry the first verifier's objection
	require.Len(t, api.requests, 4)
	assert.Contains(t, api.requests[2].Messages[0].Content, "confused Monday with Tuesday")
}

func TestReasonFallsBackToBestEffortAfterThreeAttempts(t *testing.T) {
	rejected := `{"is_valid": false, "errors": ["unsupported claim"], "needs_another_attempt": true, "final_answer": ""}`
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("attempt one"),
		textResponse(rejected),
		textResponse("attempt two"),
		textResponse(rejected),
		textResponse("attempt three"),
		textResponse(rejected),
		textResponse("Probably around forty, though the data is thin."),
	}}
	client := testClient(api)

	result := client.Reason(context.Background(), "how many messages?")

	assert.False(t, result.Success)
	assert.True(t, result.BestEffort)
	assert.Equal(t, "Probably around forty, though the data is thin.", result.FinalAnswer)
	assert.Len(t, result.Attempts, 3)
}

func TestReasonSurvivesAttemptErrors(t *testing.T) {
	api := &scriptedCompleter{
		errs: []error{fmt.Errorf("timeout"), nil, nil},
		responses: []openai.ChatCompletionResponse{
			{}, // consumed by the errored call
			textResponse("recovered reasoning"),
			textResponse(`{"is_valid": true, "errors": [], "needs_another_attempt": false, "final_answer": "Done."}`),
		},
	}
	client := testClient(api)

	result := client.Reason(context.Background(), "q")

	assert.True(t, result.Success)
	assert.Equal(t, "Done.", result.FinalAnswer)
	require.Len(t, result.Attempts, 2)
	assert.NotEmpty(t, result.Attempts[0].Err)
}

func TestReasonUsesReasoningWhenVerifierOmitsAnswer(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("the full reasoning text"),
		textResponse(`{"is_valid": true, "errors": [], "needs_another_attempt": false, "final_answer": ""}`),
	}}
	client := testClient(api)

	result := client.Reason(context.Background(), "q")

	assert.True(t, result.Success)
	assert.Equal(t, "the full reasoning text", result.FinalAnswer)
}
