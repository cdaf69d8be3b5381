package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/team-assistant/internal/models"
)

const adminID = int64(500)

func questionMessage(senderID int64) *models.Message {
	return &models.Message{
		MessageID: 1,
		ChatID:    100,
		SenderID:  senderID,
		Text:      "when will the fix land?",
		Timestamp: time.Now().UTC(),
	}
}

func TestQuestionTargetTracksRealQuestions(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse(`{"category": "question", "is_important": true, "is_question": true, "has_task": false, "context_summary": "asks about the fix"}`),
	}}
	client := testClient(api)

	q := client.QuestionTarget(context.Background(), questionMessage(7), &models.User{UserID: 7}, adminID)

	require.NotNil(t, q)
	assert.Equal(t, adminID, q.TargetUserID)
	assert.Equal(t, int64(7), q.SenderID)
	assert.Equal(t, "when will the fix land?", q.Question)
}

func TestQuestionTargetNeverTracksBots(t *testing.T) {
	api := &scriptedCompleter{}
	client := testClient(api)

	q := client.QuestionTarget(context.Background(), questionMessage(7), &models.User{UserID: 7, IsBot: true}, adminID)

	assert.Nil(t, q)
	assert.Zero(t, api.calls)
}

func TestQuestionTargetSkipsAdminOwnMessages(t *testing.T) {
	api := &scriptedCompleter{}
	client := testClient(api)

	q := client.QuestionTarget(context.Background(), questionMessage(adminID), &models.User{UserID: adminID}, adminID)

	assert.Nil(t, q)
	assert.Zero(t, api.calls)
}

func TestQuestionTargetIgnoresNonQuestions(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse(`{"category": "status_update", "is_important": false, "is_question": false, "has_task": false, "context_summary": "an update"}`),
	}}
	client := testClient(api)

	q := client.QuestionTarget(context.Background(), questionMessage(7), &models.User{UserID: 7}, adminID)

	assert.Nil(t, q)
}

func TestAnalyzeMessageDegradesOnError(t *testing.T) {
	api := &scriptedCompleter{errs: []error{fmt.Errorf("boom")}}
	client := testClient(api)

	analysis := client.AnalyzeMessage(context.Background(), "anything")

	assert.Equal(t, "error", analysis.Category)
	assert.False(t, analysis.IsQuestion)
}

func TestExtractTaskRequiresTitle(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse(`{"is_task": true, "title": "", "description": "vague"}`),
	}}
	client := testClient(api)

	assert.Nil(t, client.ExtractTask(context.Background(), "do the thing"))
}

func TestExtractTaskDefaultsPriority(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse(`{"is_task": true, "title": "Fix deploy", "description": "the pipeline is red"}`),
	}}
	client := testClient(api)

	draft := client.ExtractTask(context.Background(), "the deploy pipeline is red, someone fix it")
	require.NotNil(t, draft)
	assert.Equal(t, "normal", draft.Priority)
}
