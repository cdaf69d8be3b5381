package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/team-assistant/internal/query"
)

// fakeRunner serves canned results keyed by a substring of the SQL.
type fakeRunner struct {
	results map[string]*query.Result
	queries []string
}

func (f *fakeRunner) Run(ctx context.Context, sqlText string) *query.Result {
	f.queries = append(f.queries, sqlText)
	for needle, result := range f.results {
		if strings.Contains(sqlText, needle) {
			return result
		}
	}
	return &query.Result{}
}

const agentPlanJSON = `{
	"question_analysis": "asks who was most active last week",
	"tables_needed": ["messages", "users"],
	"plan_steps": [
		{"step": 1, "description": "count messages per sender", "sql_query": "SELECT sender_id, COUNT(*) AS cnt FROM messages GROUP BY sender_id", "reasoning": "activity baseline"},
		{"step": 2, "description": "daily distribution", "sql_query": "SELECT date FROM broken_table", "reasoning": "activity over time"},
		{"step": 3, "description": "tasks completed", "sql_query": "SELECT user_id FROM team_productivity", "reasoning": "task side of activity"}
	]
}`

func newTestAgent(api ChatCompleter, runner query.Runner) *Agent {
	logger := zap.NewNop()
	return NewAgent(testClient(api), runner, query.NewEnricher(runner, logger), logger)
}

func TestAgentRunsAllStepsDespiteFailure(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse(agentPlanJSON),
		textResponse("Alice was the most active person last week."),
	}}
	runner := &fakeRunner{results: map[string]*query.Result{
		"GROUP BY sender_id": {
			Columns: []string{"sender_id", "cnt"},
			Rows:    []query.Row{{"sender_id": int64(1), "cnt": int64(40)}},
		},
		"broken_table":      query.ErrorResult(`relation "broken_table" does not exist`),
		"team_productivity": {Columns: []string{"user_id"}, Rows: []query.Row{{"user_id": int64(1)}}},
	}}
	agent := newTestAgent(api, runner)

	report, err := agent.Run(context.Background(), "who was most active last week?", nil)
	require.NoError(t, err)

	require.Len(t, report.Steps, 3)
	assert.Empty(t, report.Steps[0].Err)
	assert.NotEmpty(t, report.Steps[1].Err)
	assert.Nil(t, report.Steps[1].Data)
	assert.Empty(t, report.Steps[2].Err)
	assert.Equal(t, "Alice was the most active person last week.", report.Answer)

	// the failed step must not have stopped the later one
	assert.Len(t, runner.queries, 5) // 3 steps + 2 enrichment lookups
}

func TestAgentRepairsStepQueries(t *testing.T) {
	plan := `{
		"question_analysis": "x",
		"tables_needed": ["messages"],
		"plan_steps": [
			{"step": 1, "description": "d", "sql_query": "SELECT * FROM chat_history LIMIT 1", "reasoning": "r"}
		]
	}`
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse(plan),
		textResponse("done"),
	}}
	runner := &fakeRunner{}
	agent := newTestAgent(api, runner)

	report, err := agent.Run(context.Background(), "q", nil)
	require.NoError(t, err)

	require.Len(t, runner.queries, 1)
	assert.NotContains(t, runner.queries[0], "chat_history")
	assert.Contains(t, runner.queries[0], "FROM messages")
	assert.Equal(t, report.Steps[0].Query, runner.queries[0])
}

func TestAgentFailsOnEmptyPlan(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse(`{"question_analysis": "x", "tables_needed": [], "plan_steps": []}`),
	}}
	agent := newTestAgent(api, &fakeRunner{})

	_, err := agent.Run(context.Background(), "q", nil)
	assert.Error(t, err)
}

func TestAgentReportsProgress(t *testing.T) {
	api := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse(agentPlanJSON),
		textResponse("answer"),
	}}
	agent := newTestAgent(api, &fakeRunner{})

	var updates []string
	_, err := agent.Run(context.Background(), "q", func(status string) {
		updates = append(updates, status)
	})
	require.NoError(t, err)

	// planning, three steps, synthesis
	assert.Len(t, updates, 5)
	assert.Contains(t, updates[1], "Step 1/3")
}
