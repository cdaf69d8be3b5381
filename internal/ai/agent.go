package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/team-assistant/internal/query"
)

// PlanStep is one unit of the agent's plan: a description of what to
// find out and the SQL that finds it.
type PlanStep struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
	SQLQuery    string `json:"sql_query"`
	Reasoning   string `json:"reasoning"`
}

// Plan is the model's full investigation plan for a question.
type Plan struct {
	QuestionAnalysis string     `json:"question_analysis"`
	TablesNeeded     []string   `json:"tables_needed"`
	PlanSteps        []PlanStep `json:"plan_steps"`
}

// StepResult is the outcome of executing one plan step. Err holds a
// human-readable failure; Data is set on success.
type StepResult struct {
	Step        int
	Description string
	Reasoning   string
	Query       string
	Data        *query.Result
	Err         string
	Duration    time.Duration
}

// AgentReport is the complete run: the plan, every step outcome, and
// the synthesized answer.
type AgentReport struct {
	Plan    Plan
	Steps   []StepResult
	Answer  string
	Elapsed time.Duration
}

// Agent plans an investigation as a sequence of SQL steps, executes
// every step, and synthesizes one answer from the combined evidence.
// Step failures are recorded, never fatal: later steps still run and
// the synthesis sees what failed.
type Agent struct {
	client   *Client
	runner   query.Runner
	enricher *query.Enricher
	logger   *zap.Logger
}

func NewAgent(client *Client, runner query.Runner, enricher *query.Enricher, logger *zap.Logger) *Agent {
	return &Agent{client: client, runner: runner, enricher: enricher, logger: logger}
}

const planSystemPrompt = `You plan a multi-step investigation of a team's Telegram chat database to answer a question.

Available tables:
` + "`" + `
%s
` + "`" + `
Respond with a JSON object:
{
  "question_analysis": "what the question really asks",
  "tables_needed": ["table", ...],
  "plan_steps": [
    {"step": 1, "description": "what this step finds out", "sql_query": "SELECT ...", "reasoning": "why this step is needed"}
  ]
}

Rules:
- 1 to 5 steps, each a single PostgreSQL SELECT statement.
- Later steps may not reference results of earlier ones; each query must stand alone.
- Prefer few precise steps over many broad ones.`

const synthesisSystemPrompt = `You write the final answer to a question using the results of a multi-step data investigation.

Rules:
- Answer in the language of the question.
- Never mention SQL, queries, tables or step numbers. Speak in findings.
- Use names of people and chats, never numeric ids. Render dates in a human form.
- Give concrete numbers, and percentages where they make the comparison clearer.
- If some steps failed or returned nothing, answer from what succeeded and say which part of the question the data could not cover.
- If nothing usable came back, say the data is insufficient to answer.`

// Run executes the full agent loop. progress, when non-nil, receives
// short status lines suitable for live message edits.
func (a *Agent) Run(ctx context.Context, question string, progress func(string)) (*AgentReport, error) {
	started := time.Now()
	report := func(status string) {
		if progress != nil {
			progress(status)
		}
	}

	report("Planning the investigation...")
	plan, err := a.plan(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	a.logger.Info("Agent plan ready",
		zap.String("question", question),
		zap.Int("steps", len(plan.PlanSteps)))

	results := make([]StepResult, 0, len(plan.PlanSteps))
	for _, step := range plan.PlanSteps {
		report(fmt.Sprintf("Step %d/%d: %s", step.Step, len(plan.PlanSteps), step.Description))
		results = append(results, a.runStep(ctx, step))
	}

	report("Putting the answer together...")
	answer, err := a.synthesize(ctx, question, plan, results)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	return &AgentReport{
		Plan:    *plan,
		Steps:   results,
		Answer:  answer,
		Elapsed: time.Since(started),
	}, nil
}

func (a *Agent) plan(ctx context.Context, question string) (*Plan, error) {
	var plan Plan
	system := fmt.Sprintf(planSystemPrompt, query.SchemaCatalog)
	if err := a.client.completeJSON(ctx, system, "Question: "+question, &plan); err != nil {
		return nil, err
	}
	if len(plan.PlanSteps) == 0 {
		return nil, fmt.Errorf("plan contains no steps")
	}
	return &plan, nil
}

func (a *Agent) runStep(ctx context.Context, step PlanStep) StepResult {
	started := time.Now()
	result := StepResult{
		Step:        step.Step,
		Description: step.Description,
		Reasoning:   step.Reasoning,
		Query:       query.Repair(step.SQLQuery),
	}

	data := a.runner.Run(ctx, result.Query)
	if msg, isErr := data.ErrorMessage(); isErr {
		a.logger.Warn("Agent step failed",
			zap.Int("step", step.Step),
			zap.String("error", msg))
		result.Err = msg
	} else {
		result.Data = a.enricher.Enrich(ctx, data)
	}
	result.Duration = time.Since(started)
	return result
}

func (a *Agent) synthesize(ctx context.Context, question string, plan *Plan, steps []StepResult) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nQuestion analysis: %s\n\nInvestigation results:\n", question, plan.QuestionAnalysis)
	for _, step := range steps {
		fmt.Fprintf(&b, "\n--- Step %d: %s\n", step.Step, step.Description)
		if step.Err != "" {
			fmt.Fprintf(&b, "FAILED: %s\n", step.Err)
			continue
		}
		b.WriteString(stepDataJSON(step.Data))
		b.WriteString("\n")
	}
	return a.client.complete(ctx, synthesisSystemPrompt, b.String())
}

// stepDataJSON serializes step rows for the synthesis prompt. JSON keeps
// column/value pairing unambiguous for the model.
func stepDataJSON(result *query.Result) string {
	if result.Empty() {
		return "(no rows)"
	}
	rows := result.Rows
	if len(rows) > 50 {
		rows = rows[:50]
	}
	encoded, err := json.Marshal(rows)
	if err != nil {
		return "(unserializable result)"
	}
	return string(encoded)
}
