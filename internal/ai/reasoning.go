package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const maxReasoningAttempts = 3

// Verification is the model's self-check of one reasoning attempt.
type Verification struct {
	IsValid             bool     `json:"is_valid"`
	Errors              []string `json:"errors"`
	NeedsAnotherAttempt bool     `json:"needs_another_attempt"`
	FinalAnswer         string   `json:"final_answer"`
}

// Attempt records one reasoning pass and its verification. Err is set
// when the pass itself failed before verification.
type Attempt struct {
	Number       int
	Reasoning    string
	Verification *Verification
	Err          string
}

// ReasoningResult is the outcome of the iterate-and-verify loop.
// BestEffort marks an answer extracted from an attempt that never
// passed verification.
type ReasoningResult struct {
	Question    string
	Attempts    []Attempt
	FinalAnswer string
	Success     bool
	BestEffort  bool
}

const reasoningSystemPrompt = `You reason step by step about a question concerning a team's work chats.
Lay out your reasoning explicitly, then state a conclusion. Answer in the language of the question.`

const verifySystemPrompt = `You verify a piece of reasoning for logical errors, unsupported claims and gaps.
Respond with a JSON object:
{
  "is_valid": true or false,
  "errors": ["each concrete problem found"],
  "needs_another_attempt": true or false,
  "final_answer": "the answer to the original question, cleaned of the reasoning scaffolding"
}
Set needs_another_attempt true only when the problems are fixable by rethinking; contradictions in the premises are not.`

const extractSystemPrompt = `Extract the most defensible answer from the reasoning below, even though it did not pass verification.
State the answer plainly and note the uncertainty in one sentence. Answer in the language of the question.`

// Reason runs up to three attempt/verify rounds. Each retry feeds the
// verifier's objections back into the prompt. If no attempt passes, the
// last reasoning is distilled into a best-effort answer rather than
// returning nothing.
func (c *Client) Reason(ctx context.Context, question string) *ReasoningResult {
	result := &ReasoningResult{Question: question}
	var priorIssues []string
	var lastReasoning string

	for attempt := 1; attempt <= maxReasoningAttempts; attempt++ {
		record := Attempt{Number: attempt}

		system := reasoningSystemPrompt
		if len(priorIssues) > 0 {
			system += "\n\nA previous attempt had these problems; avoid them:\n- " +
				strings.Join(priorIssues, "\n- ")
		}

		reasoning, err := c.complete(ctx, system, "Question: "+question)
		if err != nil {
			c.logger.Warn("Reasoning attempt failed",
				zap.Int("attempt", attempt), zap.Error(err))
			record.Err = err.Error()
			result.Attempts = append(result.Attempts, record)
			continue
		}
		record.Reasoning = reasoning
		lastReasoning = reasoning

		var verification Verification
		verifyInput := fmt.Sprintf("Question: %s\n\nReasoning to verify:\n%s", question, reasoning)
		if err := c.completeJSON(ctx, verifySystemPrompt, verifyInput, &verification); err != nil {
			c.logger.Warn("Verification failed",
				zap.Int("attempt", attempt), zap.Error(err))
			record.Err = err.Error()
			result.Attempts = append(result.Attempts, record)
			continue
		}
		record.Verification = &verification
		result.Attempts = append(result.Attempts, record)

		if verification.IsValid && !verification.NeedsAnotherAttempt {
			result.FinalAnswer = verification.FinalAnswer
			if result.FinalAnswer == "" {
				result.FinalAnswer = reasoning
			}
			result.Success = true
			return result
		}
		priorIssues = append(priorIssues, verification.Errors...)
	}

	// every attempt rejected; salvage what we can
	if lastReasoning != "" {
		extractInput := fmt.Sprintf("Question: %s\n\nReasoning:\n%s", question, lastReasoning)
		if answer, err := c.complete(ctx, extractSystemPrompt, extractInput); err == nil {
			result.FinalAnswer = answer
			result.BestEffort = true
			return result
		}
	}
	result.FinalAnswer = "I could not reach a reliable answer to this question."
	result.BestEffort = true
	return result
}
