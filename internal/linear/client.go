// Package linear is a minimal client for the Linear GraphQL API,
// covering the team and issue operations the assistant needs.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const apiEndpoint = "https://api.linear.app/graphql"

var (
	// ErrAuth marks a rejected or missing API key.
	ErrAuth = errors.New("linear: authentication failed")
	// ErrValidation marks a request Linear rejected as malformed.
	ErrValidation = errors.New("linear: validation error")
)

type Client struct {
	apiKey      string
	endpoint    string
	httpClient  *http.Client
	teamMapping map[string]string
	logger      *zap.Logger
}

// NewClient builds a Linear client. teamMapping routes chat ids (as
// decimal strings) to Linear team ids; the "default" key catches
// unmapped chats.
func NewClient(apiKey string, teamMapping map[string]string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:      apiKey,
		endpoint:    apiEndpoint,
		httpClient:  &http.Client{Timeout: timeout},
		teamMapping: teamMapping,
		logger:      logger,
	}
}

// Team is a Linear team.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Issue is the slice of a Linear issue the bot reports back to chat.
type Issue struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("linear: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("linear: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("linear: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("linear: read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrAuth, resp.StatusCode)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrValidation, truncate(string(payload), 200))
	default:
		return fmt.Errorf("linear: unexpected status %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}

	var decoded graphQLResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("linear: decode response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		first := decoded.Errors[0]
		c.logger.Error("Linear API error",
			zap.String("code", first.Extensions.Code),
			zap.String("message", first.Message))
		switch first.Extensions.Code {
		case "AUTHENTICATION_ERROR", "FORBIDDEN":
			return fmt.Errorf("%w: %s", ErrAuth, first.Message)
		case "INVALID_INPUT", "USER_ERROR", "GRAPHQL_VALIDATION_FAILED":
			return fmt.Errorf("%w: %s", ErrValidation, first.Message)
		default:
			return fmt.Errorf("linear: %s", first.Message)
		}
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			return fmt.Errorf("linear: decode data: %w", err)
		}
	}
	return nil
}

// Teams lists the teams visible to the API key.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	const query = `query { teams { nodes { id name key } } }`
	var data struct {
		Teams struct {
			Nodes []Team `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.do(ctx, query, nil, &data); err != nil {
		return nil, err
	}
	return data.Teams.Nodes, nil
}

// TeamForChat resolves the Linear team for a chat via the configured
// mapping, falling back to the "default" entry.
func (c *Client) TeamForChat(chatID int64) (string, error) {
	if teamID, ok := c.teamMapping[strconv.FormatInt(chatID, 10)]; ok {
		return teamID, nil
	}
	if teamID, ok := c.teamMapping["default"]; ok {
		return teamID, nil
	}
	return "", fmt.Errorf("linear: no team mapped for chat %d and no default", chatID)
}

// CreateIssue creates an issue. assigneeID and dueDate are optional.
func (c *Client) CreateIssue(ctx context.Context, title, description, teamID, assigneeID string, dueDate *time.Time) (*Issue, error) {
	const mutation = `mutation IssueCreate($input: IssueCreateInput!) {
		issueCreate(input: $input) {
			success
			issue { id identifier title url }
		}
	}`
	input := map[string]any{
		"title":       title,
		"description": description,
		"teamId":      teamID,
	}
	if assigneeID != "" {
		input["assigneeId"] = assigneeID
	}
	if dueDate != nil {
		input["dueDate"] = dueDate.Format("2006-01-02")
	}

	var data struct {
		IssueCreate struct {
			Success bool  `json:"success"`
			Issue   Issue `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := c.do(ctx, mutation, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if !data.IssueCreate.Success {
		return nil, fmt.Errorf("linear: issue creation was not accepted")
	}
	c.logger.Info("Linear issue created",
		zap.String("identifier", data.IssueCreate.Issue.Identifier))
	return &data.IssueCreate.Issue, nil
}

// IssueStatus reports the workflow state type of an issue: one of
// triage, backlog, unstarted, started, completed, canceled.
func (c *Client) IssueStatus(ctx context.Context, issueID string) (string, error) {
	const query = `query Issue($id: String!) {
		issue(id: $id) { state { name type } }
	}`
	var data struct {
		Issue struct {
			State struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"state"`
		} `json:"issue"`
	}
	if err := c.do(ctx, query, map[string]any{"id": issueID}, &data); err != nil {
		return "", err
	}
	if data.Issue.State.Type == "" {
		return "", fmt.Errorf("linear: issue %s has no workflow state", issueID)
	}
	return data.Issue.State.Type, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
