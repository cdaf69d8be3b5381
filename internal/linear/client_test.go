package linear

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-key", map[string]string{"100": "team-a", "default": "team-z"}, 5*time.Second, zap.NewNop())
	client.endpoint = server.URL
	return client
}

func TestTeams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "teams")

		w.Write([]byte(`{"data": {"teams": {"nodes": [{"id": "t1", "name": "Backend", "key": "BCK"}]}}}`))
	})

	teams, err := client.Teams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Backend", teams[0].Name)
}

func TestCreateIssue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		input := req.Variables["input"].(map[string]any)
		assert.Equal(t, "Fix login", input["title"])
		assert.Equal(t, "team-a", input["teamId"])
		_, hasAssignee := input["assigneeId"]
		assert.False(t, hasAssignee)

		w.Write([]byte(`{"data": {"issueCreate": {"success": true, "issue": {"id": "i1", "identifier": "BCK-7", "title": "Fix login", "url": "https://linear.app/i/BCK-7"}}}}`))
	})

	issue, err := client.CreateIssue(context.Background(), "Fix login", "users cannot log in", "team-a", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "BCK-7", issue.Identifier)
}

func TestIssueStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "state")
		assert.Equal(t, "i1", req.Variables["id"])

		w.Write([]byte(`{"data": {"issue": {"state": {"name": "Done", "type": "completed"}}}}`))
	})

	status, err := client.IssueStatus(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status)
}

func TestIssueStatusMissingState(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"issue": null}}`))
	})

	_, err := client.IssueStatus(context.Background(), "gone")
	assert.Error(t, err)
}

func TestAuthErrorClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Teams(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestGraphQLErrorClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "title is required", "extensions": {"code": "INVALID_INPUT"}}]}`))
	})

	_, err := client.CreateIssue(context.Background(), "", "", "team-a", "", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTeamForChat(t *testing.T) {
	client := NewClient("k", map[string]string{"100": "team-a", "default": "team-z"}, 0, zap.NewNop())

	teamID, err := client.TeamForChat(100)
	require.NoError(t, err)
	assert.Equal(t, "team-a", teamID)

	teamID, err = client.TeamForChat(999)
	require.NoError(t, err)
	assert.Equal(t, "team-z", teamID)

	bare := NewClient("k", nil, 0, zap.NewNop())
	_, err = bare.TeamForChat(999)
	assert.Error(t, err)
}
