package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExecutorWithoutDatabase(t *testing.T) {
	e := NewExecutor(nil, 0, zap.NewNop())

	result := e.Run(context.Background(), "SELECT 1")

	msg, isErr := result.ErrorMessage()
	require.True(t, isErr)
	assert.Equal(t, "database is not available", msg)
}

func TestErrorResultShape(t *testing.T) {
	result := ErrorResult("boom")

	assert.Equal(t, []string{"error"}, result.Columns)
	require.Len(t, result.Rows, 1)

	msg, isErr := result.ErrorMessage()
	assert.True(t, isErr)
	assert.Equal(t, "boom", msg)
	assert.False(t, result.Empty())
}

func TestErrorMessageOnRegularResults(t *testing.T) {
	_, isErr := (&Result{Columns: []string{"a"}, Rows: []Row{{"a": 1}}}).ErrorMessage()
	assert.False(t, isErr)

	// multiple rows can never be the sentinel
	multi := &Result{Columns: []string{"error"}, Rows: []Row{{"error": "x"}, {"error": "y"}}}
	_, isErr = multi.ErrorMessage()
	assert.False(t, isErr)

	var nilResult *Result
	_, isErr = nilResult.ErrorMessage()
	assert.False(t, isErr)
	assert.True(t, nilResult.Empty())
}

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-30T12:00:00Z", normalizeValue(ts))
	assert.Equal(t, "hello", normalizeValue([]byte("hello")))
	assert.Equal(t, int64(7), normalizeValue(int64(7)))
	assert.Nil(t, normalizeValue(nil))
}
