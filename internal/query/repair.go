package query

import (
	"fmt"
	"regexp"
	"strings"
)

// The model occasionally invents a chat_history table despite the schema
// catalog saying otherwise. Rewriting it to messages deterministically is
// cheaper than a re-prompt round trip.
var chatHistoryPattern = regexp.MustCompile(`(?i)chat_history`)

// Repair rewrites known-invalid table references in model-generated SQL.
// Idempotent: repairing already-repaired text is a no-op.
func Repair(sqlText string) string {
	return chatHistoryPattern.ReplaceAllString(sqlText, "messages")
}

// Guard rejects anything that is not a single read statement. Model
// output is untrusted input; prompt instructions alone are not a
// write barrier.
func Guard(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return fmt.Errorf("empty query")
	}
	// Strip one trailing terminator, then refuse stacked statements.
	trimmed = strings.TrimSuffix(trimmed, ";")
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("multiple statements are not allowed")
	}
	head := strings.ToUpper(trimmed)
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	return nil
}
