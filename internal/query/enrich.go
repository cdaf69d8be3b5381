package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Enricher replaces nothing and removes nothing: it adds sibling name
// columns next to chat/user id columns so answers can speak in names
// instead of numeric ids. All lookups are batched, one query per entity
// kind regardless of row count.
type Enricher struct {
	runner Runner
	logger *zap.Logger
}

func NewEnricher(runner Runner, logger *zap.Logger) *Enricher {
	return &Enricher{runner: runner, logger: logger}
}

func (e *Enricher) Enrich(ctx context.Context, result *Result) *Result {
	if result.Empty() {
		return result
	}
	if _, isErr := result.ErrorMessage(); isErr {
		return result
	}

	chatIDs := make(map[int64]struct{})
	userIDs := make(map[int64]struct{})
	for _, row := range result.Rows {
		for _, col := range result.Columns {
			id, ok := numericID(row[col])
			if !ok {
				continue
			}
			switch {
			case strings.Contains(col, "chat_id"):
				chatIDs[id] = struct{}{}
			case strings.Contains(col, "user_id"), strings.Contains(col, "sender_id"):
				userIDs[id] = struct{}{}
			}
		}
	}

	chatNames := e.lookupChatNames(ctx, chatIDs)
	userNames := e.lookupUserNames(ctx, userIDs)
	if len(chatNames) == 0 && len(userNames) == 0 {
		return result
	}

	enriched := &Result{Columns: append([]string(nil), result.Columns...)}
	known := make(map[string]struct{}, len(result.Columns))
	for _, col := range result.Columns {
		known[col] = struct{}{}
	}

	for _, row := range result.Rows {
		out := make(Row, len(row))
		for k, v := range row {
			out[k] = v
		}
		for _, col := range result.Columns {
			id, ok := numericID(row[col])
			if !ok {
				continue
			}
			var nameCol, name string
			switch {
			case strings.Contains(col, "chat_id"):
				name, ok = chatNames[id]
				nameCol = chatNameColumn(col)
			case strings.Contains(col, "user_id"), strings.Contains(col, "sender_id"):
				name, ok = userNames[id]
				nameCol = userNameColumn(col)
			default:
				continue
			}
			if !ok {
				// orphaned foreign key, leave the cell alone
				continue
			}
			if _, taken := out[nameCol]; taken {
				continue
			}
			out[nameCol] = name
			if _, exists := known[nameCol]; !exists {
				known[nameCol] = struct{}{}
				enriched.Columns = append(enriched.Columns, nameCol)
			}
		}
		enriched.Rows = append(enriched.Rows, out)
	}
	return enriched
}

func (e *Enricher) lookupChatNames(ctx context.Context, ids map[int64]struct{}) map[int64]string {
	names := make(map[int64]string)
	if len(ids) == 0 {
		return names
	}
	result := e.runner.Run(ctx, fmt.Sprintf(
		"SELECT chat_id, chat_name FROM chats WHERE chat_id IN (%s)", idList(ids)))
	if msg, isErr := result.ErrorMessage(); isErr {
		e.logger.Error("Chat name lookup failed", zap.String("error", msg))
		return names
	}
	for _, row := range result.Rows {
		id, ok := numericID(row["chat_id"])
		if !ok {
			continue
		}
		if name, _ := row["chat_name"].(string); name != "" {
			names[id] = name
		}
	}
	return names
}

func (e *Enricher) lookupUserNames(ctx context.Context, ids map[int64]struct{}) map[int64]string {
	names := make(map[int64]string)
	if len(ids) == 0 {
		return names
	}
	result := e.runner.Run(ctx, fmt.Sprintf(
		"SELECT user_id, username, first_name, last_name FROM users WHERE user_id IN (%s)", idList(ids)))
	if msg, isErr := result.ErrorMessage(); isErr {
		e.logger.Error("User name lookup failed", zap.String("error", msg))
		return names
	}
	for _, row := range result.Rows {
		id, ok := numericID(row["user_id"])
		if !ok {
			continue
		}
		username, _ := row["username"].(string)
		firstName, _ := row["first_name"].(string)
		lastName, _ := row["last_name"].(string)
		names[id] = displayName(id, username, firstName, lastName)
	}
	return names
}

func displayName(id int64, username, firstName, lastName string) string {
	if username != "" {
		return username
	}
	full := strings.TrimSpace(firstName + " " + lastName)
	if full != "" {
		return full
	}
	return fmt.Sprintf("User %d", id)
}

func chatNameColumn(col string) string {
	if col == "chat_id" {
		return "chat_name"
	}
	return strings.Replace(col, "chat_id", "chat_name", 1)
}

func userNameColumn(col string) string {
	switch col {
	case "user_id":
		return "username"
	case "sender_id":
		return "sender_name"
	}
	replaced := strings.Replace(col, "user_id", "username", 1)
	return strings.Replace(replaced, "sender_id", "sender_name", 1)
}

func numericID(v any) (int64, bool) {
	switch value := v.(type) {
	case int64:
		return value, value != 0
	case int:
		return int64(value), value != 0
	case int32:
		return int64(value), value != 0
	case float64:
		return int64(value), value != 0
	case string:
		id, err := strconv.ParseInt(value, 10, 64)
		return id, err == nil && id != 0
	default:
		return 0, false
	}
}

func idList(ids map[int64]struct{}) string {
	sorted := make([]int64, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
