package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/team-assistant/internal/models"
)

// formatMessages renders messages as "[timestamp] sender: text" lines,
// newest first as supplied, capped at limit.
func formatMessages(messages []models.Message, limit int) string {
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		sender := msg.SenderName
		if sender == "" {
			sender = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s",
			msg.Timestamp.Format("2006-01-02 15:04"), sender, msg.Text))
	}
	return strings.Join(lines, "\n")
}

// formatChats renders the chat inventory shown to the router and the
// synthesizer.
func formatChats(chats []models.ChatActivity, limit int) string {
	if limit > 0 && len(chats) > limit {
		chats = chats[:limit]
	}
	lines := make([]string, 0, len(chats))
	for _, chat := range chats {
		name := chat.ChatName
		if name == "" {
			name = fmt.Sprintf("Chat %d", chat.ChatID)
		}
		activity := "unknown"
		if chat.LastMessageTime != nil {
			activity = humanizeSince(time.Since(*chat.LastMessageTime))
		}
		lines = append(lines, fmt.Sprintf("- %s (ID: %d, messages: %d, last activity: %s)",
			name, chat.ChatID, chat.MessageCount, activity))
	}
	return strings.Join(lines, "\n")
}

func humanizeSince(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours())/24)
	case d >= time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		minutes := int(d.Minutes())
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	}
}
