// Package query implements the guarded SQL pipeline: a static schema
// catalog for prompts, deterministic repair of known-bad model output,
// read-only execution, and name enrichment of result rows.
package query

// SchemaCatalog describes the store exactly as the model must see it.
// Every prompt that asks the model to produce SQL embeds this text
// verbatim; the notes at the bottom are the primary defense against the
// model inventing a chat_history table.
const SchemaCatalog = `Exact database schema (use only these tables and columns):

1. users
   - id (INTEGER PRIMARY KEY)
   - user_id (INTEGER) - Telegram user ID
   - username (TEXT) - Telegram username
   - first_name (TEXT) - User's first name
   - last_name (TEXT) - User's last name
   - is_bot (BOOLEAN) - Whether user is a bot
   - created_at (TIMESTAMP) - When user was added to DB

2. messages
   - id (INTEGER PRIMARY KEY)
   - message_id (INTEGER) - Telegram message ID
   - chat_id (INTEGER) - ID of the chat where message was sent
   - sender_id (INTEGER) - User ID who sent the message
   - text (TEXT) - Message content
   - attachments (TEXT) - JSON string with attachments
   - timestamp (TIMESTAMP) - When message was sent
   - is_important (BOOLEAN) - Important flag
   - is_processed (BOOLEAN) - Processed flag
   - category (TEXT) - Message category
   - is_bot (BOOLEAN) - Whether sent by bot

3. chats
   - id (INTEGER PRIMARY KEY)
   - chat_id (INTEGER) - Telegram chat ID
   - chat_name (TEXT) - Chat name
   - is_active (BOOLEAN) - Active status
   - last_summary_time (TIMESTAMP) - Last summary generation time
   - linear_team_id (TEXT) - Associated Linear team ID

4. tasks
   - id (INTEGER PRIMARY KEY)
   - linear_id (TEXT) - Linear task ID
   - title (TEXT) - Task title
   - description (TEXT) - Task description
   - status (TEXT) - Task status
   - created_at (TIMESTAMP) - Creation time
   - due_date (TIMESTAMP) - Due date
   - assignee_id (INTEGER) - Assigned user ID
   - message_id (INTEGER) - Origin message ID
   - chat_id (INTEGER) - Origin chat ID

5. unanswered_questions
   - id (INTEGER PRIMARY KEY)
   - message_id (INTEGER) - Question message ID
   - chat_id (INTEGER) - Chat where question was asked
   - target_user_id (INTEGER) - User who should answer
   - sender_id (INTEGER) - User who asked
   - question (TEXT) - Question text
   - asked_at (TIMESTAMP) - When asked
   - is_answered (BOOLEAN) - Answered status
   - answered_at (TIMESTAMP) - When answered
   - reminder_count (INTEGER) - Reminder count
   - last_reminder_at (TIMESTAMP) - Last reminder time
   - is_bot (BOOLEAN) - Whether from bot

6. team_productivity
   - id (INTEGER PRIMARY KEY)
   - user_id (INTEGER) - User ID
   - date (TIMESTAMP) - Record date
   - message_count (INTEGER) - Message count
   - tasks_created (INTEGER) - Tasks created
   - tasks_completed (INTEGER) - Tasks completed
   - avg_response_time (INTEGER) - Average response time

Notes:
- The table 'chat_history' does NOT exist
- All chat queries must go through the messages table, filtered by chat_id
- Join users via messages.sender_id = users.user_id
- Prefer team_productivity for communication statistics
- Filter by date using messages.timestamp or team_productivity.date`
