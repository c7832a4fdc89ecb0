package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrConversationNotFound = errors.New("conversation not found")

type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message sources.
const (
	SourceRule       = "rule"
	SourceLLM        = "llm"
	SourceGuardrails = "guardrails"
)

type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // "user" | "assistant"
	Text           string    `json:"text"`
	Source         string    `json:"source,omitempty"`
	Route          string    `json:"route,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// EnsureConversation returns the conversation, creating it when the id is
// empty. The title defaults to a prefix of the first message.
func (r *ChatRepo) EnsureConversation(ctx context.Context, id, userID, firstMessage string) (*Conversation, error) {
	if id != "" {
		const q = `
			SELECT id, user_id, title, created_at, updated_at
			FROM chat_conversations
			WHERE id = $1 AND user_id = $2
		`
		var c Conversation
		err := r.db.QueryRowContext(ctx, q, id, userID).
			Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get conversation: %w", err)
		}
		return &c, nil
	}

	title := firstMessage
	if len(title) > 80 {
		title = title[:80]
	}

	const q = `
		INSERT INTO chat_conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at, updated_at
	`
	var c Conversation
	err := r.db.QueryRowContext(ctx, q, userID, title).
		Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &c, nil
}

func (r *ChatRepo) AppendMessage(ctx context.Context, m *Message) error {
	const q = `
		INSERT INTO chat_messages (conversation_id, role, text, source, route)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''))
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, q, m.ConversationID, m.Role, m.Text, m.Source, m.Route).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE chat_conversations SET updated_at = NOW() WHERE id = $1`, m.ConversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (r *ChatRepo) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	const q = `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT 100
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]Conversation, 0, 16)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChatRepo) Messages(ctx context.Context, conversationID, userID string) ([]Message, error) {
	const q = `
		SELECT m.id, m.conversation_id, m.role, m.text, COALESCE(m.source,''), COALESCE(m.route,''), m.created_at
		FROM chat_messages m
		JOIN chat_conversations c ON c.id = m.conversation_id
		WHERE m.conversation_id = $1 AND c.user_id = $2
		ORDER BY m.id
	`
	rows, err := r.db.QueryContext(ctx, q, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0, 32)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Text, &m.Source, &m.Route, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteConversation removes a conversation and its messages (FK cascade).
func (r *ChatRepo) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_conversations WHERE id = $1 AND user_id = $2`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}
	return nil
}
