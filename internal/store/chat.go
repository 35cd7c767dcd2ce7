package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// StoreChat inserts or replaces a chat record keyed by id, so retries are safe.
// A missing id is generated. An id owned by another namespace fails with
// ErrIDConflict.
func (s *SQLiteStore) StoreChat(ctx context.Context, c model.ChatRecord) (rec *model.ChatRecord, err error) {
	defer func(start time.Time) { s.observe(ctx, "store_chat", start, err) }(time.Now())

	if err := validateChat(&c); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = s.now()
	}
	c.Timestamp = c.Timestamp.UTC()

	var metaJSON *string
	if len(c.Metadata) > 0 {
		b, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, invalid("metadata", err.Error())
		}
		v := string(b)
		metaJSON = &v
	}

	guards := ownershipGuards("chat_id", c.ID, c.Namespace, "chat_history")
	res, err := s.ExecuteAtomic(ctx, append(guards, Op{
		Name: "insert chat_history",
		Query: `INSERT OR REPLACE INTO chat_history
			(chat_id, user_input, ai_output, model, timestamp, session_id, namespace, tokens_used, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		Args: []any{
			c.ID, c.UserInput, c.AIOutput, c.Model, formatTime(c.Timestamp),
			c.SessionID, c.Namespace, c.TokensUsed, metaJSON,
		},
		ExpectRows: 1,
	})...)
	if err != nil {
		return nil, guardErr(res, len(guards), "chat_id", err)
	}
	return &c, nil
}

// GetChatHistory returns up to limit chats, most recent first.
func (s *SQLiteStore) GetChatHistory(ctx context.Context, namespace, sessionID string, limit int) ([]model.ChatRecord, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	f := &filter{}
	f.add("namespace = ?", namespace)
	if sessionID != "" {
		f.add("session_id = ?", sessionID)
	}
	query := `SELECT chat_id, user_input, ai_output, model, timestamp, session_id, namespace, tokens_used, metadata
		FROM chat_history` + f.where() + ` ORDER BY timestamp DESC, chat_id DESC LIMIT ?`

	chats, err := s.queryChats(ctx, query, append(f.args, limit)...)
	if err != nil {
		return nil, storageErr("chat history", err)
	}
	return chats, nil
}

func (s *SQLiteStore) queryChats(ctx context.Context, query string, args ...any) ([]model.ChatRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []model.ChatRecord
	for rows.Next() {
		var c model.ChatRecord
		var ts string
		var meta sql.NullString
		if err := rows.Scan(&c.ID, &c.UserInput, &c.AIOutput, &c.Model, &ts,
			&c.SessionID, &c.Namespace, &c.TokensUsed, &meta); err != nil {
			return nil, err
		}
		c.Timestamp = parseTime(ts)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &c.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", c.ID, err)
			}
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}
