package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/matheus3301/dchat/internal/model"
)

const messageColumns = `
	id, account_id, chat_id, from_id, rfc724_mid, viewtype, state, text, quote_id,
	is_info, file, file_mime, file_width, file_height, timestamp`

func scanMessage(row interface{ Scan(...any) error }) (messageRow, error) {
	var m messageRow
	err := row.Scan(&m.ID, &m.AccountID, &m.ChatID, &m.FromID, &m.Rfc724Mid, &m.Viewtype, &m.State,
		&m.Text, &m.QuoteID, &m.IsInfo, &m.File, &m.FileMime, &m.FileWidth, &m.FileHeight, &m.Timestamp)
	return m, err
}

// insertMessage stores m and bumps the chat's last activity.
func insertMessage(ctx context.Context, q querier, m messageRow) (uint32, error) {
	if m.Timestamp == 0 {
		m.Timestamp = nowMillis()
	}
	if m.Viewtype == model.ViewtypeUnknown {
		m.Viewtype = model.ViewtypeText
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO messages (account_id, chat_id, from_id, rfc724_mid, viewtype, state, text, quote_id,
			is_info, file, file_mime, file_width, file_height, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AccountID, m.ChatID, m.FromID, m.Rfc724Mid, m.Viewtype, m.State, m.Text, m.QuoteID,
		m.IsInfo, m.File, m.FileMime, m.FileWidth, m.FileHeight, m.Timestamp)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := touchChat(ctx, q, m.ChatID, m.Timestamp); err != nil {
		return 0, err
	}
	return uint32(id), nil
}

// getMessage returns a message of account.
func getMessage(ctx context.Context, q querier, account, id uint32) (messageRow, error) {
	m, err := scanMessage(q.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE account_id = ? AND id = ?`, account, id))
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("message %d of account %d: %w", id, account, ErrNotFound)
	}
	return m, err
}

// maxVars keeps IN lists below SQLite's bound parameter limit.
const maxVars = 500

// messagesByID loads the given messages keyed by id.
func messagesByID(ctx context.Context, q querier, ids []uint32) (map[uint32]messageRow, error) {
	out := make(map[uint32]messageRow, len(ids))
	for chunk := range slices.Chunk(ids, maxVars) {
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		rows, err := q.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			m, err := scanMessage(rows)
			if err != nil {
				_ = rows.Close()
				return nil, err
			}
			out[m.ID] = m
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// chatMessages returns every message of a chat in display order.
func chatMessages(ctx context.Context, q querier, chat uint32) ([]messageRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = ? ORDER BY timestamp ASC, id ASC`, chat)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []messageRow
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

type messageStub struct {
	ID        uint32
	FromID    uint32
	IsInfo    bool
	Timestamp int64
}

// chatIndex returns the lightweight ordered index of a chat.
func chatIndex(ctx context.Context, q querier, chat uint32) ([]messageStub, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, from_id, is_info, timestamp FROM messages
		WHERE chat_id = ? ORDER BY timestamp ASC, id ASC`, chat)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stubs []messageStub
	for rows.Next() {
		var s messageStub
		if err := rows.Scan(&s.ID, &s.FromID, &s.IsInfo, &s.Timestamp); err != nil {
			return nil, err
		}
		stubs = append(stubs, s)
	}
	return stubs, rows.Err()
}

func lastMessage(ctx context.Context, q querier, chat uint32) (messageRow, bool, error) {
	m, err := scanMessage(q.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, chat))
	if errors.Is(err, sql.ErrNoRows) {
		return m, false, nil
	}
	if err != nil {
		return m, false, err
	}
	return m, true, nil
}

func freshCount(ctx context.Context, q querier, chat uint32) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE chat_id = ? AND state = ?`, chat, model.StateFresh).Scan(&n)
	return n, err
}

func setMessageState(ctx context.Context, q querier, id uint32, state string) error {
	_, err := q.ExecContext(ctx, `UPDATE messages SET state = ? WHERE id = ?`, state, id)
	return err
}

// markNoticed flips fresh incoming messages of a chat to seen and reports
// how many changed.
func markNoticed(ctx context.Context, q querier, chat uint32) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE messages SET state = ? WHERE chat_id = ? AND state = ?`,
		model.StateSeen, chat, model.StateFresh)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func setQuote(ctx context.Context, q querier, id, quote uint32) error {
	_, err := q.ExecContext(ctx, `UPDATE messages SET quote_id = ? WHERE id = ?`, quote, id)
	return err
}
