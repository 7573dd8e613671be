package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const chatColumns = `
	c.id, c.account_id, c.kind, COALESCE(c.contact_id, 0), COALESCE(ct.addr, ''), COALESCE(ct.name, ''),
	c.name, c.pinned, c.archived, c.contact_request, c.blocked, c.created_at, c.last_activity`

func scanChat(row interface{ Scan(...any) error }) (chatRow, error) {
	var c chatRow
	err := row.Scan(&c.ID, &c.AccountID, &c.Kind, &c.ContactID, &c.ContactAddr, &c.ContactName,
		&c.Name, &c.Pinned, &c.Archived, &c.ContactRequest, &c.Blocked, &c.CreatedAt, &c.LastActivity)
	return c, err
}

// getChat returns a chat of account. Chats of other accounts are not found.
func getChat(ctx context.Context, q querier, account, id uint32) (chatRow, error) {
	c, err := scanChat(q.QueryRowContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats c LEFT JOIN contacts ct ON ct.id = c.contact_id
		WHERE c.account_id = ? AND c.id = ?`, account, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("chat %d of account %d: %w", id, account, ErrNotFound)
	}
	return c, err
}

// listChats returns the visible chats of account: pinned first, then by
// last activity, archived last.
func listChats(ctx context.Context, q querier, account uint32) ([]chatRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats c LEFT JOIN contacts ct ON ct.id = c.contact_id
		WHERE c.account_id = ? AND c.blocked = 0
		ORDER BY c.archived ASC, c.pinned DESC, c.last_activity DESC, c.id DESC`, account)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []chatRow
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// allChats includes blocked chats, for export.
func allChats(ctx context.Context, q querier, account uint32) ([]chatRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats c LEFT JOIN contacts ct ON ct.id = c.contact_id
		WHERE c.account_id = ? ORDER BY c.id`, account)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []chatRow
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func chatByContact(ctx context.Context, q querier, account, contact uint32) (uint32, bool, error) {
	var id uint32
	err := q.QueryRowContext(ctx, `
		SELECT id FROM chats WHERE account_id = ? AND contact_id = ?`, account, contact).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func specialChat(ctx context.Context, q querier, account uint32, kind string) (uint32, bool, error) {
	var id uint32
	err := q.QueryRowContext(ctx, `
		SELECT id FROM chats WHERE account_id = ? AND kind = ?`, account, kind).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

type newChat struct {
	Kind           string
	ContactID      uint32
	Name           string
	Pinned         bool
	Archived       bool
	ContactRequest bool
	Blocked        bool
	CreatedAt      int64
}

func insertChat(ctx context.Context, q querier, account uint32, c newChat) (uint32, error) {
	var contact any
	if c.ContactID != 0 {
		contact = c.ContactID
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = nowMillis()
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO chats (account_id, kind, contact_id, name, pinned, archived, contact_request, blocked, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account, c.Kind, contact, c.Name, c.Pinned, c.Archived, c.ContactRequest, c.Blocked, c.CreatedAt, c.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint32(id), err
}

// chatFlags lists the boolean chat columns that may be toggled.
var chatFlags = map[string]bool{
	"pinned":          true,
	"archived":        true,
	"contact_request": true,
	"blocked":         true,
}

func setChatFlag(ctx context.Context, q querier, account, chat uint32, column string, value bool) error {
	if !chatFlags[column] {
		return fmt.Errorf("unknown chat flag %q", column)
	}
	res, err := q.ExecContext(ctx, `UPDATE chats SET `+column+` = ? WHERE account_id = ? AND id = ?`, value, account, chat)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chat %d of account %d: %w", chat, account, ErrNotFound)
	}
	return nil
}

func touchChat(ctx context.Context, q querier, chat uint32, ts int64) error {
	_, err := q.ExecContext(ctx, `UPDATE chats SET last_activity = MAX(last_activity, ?) WHERE id = ?`, ts, chat)
	return err
}
