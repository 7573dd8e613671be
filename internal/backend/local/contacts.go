package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ensureContact returns the contact of account with addr, creating it when
// missing. An existing empty name is filled in.
func ensureContact(ctx context.Context, q querier, account uint32, addr, name string) (contactRow, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO contacts (account_id, addr, name) VALUES (?, ?, ?)
		ON CONFLICT(account_id, addr) DO UPDATE SET
			name = CASE WHEN contacts.name = '' THEN excluded.name ELSE contacts.name END`,
		account, addr, name)
	if err != nil {
		return contactRow{}, err
	}
	return contactByAddr(ctx, q, account, addr)
}

func contactByAddr(ctx context.Context, q querier, account uint32, addr string) (contactRow, error) {
	var c contactRow
	err := q.QueryRowContext(ctx, `
		SELECT id, account_id, addr, name, blocked FROM contacts
		WHERE account_id = ? AND addr = ?`, account, addr).
		Scan(&c.ID, &c.AccountID, &c.Addr, &c.Name, &c.Blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("contact %s: %w", addr, ErrNotFound)
	}
	return c, err
}

func getContact(ctx context.Context, q querier, id uint32) (contactRow, error) {
	var c contactRow
	err := q.QueryRowContext(ctx, `
		SELECT id, account_id, addr, name, blocked FROM contacts WHERE id = ?`, id).
		Scan(&c.ID, &c.AccountID, &c.Addr, &c.Name, &c.Blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("contact %d: %w", id, ErrNotFound)
	}
	return c, err
}

func listContacts(ctx context.Context, q querier, account uint32) ([]contactRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, account_id, addr, name, blocked FROM contacts
		WHERE account_id = ? ORDER BY id`, account)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []contactRow
	for rows.Next() {
		var c contactRow
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Addr, &c.Name, &c.Blocked); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func setContactBlocked(ctx context.Context, q querier, id uint32, blocked bool) error {
	_, err := q.ExecContext(ctx, `UPDATE contacts SET blocked = ? WHERE id = ?`, blocked, id)
	return err
}
