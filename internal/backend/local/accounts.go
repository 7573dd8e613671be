package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

func insertAccount(ctx context.Context, q querier) (uint32, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO accounts (created_at) VALUES (?)`, nowMillis())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint32(id), err
}

func accountIDs(ctx context.Context, q querier) ([]uint32, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []uint32
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func getAccount(ctx context.Context, q querier, id uint32) (accountRow, error) {
	var a accountRow
	err := q.QueryRowContext(ctx, `
		SELECT id, addr, display_name, profile_image, configured, selected_chat_id, created_at
		FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Addr, &a.DisplayName, &a.ProfileImage, &a.Configured, &a.SelectedChatID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return a, err
}

// configuredAccountByAddr finds a configured account other than exclude
// using addr.
func configuredAccountByAddr(ctx context.Context, q querier, addr string, exclude uint32) (uint32, bool, error) {
	var id uint32
	err := q.QueryRowContext(ctx, `
		SELECT id FROM accounts
		WHERE configured = 1 AND addr = ? COLLATE NOCASE AND id != ?
		ORDER BY id LIMIT 1`, addr, exclude).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func markConfigured(ctx context.Context, q querier, id uint32, addr, displayName, profileImage string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE accounts SET addr = ?, display_name = ?, profile_image = ?, configured = 1
		WHERE id = ?`, addr, displayName, profileImage, id)
	return err
}

func setSelectedChat(ctx context.Context, q querier, account, chat uint32) error {
	_, err := q.ExecContext(ctx, `UPDATE accounts SET selected_chat_id = ? WHERE id = ?`, chat, account)
	return err
}

func deleteAccount(ctx context.Context, q querier, id uint32) error {
	res, err := q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return nil
}

func getSetting(ctx context.Context, q querier, key string) (string, bool, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func setSetting(ctx context.Context, q querier, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func deleteSetting(ctx context.Context, q querier, key string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

func selectedAccount(ctx context.Context, q querier) (uint32, bool, error) {
	v, ok, err := getSetting(ctx, q, settingSelectedAccount)
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("setting %s: %w", settingSelectedAccount, err)
	}
	return uint32(id), true, nil
}

func setSelectedAccount(ctx context.Context, q querier, id uint32) error {
	return setSetting(ctx, q, settingSelectedAccount, strconv.FormatUint(uint64(id), 10))
}
