package local

import (
	"context"

	"github.com/matheus3301/dchat/internal/outbox"
)

func queueOutbox(ctx context.Context, q querier, account, msgID uint32, recipient string) error {
	now := nowMillis()
	_, err := q.ExecContext(ctx, `
		INSERT INTO outbox (account_id, msg_id, recipient, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		account, msgID, recipient, outboxQueued, now, now)
	return err
}

func pendingOutbox(ctx context.Context, q querier) ([]outbox.Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT o.id, o.account_id, m.chat_id, o.msg_id, o.recipient, m.rfc724_mid, o.attempts
		FROM outbox o JOIN messages m ON m.id = o.msg_id
		WHERE o.status = ? ORDER BY o.created_at ASC, o.id ASC`, outboxQueued)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []outbox.Entry
	for rows.Next() {
		var e outbox.Entry
		if err := rows.Scan(&e.ID, &e.Account, &e.ChatID, &e.MsgID, &e.Recipient, &e.MessageID, &e.Attempts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func setOutboxStatus(ctx context.Context, q querier, id int64, status, errMsg string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE outbox SET status = ?, error_message = ?, attempts = attempts + CASE WHEN ? = 'sending' THEN 1 ELSE 0 END,
			updated_at = ?
		WHERE id = ?`, status, errMsg, status, nowMillis(), id)
	return err
}

// requeueStale puts entries left in sending by a crash back into the queue.
func requeueStale(ctx context.Context, q querier) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE outbox SET status = ?, updated_at = ? WHERE status = ?`,
		outboxQueued, nowMillis(), outboxSending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
