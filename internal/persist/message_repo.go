package persist

import (
	"context"
	"time"
)

type MessageRow struct {
	ID          int64
	SenderID    int32
	RecipientID int32
	Content     string
	SentAt      time.Time
}

type MessageRepo struct {
	db *DB
}

func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert persists a private message and returns its assigned id and
// server-assigned timestamp.
func (r *MessageRepo) Insert(ctx context.Context, senderID, recipientID int32, content string) (*MessageRow, error) {
	row := &MessageRow{SenderID: senderID, RecipientID: recipientID, Content: content}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO messages (sender_id, recipient_id, content, sent_at)
		 VALUES ($1, $2, $3, NOW()) RETURNING id, sent_at`,
		senderID, recipientID, content,
	).Scan(&row.ID, &row.SentAt)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// History returns every message exchanged between a and b, ordered by
// sent_at ascending.
func (r *MessageRepo) History(ctx context.Context, a, b int32) ([]MessageRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, sender_id, recipient_id, content, sent_at FROM messages
		 WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		 ORDER BY sent_at ASC`,
		a, b,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var row MessageRow
		if err := rows.Scan(&row.ID, &row.SenderID, &row.RecipientID, &row.Content, &row.SentAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
