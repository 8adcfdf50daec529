package sqlstore

import (
	"context"
	"time"

	"github.com/robalobadob/idiomchain/internal/contrib"
)

// LoadPending returns all pending contributions, oldest first.
func (s *Store) LoadPending(ctx context.Context) ([]contrib.Pending, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, idiom, chat_id, submitter_id, submitter_name,
               origin_chat, origin_message, leading, trailing, created_at
        FROM pending_contributions
        ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contrib.Pending
	for rows.Next() {
		var (
			p       contrib.Pending
			created string
		)
		if err := rows.Scan(
			&p.ID, &p.Idiom, &p.ChatID, &p.Submitter.ID, &p.Submitter.Name,
			&p.Origin.ChatID, &p.Origin.MessageID, &p.Leading, &p.Trailing, &created,
		); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PutPending inserts p. A second record for the same (idiom, chat) violates
// the table's unique constraint.
func (s *Store) PutPending(ctx context.Context, p contrib.Pending) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO pending_contributions
            (id, idiom, chat_id, submitter_id, submitter_name,
             origin_chat, origin_message, leading, trailing, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Idiom, p.ChatID, p.Submitter.ID, p.Submitter.Name,
		p.Origin.ChatID, p.Origin.MessageID, p.Leading, p.Trailing,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// DeletePending removes id; deleting an unknown id is not an error.
func (s *Store) DeletePending(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_contributions WHERE id=?`, id)
	return err
}
