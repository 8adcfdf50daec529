package sqlstore

import "context"

func (s *Store) LoadScores(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id, best_rounds FROM best_scores`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var chat string
		var best int
		if err := rows.Scan(&chat, &best); err != nil {
			return nil, err
		}
		out[chat] = best
	}
	return out, rows.Err()
}

// SaveBest upserts the best score for chat. A lower value never overwrites
// a higher stored one.
func (s *Store) SaveBest(ctx context.Context, chat string, best int) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO best_scores(chat_id, best_rounds)
        VALUES (?, ?)
        ON CONFLICT(chat_id) DO UPDATE SET
            best_rounds = MAX(best_rounds, excluded.best_rounds),
            updated_at  = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		chat, best,
	)
	return err
}
