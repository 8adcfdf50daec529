package sqlstore

import (
	"context"
	"fmt"

	"github.com/robalobadob/idiomchain/internal/dictionary"
)

// LoadCorpus returns the named corpus; an unknown name yields an empty one.
func (s *Store) LoadCorpus(ctx context.Context, name string) (dictionary.Corpus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT leading, idiom, trailing FROM corpus_entries WHERE corpus=? ORDER BY leading, idiom`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c := dictionary.Corpus{}
	for rows.Next() {
		var lead, idiom, trail string
		if err := rows.Scan(&lead, &idiom, &trail); err != nil {
			return nil, err
		}
		if c[lead] == nil {
			c[lead] = map[string]string{}
		}
		c[lead][idiom] = trail
	}
	return c, rows.Err()
}

// SaveCorpus replaces the named corpus in one transaction.
func (s *Store) SaveCorpus(ctx context.Context, name string, c dictionary.Corpus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_entries WHERE corpus=?`, name); err != nil {
		return fmt.Errorf("clear corpus %s: %w", name, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO corpus_entries(corpus, leading, idiom, trailing) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for lead, idioms := range c {
		for idiom, trail := range idioms {
			if _, err := stmt.ExecContext(ctx, name, lead, idiom, trail); err != nil {
				return fmt.Errorf("insert %s: %w", idiom, err)
			}
		}
	}
	return tx.Commit()
}
