package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type sqlDocumentStore struct {
	s *Store
}

func (d *sqlDocumentStore) Read(ctx context.Context, userID string) (*LearnerDocument, error) {
	return d.read(ctx, d.s.db, userID, false)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *sqlDocumentStore) read(ctx context.Context, q queryer, userID string, forUpdate bool) (*LearnerDocument, error) {
	query := `SELECT doc FROM learner_documents WHERE user_id = ?`
	if forUpdate && d.s.driver == DriverPostgres {
		query += ` FOR UPDATE`
	}

	var raw string
	err := q.QueryRowContext(ctx, d.s.rebind(query), userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read learner document: %w", err)
	}

	var doc LearnerDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode learner document: %w", err)
	}
	return &doc, nil
}

func (d *sqlDocumentStore) Write(ctx context.Context, userID string, patch Patch) error {
	tx, err := d.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	doc, err := d.read(ctx, tx, userID, true)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = &LearnerDocument{UserID: userID}
	}
	patch.Apply(doc)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode learner document: %w", err)
	}

	_, err = tx.ExecContext(ctx, d.s.rebind(`
		INSERT INTO learner_documents (user_id, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`),
		userID, string(raw), doc.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write learner document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
