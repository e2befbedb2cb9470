package repo

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/membot/internal/model"
)

// EmbeddingCacheRepo stores corpus embeddings line by line, keyed by
// (model_name, fingerprint). Vectors are pgvector columns on postgres and
// JSON text on sqlite.
type EmbeddingCacheRepo struct {
	db *sqlx.DB
}

func NewEmbeddingCacheRepo(db *sqlx.DB) *EmbeddingCacheRepo {
	return &EmbeddingCacheRepo{db: db}
}

func (r *EmbeddingCacheRepo) isPostgres() bool {
	return r.db.DriverName() == "postgres"
}

// Get returns the cached lines in corpus order. The bool is false when no
// entry exists for the key.
func (r *EmbeddingCacheRepo) Get(ctx context.Context, modelName, fingerprint string) ([]model.KnowledgeLine, bool, error) {
	query := r.db.Rebind(`
		SELECT text, embedding
		FROM corpus_embeddings
		WHERE model_name = ? AND fingerprint = ?
		ORDER BY position ASC
	`)
	rows, err := r.db.QueryContext(ctx, query, modelName, fingerprint)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	var lines []model.KnowledgeLine
	for rows.Next() {
		var line model.KnowledgeLine
		if r.isPostgres() {
			var vec pgvector.Vector
			if err := rows.Scan(&line.Text, &vec); err != nil {
				return nil, false, err
			}
			line.Embedding = vec.Slice()
		} else {
			var raw string
			if err := rows.Scan(&line.Text, &raw); err != nil {
				return nil, false, err
			}
			if err := json.Unmarshal([]byte(raw), &line.Embedding); err != nil {
				return nil, false, err
			}
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(lines) == 0 {
		return nil, false, nil
	}
	return lines, true, nil
}

// Save replaces the entry for the key in a single transaction, so readers
// never observe a partially written corpus.
func (r *EmbeddingCacheRepo) Save(ctx context.Context, item *model.CorpusEmbeddings) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`DELETE FROM corpus_embeddings WHERE model_name = ? AND fingerprint = ?`),
		item.ModelName, item.Fingerprint); err != nil {
		return err
	}
	insert := tx.Rebind(`
		INSERT INTO corpus_embeddings (model_name, fingerprint, position, text, embedding, ctime)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for i, line := range item.Lines {
		var emb interface{}
		if r.isPostgres() {
			emb = pgvector.NewVector(line.Embedding)
		} else {
			raw, err := json.Marshal(line.Embedding)
			if err != nil {
				return err
			}
			emb = string(raw)
		}
		if _, err := tx.ExecContext(ctx, insert,
			item.ModelName, item.Fingerprint, i, line.Text, emb, item.Ctime); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteStale removes entries of modelName whose fingerprint differs from
// keep, i.e. embeddings of earlier corpus revisions.
func (r *EmbeddingCacheRepo) DeleteStale(ctx context.Context, modelName, keep string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM corpus_embeddings WHERE model_name = ? AND fingerprint <> ?`),
		modelName, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *EmbeddingCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM corpus_embeddings WHERE ctime < ?`), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
