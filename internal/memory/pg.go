package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository stores memories in Postgres with pgvector columns for the
// embedding and the affect vector.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const recordColumns = "id, tier, content, embedding, meta_vector, meta, agent_id, source, score, created_at, last_accessed"

func scanRecord(row pgx.Row, rec *Record) error {
	return row.Scan(
		&rec.ID, &rec.Tier, &rec.Text, &rec.Embedding, &rec.MetaVector,
		&rec.Meta, &rec.AgentID, &rec.Source, &rec.Score,
		&rec.CreatedAt, &rec.LastAccessed,
	)
}

func (r *PgRepository) Insert(ctx context.Context, rec *Record) (int64, error) {
	query := `
		INSERT INTO memories (tier, content, embedding, meta_vector, meta, agent_id, source, score, created_at, last_accessed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		rec.Tier, rec.Text, rec.Embedding, rec.MetaVector, rec.Meta,
		rec.AgentID, rec.Source, rec.Score, rec.CreatedAt, rec.LastAccessed,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	rec.ID = id
	return id, nil
}

func (r *PgRepository) Get(ctx context.Context, tier Tier, id int64) (*Record, error) {
	query := fmt.Sprintf("SELECT %s FROM memories WHERE tier = $1 AND id = $2", recordColumns)
	rec := &Record{}
	err := scanRecord(r.pool.QueryRow(ctx, query, tier, id), rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return rec, nil
}

func (r *PgRepository) ListAll(ctx context.Context, tier Tier) ([]Record, error) {
	query := fmt.Sprintf("SELECT %s FROM memories WHERE tier = $1 ORDER BY id", recordColumns)
	return r.list(ctx, query, tier)
}

func (r *PgRepository) ListRecent(ctx context.Context, tier Tier, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM memories WHERE tier = $1 ORDER BY created_at DESC, id DESC LIMIT $2", recordColumns)
	return r.list(ctx, query, tier, limit)
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PgRepository) Boost(ctx context.Context, tier Tier, id int64, amount float64, now time.Time) error {
	query := `
		UPDATE memories
		SET score = score + $3, last_accessed = $4
		WHERE tier = $1 AND id = $2
	`
	_, err := r.pool.Exec(ctx, query, tier, id, amount, now)
	if err != nil {
		return fmt.Errorf("boost memory: %w", err)
	}
	return nil
}

func (r *PgRepository) ApplyDecay(ctx context.Context, tier Tier, updates []ScoreUpdate, deleteIDs []int64, sweepTime time.Time) error {
	if len(updates) == 0 && len(deleteIDs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin decay tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(updates) > 0 {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(
				"UPDATE memories SET score = $3, last_accessed = $4 WHERE tier = $1 AND id = $2",
				tier, u.ID, u.Score, sweepTime,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range updates {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("apply decay update: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close decay batch: %w", err)
		}
	}

	if len(deleteIDs) > 0 {
		if _, err := tx.Exec(ctx, "DELETE FROM memories WHERE tier = $1 AND id = ANY($2)", tier, deleteIDs); err != nil {
			return fmt.Errorf("apply decay delete: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit decay tx: %w", err)
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, tier Tier, id int64) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM memories WHERE tier = $1 AND id = $2", tier, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return nil
}

func (r *PgRepository) Clear(ctx context.Context, tier Tier) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM memories WHERE tier = $1", tier)
	if err != nil {
		return fmt.Errorf("clear tier: %w", err)
	}
	return nil
}

func (r *PgRepository) Count(ctx context.Context, tier Tier) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM memories WHERE tier = $1", tier).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return count, nil
}

func (r *PgRepository) TierStats(ctx context.Context, tier Tier) (*TierStats, error) {
	stats := &TierStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(score), 0), COALESCE(MAX(score), 0)
		FROM memories WHERE tier = $1
	`, tier).Scan(&stats.Count, &stats.AvgScore, &stats.MaxScore)
	if err != nil {
		return nil, fmt.Errorf("tier stats: %w", err)
	}
	return stats, nil
}

func (r *PgRepository) ExportAll(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf("SELECT %s FROM memories ORDER BY id", recordColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("export memories: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PgRepository) ImportAll(ctx context.Context, recs []Record) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM memories"); err != nil {
		return fmt.Errorf("clear before import: %w", err)
	}

	for _, rec := range recs {
		_, err := tx.Exec(ctx, `
			INSERT INTO memories (id, tier, content, embedding, meta_vector, meta, agent_id, source, score, created_at, last_accessed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, rec.ID, rec.Tier, rec.Text, rec.Embedding, rec.MetaVector, rec.Meta,
			rec.AgentID, rec.Source, rec.Score, rec.CreatedAt, rec.LastAccessed)
		if err != nil {
			return fmt.Errorf("import memory %d: %w", rec.ID, err)
		}
	}

	// Advance the sequence past the imported IDs so they are never reissued.
	if _, err := tx.Exec(ctx, "SELECT setval('memories_id_seq', (SELECT COALESCE(MAX(id), 1) FROM memories))"); err != nil {
		return fmt.Errorf("advance id sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import tx: %w", err)
	}
	return nil
}
