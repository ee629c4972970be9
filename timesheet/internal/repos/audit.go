package repos

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"worklog-approval-system/timesheet/internal/models"
)

// AuditRepo writes the who-did-what trail. Entries are batched because the
// orchestrator flushes them asynchronously after the command commits.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) WriteAuditLog(ctx context.Context, entries []models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range entries {
		entry := entries[i]
		if entry.OccurredAt.IsZero() {
			entry.OccurredAt = time.Now().UTC()
		}
		batch.Queue(`
			INSERT INTO audit_logs (occurred_at, actor_id, action, resource_type, resource_id, outcome, details)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, entry.OccurredAt, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID, entry.Outcome, entry.Details)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
