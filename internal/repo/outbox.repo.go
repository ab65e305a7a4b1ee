package repo

import (
	"context"

	"storefront-api/internal/domain"
)

type OutboxRepo interface {
	Enqueue(ctx context.Context, ev *domain.OutboxEvent) error
	// LockPending locks up to limit pending events, skipping rows other relays hold.
	LockPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []int64) error
	// MarkFailed records the error; the event is parked as failed after maxRetries attempts.
	MarkFailed(ctx context.Context, id int64, errMsg string, maxRetries int) error
}

type outboxRepo struct {
	q DBTX
}

func (r *outboxRepo) Enqueue(ctx context.Context, ev *domain.OutboxEvent) error {
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, payload, traceparent)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		ev.AggregateType, ev.AggregateID, ev.Type, string(ev.Payload), ev.Traceparent,
	).Scan(&ev.ID, &ev.CreatedAt)
	return wrap(err)
}

func (r *outboxRepo) LockPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, event_type, payload, traceparent, retry_count, created_at
		 FROM outbox
		 WHERE status = 'pending'
		 ORDER BY id
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var (
			ev      domain.OutboxEvent
			payload string
		)
		if err := rows.Scan(
			&ev.ID,
			&ev.AggregateType,
			&ev.AggregateID,
			&ev.Type,
			&payload,
			&ev.Traceparent,
			&ev.RetryCount,
			&ev.CreatedAt,
		); err != nil {
			return nil, wrap(err)
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}
	return events, wrap(rows.Err())
}

func (r *outboxRepo) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.ExecContext(ctx,
		`UPDATE outbox SET status = 'sent', sent_at = now() WHERE id = ANY($1::bigint[])`, ids)
	return wrap(err)
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id int64, errMsg string, maxRetries int) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE outbox
		 SET retry_count = retry_count + 1,
		     last_error = $2,
		     status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END
		 WHERE id = $1`,
		id, errMsg, maxRetries)
	return wrap(err)
}
