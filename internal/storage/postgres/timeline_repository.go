package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// timelineRepository пишет хронологию заказа в append-only таблицу.
// Порядок чтения фиксирован парой (occurred_at, id): события одной
// миллисекунды не перемешиваются между запросами.
type timelineRepository struct {
	db *sql.DB
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{db: store.DB()}
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	const q = `INSERT INTO timeline_events (order_id, event_kind, note, occurred_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, q, event.OrderID, event.Kind, event.Note, event.OccurredAt); err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}
	return nil
}

func (r *timelineRepository) List(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	const q = `
		SELECT order_id, event_kind, note, occurred_at
		FROM timeline_events
		WHERE order_id = $1
		ORDER BY occurred_at, id`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("select order timeline: %w", err)
	}
	defer rows.Close()

	var events []domain.TimelineEvent
	for rows.Next() {
		var event domain.TimelineEvent
		if err := rows.Scan(&event.OrderID, &event.Kind, &event.Note, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("decode timeline row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read timeline rows: %w", err)
	}
	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
