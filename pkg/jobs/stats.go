package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/seamed/tracker/pkg/observability"
)

// UserCounter counts provisioned users
type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

// ItemCounter counts inventory items
type ItemCounter interface {
	Count(ctx context.Context) (int64, error)
	CountExpired(ctx context.Context, now time.Time) (int64, error)
}

// StatsRefresher copies aggregate counts into the business gauges
type StatsRefresher struct {
	users   UserCounter
	items   ItemCounter
	db      *sql.DB
	metrics *observability.Metrics
	now     func() time.Time
}

// NewStatsRefresher creates a refresher. db may be nil, in which case pool
// stats are not recorded.
func NewStatsRefresher(users UserCounter, items ItemCounter, db *sql.DB, metrics *observability.Metrics) *StatsRefresher {
	return &StatsRefresher{
		users:   users,
		items:   items,
		db:      db,
		metrics: metrics,
		now:     time.Now,
	}
}

// Refresh runs one collection pass
func (r *StatsRefresher) Refresh(ctx context.Context) error {
	users, err := r.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	items, err := r.items.Count(ctx)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	expired, err := r.items.CountExpired(ctx, r.now().UTC())
	if err != nil {
		return fmt.Errorf("count expired items: %w", err)
	}

	r.metrics.UsersTotal.Set(float64(users))
	r.metrics.InventoryItemsTotal.Set(float64(items))
	r.metrics.ExpiredItemsTotal.Set(float64(expired))
	if r.db != nil {
		r.metrics.RecordDBStats(r.db.Stats())
	}
	return nil
}
