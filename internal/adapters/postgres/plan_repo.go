package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// PlanRepo implements ports.PlanRepository with pgx.
type PlanRepo struct {
	db *DB
}

// NewPlanRepo creates a new PlanRepo.
func NewPlanRepo(db *DB) *PlanRepo {
	return &PlanRepo{db: db}
}

const planColumns = `id, name, min_distance_meters, offset_meters, min_zoom, max_zoom,
	point_count, length_meters, tile_count, skipped, dispatched_at, created_at`

var regionColumns = []string{
	"plan_id", "region_index", "waypoint_index", "waypoint_lat", "waypoint_lon",
	"sw_lat", "sw_lon", "ne_lat", "ne_lon", "min_zoom", "max_zoom", "tile_count", "degraded",
}

// Create stores a plan and its regions in one transaction.
func (r *PlanRepo) Create(ctx context.Context, p *domain.PrefetchPlan) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.Name, p.Settings.MinDistanceMeters, p.Settings.OffsetMeters,
		p.Settings.MinZoom, p.Settings.MaxZoom,
		p.PointCount, p.LengthMeters, p.TileCount, p.Skipped, p.DispatchedAt, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	rows := make([][]any, len(p.Regions))
	for i, reg := range p.Regions {
		rows[i] = []any{
			p.ID, reg.Index, reg.Waypoint.Index, reg.Waypoint.Point.Lat, reg.Waypoint.Point.Lon,
			reg.Bounds.SouthWest.Lat, reg.Bounds.SouthWest.Lon, reg.Bounds.NorthEast.Lat, reg.Bounds.NorthEast.Lon,
			reg.MinZoom, reg.MaxZoom, reg.TileCount, reg.Degraded,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"plan_regions"}, regionColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy regions: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID returns a plan with its regions.
func (r *PlanRepo) GetByID(ctx context.Context, id string) (*domain.PrefetchPlan, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	p, err := scanPlan(r.db.Pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT region_index, waypoint_index, waypoint_lat, waypoint_lon,
		       sw_lat, sw_lon, ne_lat, ne_lon, min_zoom, max_zoom, tile_count, degraded
		FROM plan_regions WHERE plan_id = $1
		ORDER BY region_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reg domain.PrefetchRegion
		if err := rows.Scan(
			&reg.Index, &reg.Waypoint.Index, &reg.Waypoint.Point.Lat, &reg.Waypoint.Point.Lon,
			&reg.Bounds.SouthWest.Lat, &reg.Bounds.SouthWest.Lon, &reg.Bounds.NorthEast.Lat, &reg.Bounds.NorthEast.Lon,
			&reg.MinZoom, &reg.MaxZoom, &reg.TileCount, &reg.Degraded,
		); err != nil {
			return nil, err
		}
		p.Regions = append(p.Regions, reg)
	}
	return p, rows.Err()
}

// List returns plan headers, newest first. Regions are not loaded.
func (r *PlanRepo) List(ctx context.Context, limit, offset int) ([]domain.PrefetchPlan, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM plans`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count plans: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+planColumns+` FROM plans
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	plans := make([]domain.PrefetchPlan, 0, limit)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		plans = append(plans, *p)
	}
	return plans, total, rows.Err()
}

// Delete removes a plan; regions and progress cascade.
func (r *PlanRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkDispatched records when the plan was handed to the downloader.
func (r *PlanRepo) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `UPDATE plans SET dispatched_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*domain.PrefetchPlan, error) {
	var p domain.PrefetchPlan
	err := row.Scan(
		&p.ID, &p.Name, &p.Settings.MinDistanceMeters, &p.Settings.OffsetMeters,
		&p.Settings.MinZoom, &p.Settings.MaxZoom,
		&p.PointCount, &p.LengthMeters, &p.TileCount, &p.Skipped, &p.DispatchedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// validID reports whether id can be a plans.id value. Anything else cannot
// exist and would only make PostgreSQL reject the query.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
