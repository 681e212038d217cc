package postgres

import (
	"context"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// ProgressRepo implements ports.ProgressRepository with pgx.
type ProgressRepo struct {
	db *DB
}

// NewProgressRepo creates a new ProgressRepo.
func NewProgressRepo(db *DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// Upsert replaces the stored report of a region unless the stored one is newer.
func (r *ProgressRepo) Upsert(ctx context.Context, p *domain.Progress) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO region_progress (plan_id, region_index, completed, expected, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (plan_id, region_index) DO UPDATE
		SET completed = EXCLUDED.completed,
		    expected = EXCLUDED.expected,
		    updated_at = EXCLUDED.updated_at
		WHERE region_progress.updated_at <= EXCLUDED.updated_at
	`, p.PlanID, p.RegionIndex, p.Completed, p.Expected, p.UpdatedAt)
	return err
}

// ListByPlan returns the latest report of every region that reported.
func (r *ProgressRepo) ListByPlan(ctx context.Context, planID string) ([]domain.Progress, error) {
	if !validID(planID) {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT plan_id, region_index, completed, expected, updated_at
		FROM region_progress WHERE plan_id = $1
		ORDER BY region_index
	`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Progress
	for rows.Next() {
		var p domain.Progress
		if err := rows.Scan(&p.PlanID, &p.RegionIndex, &p.Completed, &p.Expected, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
