package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/rohithpranav45/storeiq/internal/domain/analysis"
	"github.com/rohithpranav45/storeiq/internal/domain/dashboard"
)

type RunRepository struct{ db *sql.DB }

func NewRunRepository(db *sql.DB) *RunRepository { return &RunRepository{db: db} }

// Save insert/update analysis run record
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO analysis_runs
(id, operator, product_id, store_id, seq, requested_at, status,
 recommendation, cost_impact, demand_score, urgency_score,
 custom_tariff, custom_demand, artifact_url, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,
        $8,$9,$10,$11,
        $12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 recommendation = EXCLUDED.recommendation,
 cost_impact = EXCLUDED.cost_impact,
 demand_score = EXCLUDED.demand_score,
 urgency_score = EXCLUDED.urgency_score,
 artifact_url = EXCLUDED.artifact_url,
 duration_ms = EXCLUDED.duration_ms;`

	operator := stringOrDash(run.Operator)
	status := stringOrDash(run.Status)
	requested := run.RequestedAt
	if requested.IsZero() {
		requested = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		run.ID, operator, run.ProductID, run.StoreID, run.Seq, requested, status,
		string(run.Recommendation),
		run.Scores.CostImpactScore, run.Scores.DemandScore, run.Scores.UrgencyScore,
		nullFloat(run.CustomTariff), nullFloat(run.CustomDemand),
		run.ArtifactURL, run.DurationMS,
	)
	return err
}

// Paginate with offset + limit
func (r *RunRepository) Paginate(ctx context.Context, operator string, page, pageSize int) ([]*domain.Run, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, operator, product_id, store_id, seq, requested_at, status,
       recommendation, cost_impact, demand_score, urgency_score,
       custom_tariff, custom_demand, artifact_url, duration_ms
FROM analysis_runs
WHERE operator=$1 ORDER BY requested_at DESC, id DESC LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, operator, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		var (
			run            domain.Run
			recommendation string
			tariff, demand sql.NullFloat64
		)
		if err := rows.Scan(
			&run.ID, &run.Operator, &run.ProductID, &run.StoreID, &run.Seq,
			&run.RequestedAt, &run.Status,
			&recommendation,
			&run.Scores.CostImpactScore, &run.Scores.DemandScore, &run.Scores.UrgencyScore,
			&tariff, &demand,
			&run.ArtifactURL, &run.DurationMS,
		); err != nil {
			return nil, err
		}
		run.Recommendation = dashboard.Status(recommendation)
		if tariff.Valid {
			run.CustomTariff = &tariff.Float64
		}
		if demand.Valid {
			run.CustomDemand = &demand.Float64
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}

// Count returns the total runs recorded for an operator
func (r *RunRepository) Count(ctx context.Context, operator string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM analysis_runs WHERE operator = $1", operator,
	).Scan(&count)
	return count, err
}

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
