package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
	"gofunnel/ports"

	"github.com/jmoiron/sqlx"
)

// analysisRepository implements the AnalysisRepository interface
type analysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlx.DB) ports.AnalysisRepository {
	return &analysisRepository{db: db}
}

// EnsureSchema creates the analysis tables if they do not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS funnel_analyses (
			id TEXT PRIMARY KEY,
			data_type TEXT NOT NULL,
			sr_method TEXT NOT NULL DEFAULT '',
			trim_by DOUBLE PRECISION NOT NULL,
			multiplier DOUBLE PRECISION NOT NULL,
			coverage INTEGER NOT NULL,
			od_adjust BOOLEAN NOT NULL,
			poisson_limits BOOLEAN NOT NULL,
			phi DOUBLE PRECISION NOT NULL,
			tau2 DOUBLE PRECISION NOT NULL,
			target DOUBLE PRECISION NOT NULL,
			notices JSONB NOT NULL DEFAULT '[]',
			poisson_curve JSONB NOT NULL,
			od_curve JSONB,
			computed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS funnel_groups (
			analysis_id TEXT NOT NULL REFERENCES funnel_analyses(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			group_key TEXT NOT NULL,
			numerator DOUBLE PRECISION NOT NULL,
			denominator DOUBLE PRECISION NOT NULL,
			ratio DOUBLE PRECISION NOT NULL,
			display_ratio DOUBLE PRECISION NOT NULL,
			outlier BOOLEAN NOT NULL,
			highlight BOOLEAN NOT NULL,
			PRIMARY KEY (analysis_id, position)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Save stores a completed analysis with its parameters
func (r *analysisRepository) Save(ctx context.Context, params funnel.Params, result *funnel.Result) error {
	noticesJSON, err := json.Marshal(result.Notices)
	if err != nil {
		return fmt.Errorf("failed to marshal notices: %w", err)
	}
	poissonJSON, err := json.Marshal(result.PoissonCurve)
	if err != nil {
		return fmt.Errorf("failed to marshal poisson curve: %w", err)
	}
	var odJSON []byte
	if result.ODAdjustedCurve != nil {
		odJSON, err = json.Marshal(result.ODAdjustedCurve)
		if err != nil {
			return fmt.Errorf("failed to marshal od curve: %w", err)
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO funnel_analyses (
		id, data_type, sr_method, trim_by, multiplier, coverage,
		od_adjust, poisson_limits, phi, tau2, target,
		notices, poisson_curve, od_curve, computed_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
	)`

	_, err = tx.ExecContext(ctx, query,
		result.AnalysisID.String(), string(params.DataType), string(params.SRMethod),
		params.TrimBy, params.Multiplier, int(params.Limit),
		result.ODAdjust, result.PoissonLimits, result.Phi, result.Tau2, result.Target,
		noticesJSON, poissonJSON, odJSON, result.ComputedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	groupQuery := `INSERT INTO funnel_groups (
		analysis_id, position, group_key, numerator, denominator,
		ratio, display_ratio, outlier, highlight
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i, g := range result.Groups {
		_, err = tx.ExecContext(ctx, groupQuery,
			result.AnalysisID.String(), i, g.Group.String(),
			g.Numerator, g.Denominator, g.Ratio, g.DisplayRatio,
			g.Outlier, g.Highlight,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group %q: %w", g.Group, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}
	return nil
}

// GetByID retrieves one analysis result
func (r *analysisRepository) GetByID(ctx context.Context, id core.AnalysisID) (*funnel.Result, error) {
	query := `SELECT
		id, od_adjust, poisson_limits, phi, tau2, target,
		notices, poisson_curve, COALESCE(od_curve, 'null') AS od_curve, computed_at
	FROM funnel_analyses WHERE id = $1`

	result, err := r.scanAnalysis(r.db.QueryRowxContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrAnalysisNotFound, id)
		}
		return nil, err
	}

	if err := r.loadGroups(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// List returns recent analyses, newest first
func (r *analysisRepository) List(ctx context.Context, limit, offset int) ([]*funnel.Result, error) {
	query := `SELECT
		id, od_adjust, poisson_limits, phi, tau2, target,
		notices, poisson_curve, COALESCE(od_curve, 'null') AS od_curve, computed_at
	FROM funnel_analyses ORDER BY computed_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryxContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	results := make([]*funnel.Result, 0)
	for rows.Next() {
		result, err := r.scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		if err := r.loadGroups(ctx, result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Delete removes an analysis and its groups
func (r *analysisRepository) Delete(ctx context.Context, id core.AnalysisID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM funnel_analyses WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", core.ErrAnalysisNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *analysisRepository) scanAnalysis(row rowScanner) (*funnel.Result, error) {
	var (
		id          string
		result      funnel.Result
		noticesJSON []byte
		poissonJSON []byte
		odJSON      []byte
		computedAt  time.Time
	)

	err := row.Scan(&id, &result.ODAdjust, &result.PoissonLimits,
		&result.Phi, &result.Tau2, &result.Target,
		&noticesJSON, &poissonJSON, &odJSON, &computedAt)
	if err != nil {
		return nil, err
	}

	result.AnalysisID = core.AnalysisID(id)
	result.ComputedAt = core.NewTimestamp(computedAt)

	if err := json.Unmarshal(noticesJSON, &result.Notices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notices: %w", err)
	}
	if err := json.Unmarshal(poissonJSON, &result.PoissonCurve); err != nil {
		return nil, fmt.Errorf("failed to unmarshal poisson curve: %w", err)
	}
	if string(odJSON) != "null" && len(odJSON) > 0 {
		var curve funnel.LimitCurve
		if err := json.Unmarshal(odJSON, &curve); err != nil {
			return nil, fmt.Errorf("failed to unmarshal od curve: %w", err)
		}
		result.ODAdjustedCurve = &curve
	}

	return &result, nil
}

func (r *analysisRepository) loadGroups(ctx context.Context, result *funnel.Result) error {
	query := `SELECT group_key, numerator, denominator, ratio, display_ratio, outlier, highlight
	FROM funnel_groups WHERE analysis_id = $1 ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, result.AnalysisID.String())
	if err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g funnel.AnnotatedGroup
		var key string
		if err := rows.Scan(&key, &g.Numerator, &g.Denominator, &g.Ratio,
			&g.DisplayRatio, &g.Outlier, &g.Highlight); err != nil {
			return fmt.Errorf("failed to scan group: %w", err)
		}
		g.Group = core.GroupKey(key)
		result.Groups = append(result.Groups, g)
	}

	result.Outliers = result.OutlierSubset()
	return rows.Err()
}
