// Package store loads stored matchup executions from PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/matchup"
)

// Querier is the part of *pgxpool.Pool the store uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads executions from the results tables.
type Store struct {
	db      Querier
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *zap.Logger
}

// New connects a pool to cfg.DSN.
func New(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, domserrors.New(domserrors.ErrorTypeConfig, "store.dsn is required")
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeConfig, "failed to parse connection string")
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeConnection, "failed to create connection pool")
	}

	s := NewWithQuerier(pool, cfg.QueryTimeout, logger)
	s.pool = pool
	return s, nil
}

// NewWithQuerier creates a store over an existing connection.
func NewWithQuerier(db Querier, timeout time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, timeout: timeout, logger: logger}
}

// Load reads execution id with its parameters, statistics and results.
func (s *Store) Load(ctx context.Context, id string) (*matchup.Execution, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()

	var exec ExecutionRow
	err := s.db.QueryRow(ctx, queryExecution, id).Scan(&exec.ID, &exec.TimeStarted, &exec.TimeCompleted)
	if err != nil {
		return nil, queryError(err, "execution", id)
	}

	var p ParamsRow
	err = s.db.QueryRow(ctx, queryParams, id).Scan(
		&p.PrimaryDataset, &p.MatchupDatasets, &p.DepthTolerance, &p.TimeTolerance,
		&p.RadiusTolerance, &p.StartTime, &p.EndTime, &p.Platforms, &p.BoundingBox, &p.Parameter)
	if err != nil {
		return nil, queryError(err, "params", id)
	}

	var st StatsRow
	err = s.db.QueryRow(ctx, queryStats, id).Scan(
		&st.NumGriddedMatched, &st.NumGriddedChecked, &st.NumInSituMatched,
		&st.NumInSituChecked, &st.TimeToComplete)
	if err != nil {
		return nil, queryError(err, "stats", id)
	}

	data, err := s.loadData(ctx, id)
	if err != nil {
		return nil, err
	}
	tree, err := AssembleTree(data)
	if err != nil {
		return nil, err
	}

	params := p.Params()
	result := &matchup.Execution{
		ID:      exec.ID,
		Tree:    tree,
		Params:  params,
		Details: st.Details(),
		Count:   -1,
	}
	if bbox, err := params.BoundingBox(); err == nil {
		result.Bounds = &bbox
	}

	s.logger.Debug("loaded execution",
		zap.String("execution_id", id),
		zap.Int("primaries", len(tree)),
		zap.Int("rows", len(data)),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

func (s *Store) loadData(ctx context.Context, id string) ([]DataRow, error) {
	rows, err := s.db.Query(ctx, queryData, id)
	if err != nil {
		return nil, queryError(err, "data", id)
	}
	defer rows.Close()

	var out []DataRow
	for rows.Next() {
		var d DataRow
		if err := rows.Scan(&d.ValueID, &d.PrimaryValueID, &d.IsPrimary, &d.X, &d.Y, &d.SourceDataset,
			&d.MeasurementTime, &d.Platform, &d.Device, &d.MeasurementValues); err != nil {
			return nil, queryError(err, "data", id)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "data", id)
	}
	return out, nil
}

// Close releases the pool, if the store owns one.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func queryError(err error, table, id string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domserrors.Newf(domserrors.ErrorTypeNotFound, "no %s row for execution %q", table, id)
	case errors.Is(err, context.DeadlineExceeded):
		return domserrors.Wrap(err, domserrors.ErrorTypeTimeout, "results query timed out").
			WithDetail("table", table)
	default:
		return domserrors.Wrap(err, domserrors.ErrorTypeConnection, "results query failed").
			WithDetail("table", table)
	}
}
