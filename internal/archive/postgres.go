package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reusability-token/internal/report"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sim_runs (
	run_id TEXT PRIMARY KEY,
	seed TEXT NOT NULL,
	owner BIGINT NOT NULL,
	params_json JSONB NOT NULL,
	census_json JSONB NOT NULL,
	outcome TEXT NOT NULL,
	days_run INTEGER NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS sim_days (
	run_id TEXT NOT NULL REFERENCES sim_runs(run_id) ON DELETE CASCADE,
	day INTEGER NOT NULL,
	clock_time INTEGER NOT NULL,
	purchases INTEGER NOT NULL,
	dues_collected BOOLEAN NOT NULL,
	claims_accepted INTEGER NOT NULL,
	claims_opened INTEGER NOT NULL,
	shop_reputation_total DOUBLE PRECISION NOT NULL,
	snapshot_json JSONB NOT NULL,
	PRIMARY KEY (run_id, day)
);

CREATE TABLE IF NOT EXISTS sim_shop_days (
	run_id TEXT NOT NULL REFERENCES sim_runs(run_id) ON DELETE CASCADE,
	day INTEGER NOT NULL,
	shop BIGINT NOT NULL,
	reputation DOUBLE PRECISION NOT NULL,
	coins DOUBLE PRECISION NOT NULL,
	blacklisted BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, day, shop)
);
`

// Postgres archives runs into a shared Postgres database.
type Postgres struct {
	Pool *pgxpool.Pool

	mu    sync.Mutex
	runID string
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	p := &Postgres{Pool: pool}
	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return p, nil
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.Pool.Ping(ctx)
}

func (p *Postgres) ObserveStart(ctx context.Context, s report.Summary) error {
	row, err := runRow(s)
	if err != nil {
		return err
	}
	_, err = p.Pool.Exec(ctx, `INSERT INTO sim_runs
		(run_id, seed, owner, params_json, census_json, outcome, days_run, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.RunID, row.Seed, row.Owner, row.Params, row.Census, row.Outcome, row.DaysRun, s.StartedAt, s.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	p.mu.Lock()
	p.runID = s.RunID
	p.mu.Unlock()
	return nil
}

func (p *Postgres) ObserveDay(ctx context.Context, d report.Day) error {
	p.mu.Lock()
	runID := p.runID
	p.mu.Unlock()
	if runID == "" {
		return ErrNoRun
	}
	day, shops, err := dayRows(runID, d)
	if err != nil {
		return err
	}

	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO sim_days
		(run_id, day, clock_time, purchases, dues_collected, claims_accepted, claims_opened, shop_reputation_total, snapshot_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		day.RunID, day.Day, day.Time, day.Purchases, day.DuesCollected, day.Accepted, day.Opened, day.ShopRepTotal, day.Snapshot)
	for _, s := range shops {
		batch.Queue(`INSERT INTO sim_shop_days (run_id, day, shop, reputation, coins, blacklisted)
			VALUES ($1, $2, $3, $4, $5, $6)`, s.RunID, s.Day, s.Shop, s.Reputation, s.Coins, s.Blacklisted)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert day %d: %w", d.Day, err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) ObserveFinish(ctx context.Context, s report.Summary) error {
	_, err := p.Pool.Exec(ctx, `UPDATE sim_runs SET outcome = $2, days_run = $3, finished_at = $4 WHERE run_id = $1`,
		s.RunID, string(s.Outcome), s.DaysRun, s.FinishedAt)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (p *Postgres) Run(ctx context.Context, runID string) (RunRow, error) {
	var (
		row        RunRow
		startedAt  time.Time
		finishedAt *time.Time
	)
	err := p.Pool.QueryRow(ctx, `SELECT run_id, seed, owner, params_json::text, census_json::text, outcome,
		days_run, started_at, finished_at FROM sim_runs WHERE run_id = $1`, runID).
		Scan(&row.RunID, &row.Seed, &row.Owner, &row.Params, &row.Census, &row.Outcome, &row.DaysRun, &startedAt, &finishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunRow{}, ErrRunNotFound
	}
	if err != nil {
		return RunRow{}, err
	}
	row.StartedAt = startedAt.UnixMilli()
	if finishedAt != nil {
		ms := finishedAt.UnixMilli()
		row.FinishedAt = &ms
	}
	return row, nil
}

func (p *Postgres) Days(ctx context.Context, runID string) ([]DayRow, error) {
	rows, err := p.Pool.Query(ctx, `SELECT run_id, day, clock_time, purchases, dues_collected,
		claims_accepted, claims_opened, shop_reputation_total, snapshot_json::text
		FROM sim_days WHERE run_id = $1 ORDER BY day`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DayRow
	for rows.Next() {
		var r DayRow
		if err := rows.Scan(&r.RunID, &r.Day, &r.Time, &r.Purchases, &r.DuesCollected, &r.Accepted, &r.Opened, &r.ShopRepTotal, &r.Snapshot); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
