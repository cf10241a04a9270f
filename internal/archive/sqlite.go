package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"reusability-token/internal/report"
)

// SQLite archives runs into a local database file.
type SQLite struct {
	conn *sqlx.DB

	mu    sync.Mutex
	runID string
}

func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db := &SQLite{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

func (db *SQLite) Close() error {
	return db.conn.Close()
}

func (db *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		owner INTEGER NOT NULL,
		params_json TEXT NOT NULL,
		census_json TEXT NOT NULL,
		outcome TEXT NOT NULL,
		days_run INTEGER NOT NULL,
		started_at_ms INTEGER NOT NULL,
		finished_at_ms INTEGER
	);

	CREATE TABLE IF NOT EXISTS days (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		day INTEGER NOT NULL,
		clock_time INTEGER NOT NULL,
		purchases INTEGER NOT NULL,
		dues_collected INTEGER NOT NULL,
		claims_accepted INTEGER NOT NULL,
		claims_opened INTEGER NOT NULL,
		shop_reputation_total REAL NOT NULL,
		snapshot_json TEXT NOT NULL,
		PRIMARY KEY (run_id, day)
	);

	CREATE TABLE IF NOT EXISTS shop_days (
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		shop INTEGER NOT NULL,
		reputation REAL NOT NULL,
		coins REAL NOT NULL,
		blacklisted INTEGER NOT NULL,
		PRIMARY KEY (run_id, day, shop)
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

func (db *SQLite) ObserveStart(ctx context.Context, s report.Summary) error {
	row, err := runRow(s)
	if err != nil {
		return err
	}
	_, err = db.conn.NamedExecContext(ctx, `INSERT INTO runs
		(run_id, seed, owner, params_json, census_json, outcome, days_run, started_at_ms, finished_at_ms)
		VALUES (:run_id, :seed, :owner, :params_json, :census_json, :outcome, :days_run, :started_at_ms, :finished_at_ms)`, row)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	db.mu.Lock()
	db.runID = s.RunID
	db.mu.Unlock()
	return nil
}

// ObserveDay writes the day and its shop rows in one transaction.
func (db *SQLite) ObserveDay(ctx context.Context, d report.Day) error {
	runID, err := db.currentRun()
	if err != nil {
		return err
	}
	day, shops, err := dayRows(runID, d)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `INSERT INTO days
		(run_id, day, clock_time, purchases, dues_collected, claims_accepted, claims_opened, shop_reputation_total, snapshot_json)
		VALUES (:run_id, :day, :clock_time, :purchases, :dues_collected, :claims_accepted, :claims_opened, :shop_reputation_total, :snapshot_json)`, day); err != nil {
		return fmt.Errorf("insert day %d: %w", d.Day, err)
	}
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO shop_days
		(run_id, day, shop, reputation, coins, blacklisted) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, s := range shops {
		if _, err := stmt.ExecContext(ctx, s.RunID, s.Day, s.Shop, s.Reputation, s.Coins, s.Blacklisted); err != nil {
			return fmt.Errorf("insert shop %d day %d: %w", s.Shop, s.Day, err)
		}
	}
	return tx.Commit()
}

func (db *SQLite) ObserveFinish(ctx context.Context, s report.Summary) error {
	row, err := runRow(s)
	if err != nil {
		return err
	}
	_, err = db.conn.NamedExecContext(ctx, `UPDATE runs
		SET outcome = :outcome, days_run = :days_run, finished_at_ms = :finished_at_ms
		WHERE run_id = :run_id`, row)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (db *SQLite) currentRun() (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.runID == "" {
		return "", ErrNoRun
	}
	return db.runID, nil
}

func (db *SQLite) Run(ctx context.Context, runID string) (RunRow, error) {
	var row RunRow
	err := db.conn.GetContext(ctx, &row, `SELECT run_id, seed, owner, params_json, census_json, outcome,
		days_run, started_at_ms, finished_at_ms FROM runs WHERE run_id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRow{}, ErrRunNotFound
	}
	return row, err
}

func (db *SQLite) Days(ctx context.Context, runID string) ([]DayRow, error) {
	var rows []DayRow
	err := db.conn.SelectContext(ctx, &rows, `SELECT run_id, day, clock_time, purchases, dues_collected,
		claims_accepted, claims_opened, shop_reputation_total, snapshot_json
		FROM days WHERE run_id = ? ORDER BY day`, runID)
	return rows, err
}

func (db *SQLite) ShopDays(ctx context.Context, runID string, shop int64) ([]ShopDayRow, error) {
	var rows []ShopDayRow
	err := db.conn.SelectContext(ctx, &rows, `SELECT run_id, day, shop, reputation, coins, blacklisted
		FROM shop_days WHERE run_id = ? AND shop = ? ORDER BY day`, runID, shop)
	return rows, err
}

// Runs lists archived runs, newest first.
func (db *SQLite) Runs(ctx context.Context) ([]RunRow, error) {
	var rows []RunRow
	err := db.conn.SelectContext(ctx, &rows, `SELECT run_id, seed, owner, params_json, census_json, outcome,
		days_run, started_at_ms, finished_at_ms FROM runs ORDER BY started_at_ms DESC, run_id DESC`)
	return rows, err
}
