// Package archive exports runs to a database as they happen. Each run is
// written under its own id and nothing is read back into a simulation.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"reusability-token/internal/report"
)

var (
	ErrRunNotFound = errors.New("archived_run_not_found")
	ErrNoRun       = errors.New("archive_run_not_started")
)

// RunRow is one archived run.
type RunRow struct {
	RunID      string `db:"run_id"`
	Seed       string `db:"seed"`
	Owner      int64  `db:"owner"`
	Params     string `db:"params_json"`
	Census     string `db:"census_json"`
	Outcome    string `db:"outcome"`
	DaysRun    int    `db:"days_run"`
	StartedAt  int64  `db:"started_at_ms"`
	FinishedAt *int64 `db:"finished_at_ms"`
}

// DayRow is one archived day. Snapshot holds the full report.Day as JSON.
type DayRow struct {
	RunID         string  `db:"run_id"`
	Day           int     `db:"day"`
	Time          int     `db:"clock_time"`
	Purchases     int     `db:"purchases"`
	DuesCollected bool    `db:"dues_collected"`
	Accepted      int     `db:"claims_accepted"`
	Opened        int     `db:"claims_opened"`
	ShopRepTotal  float64 `db:"shop_reputation_total"`
	Snapshot      string  `db:"snapshot_json"`
}

// ShopDayRow is one shop's standing at the end of a day.
type ShopDayRow struct {
	RunID       string  `db:"run_id"`
	Day         int     `db:"day"`
	Shop        int64   `db:"shop"`
	Reputation  float64 `db:"reputation"`
	Coins       float64 `db:"coins"`
	Blacklisted bool    `db:"blacklisted"`
}

func runRow(s report.Summary) (RunRow, error) {
	params, err := json.Marshal(s.Params)
	if err != nil {
		return RunRow{}, fmt.Errorf("encode params: %w", err)
	}
	census, err := json.Marshal(s.Census)
	if err != nil {
		return RunRow{}, fmt.Errorf("encode census: %w", err)
	}
	row := RunRow{
		RunID:     s.RunID,
		Seed:      strconv.FormatUint(s.Seed, 10),
		Owner:     int64(s.Owner),
		Params:    string(params),
		Census:    string(census),
		Outcome:   string(s.Outcome),
		DaysRun:   s.DaysRun,
		StartedAt: s.StartedAt.UnixMilli(),
	}
	if s.FinishedAt != nil {
		ms := s.FinishedAt.UnixMilli()
		row.FinishedAt = &ms
	}
	return row, nil
}

func dayRows(runID string, d report.Day) (DayRow, []ShopDayRow, error) {
	snapshot, err := json.Marshal(d)
	if err != nil {
		return DayRow{}, nil, fmt.Errorf("encode day %d: %w", d.Day, err)
	}
	row := DayRow{
		RunID:         runID,
		Day:           d.Day,
		Time:          d.Time,
		Purchases:     d.PurchasesToday,
		DuesCollected: d.DuesCollected,
		Accepted:      d.Claims.Accepted,
		Opened:        d.Claims.Opened,
		ShopRepTotal:  d.TotalShopReputation(),
		Snapshot:      string(snapshot),
	}
	black := make(map[int64]bool, len(d.Blacklisted))
	for _, s := range d.Blacklisted {
		black[int64(s)] = true
	}
	coins := make(map[int64]float64, len(d.ShopCoins))
	for _, e := range d.ShopCoins {
		coins[int64(e.Address)] = e.Value
	}
	shops := make([]ShopDayRow, 0, len(d.ShopReputation))
	for _, e := range d.ShopReputation {
		shop := int64(e.Address)
		shops = append(shops, ShopDayRow{
			RunID:       runID,
			Day:         d.Day,
			Shop:        shop,
			Reputation:  e.Value,
			Coins:       coins[shop],
			Blacklisted: black[shop],
		})
	}
	return row, shops, nil
}

// DecodeDay restores the snapshot stored with a day row.
func (r DayRow) DecodeDay() (report.Day, error) {
	var d report.Day
	if err := json.Unmarshal([]byte(r.Snapshot), &d); err != nil {
		return report.Day{}, fmt.Errorf("decode day %d: %w", r.Day, err)
	}
	return d, nil
}
