// Package report turns ledger state into per-day snapshots and fans them out
// to whoever watches a run.
package report

import (
	"context"
	"time"

	"reusability-token/internal/ids"
)

type Outcome string

const (
	OutcomeRunning     Outcome = "running"
	OutcomeCompleted   Outcome = "completed"
	OutcomeHalted      Outcome = "halted"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeAborted     Outcome = "aborted"
)

type Entry struct {
	Address ids.Address `json:"address"`
	Value   float64     `json:"value"`
}

type Count struct {
	Address ids.Address `json:"address"`
	Count   int         `json:"count"`
}

// ClaimStats counts what happened to recycling claims during one day.
type ClaimStats struct {
	Opened            int            `json:"opened"`
	Accepted          int            `json:"accepted"`
	Rejected          map[string]int `json:"rejected"`
	SimulatedFailures int            `json:"simulated_failures"`
	CoinsIssued       float64        `json:"coins_issued"`
	ReputationIssued  float64        `json:"reputation_issued"`
}

func NewClaimStats() ClaimStats {
	return ClaimStats{Rejected: map[string]int{}}
}

func (s *ClaimStats) Reject(reason string) {
	if s.Rejected == nil {
		s.Rejected = map[string]int{}
	}
	s.Rejected[reason]++
}

type Day struct {
	Day                int           `json:"day"`
	Time               int           `json:"time"`
	CustomerReputation []Entry       `json:"customer_reputation"`
	ShopReputation     []Entry       `json:"shop_reputation"`
	CoinPurchases      []Count       `json:"coin_purchases"`
	ShopCoins          []Entry       `json:"shop_coins"`
	Blacklisted        []ids.Address `json:"blacklisted"`
	NewlyBlacklisted   []ids.Address `json:"newly_blacklisted,omitempty"`
	Claims             ClaimStats    `json:"claims"`
	PurchasesToday     int           `json:"purchases_today"`
	DuesCollected      bool          `json:"dues_collected"`
}

type Params struct {
	Iterations              int       `json:"iterations"`
	Customers               int       `json:"customers"`
	Shops                   int       `json:"shops"`
	CoinLimit               float64   `json:"coin_limit"`
	ReputationLimit         float64   `json:"reputation_limit"`
	CoinsPerReputationToken float64   `json:"coins_per_reputation_token"`
	PaymentDueDays          int       `json:"payment_due_days"`
	ClaimFailureProbability float64   `json:"claim_failure_probability"`
	ReputationDecay         float64   `json:"reputation_decay"`
	CustomerMix             []float64 `json:"customer_mix"`
	PaymentCheck            string    `json:"payment_check"`
	DuesSchedule            string    `json:"dues_schedule"`
}

type Summary struct {
	RunID      string         `json:"run_id"`
	Seed       uint64         `json:"seed"`
	Owner      ids.Address    `json:"owner"`
	Params     Params         `json:"params"`
	Census     map[string]int `json:"census"`
	Outcome    Outcome        `json:"outcome"`
	DaysRun    int            `json:"days_run"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// Observer is notified as a run progresses. Calls arrive from the simulation
// goroutine in order: ObserveStart once, ObserveDay per day, ObserveFinish once.
type Observer interface {
	ObserveStart(ctx context.Context, s Summary) error
	ObserveDay(ctx context.Context, d Day) error
	ObserveFinish(ctx context.Context, s Summary) error
}
