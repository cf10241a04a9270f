// Package sim runs the market day by day: customers shop and recycle, shops
// verify claims and pay dues, and the ledger owner enforces the rules.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reusability-token/internal/agents"
	"reusability-token/internal/clock"
	"reusability-token/internal/ids"
	"reusability-token/internal/ledger"
	"reusability-token/internal/metrics"
	"reusability-token/internal/report"
)

var ErrInvalidConfig = errors.New("invalid_sim_config")

// Customer is what the driver needs from a customer agent.
type Customer interface {
	Address() ids.Address
	ChooseShop(numShops int) int
	ChooseToRecycle() bool
	ChooseToPayByCoin() bool
	CoinSpend() float64
	Reputation(shop ids.Address) float64
	TransferCoin(amount float64)
	TransferReputation(amount float64, shop ids.Address)
	SetReputation(shop ids.Address, value float64)
}

// Shop is what the driver needs from a shop agent.
type Shop interface {
	Address() ids.Address
	CoinCount() float64
	BuyWithCoins(amount float64)
	PayDues(payee agents.DuesPayee) bool
}

// DuesSchedule selects on which days shops pay dues.
type DuesSchedule string

const (
	// DuesScheduleReference collects on every day that is not a multiple of
	// the payment period, which is how the market was calibrated.
	DuesScheduleReference DuesSchedule = "reference"
	// DuesSchedulePeriod collects once per payment period.
	DuesSchedulePeriod DuesSchedule = "period"
)

func (d DuesSchedule) Valid() bool {
	return d == DuesScheduleReference || d == DuesSchedulePeriod
}

func (d DuesSchedule) open(day, period int) bool {
	if day == 0 || period <= 0 {
		return false
	}
	if d == DuesSchedulePeriod {
		return day%period == 0
	}
	return day%period != 0
}

const DefaultReputationDecay = 30.0

type Config struct {
	Iterations              int
	PaymentDueDays          int
	ClaimFailureProbability float64
	ReputationDecay         float64
	DuesSchedule            DuesSchedule
}

func (c Config) Validate() error {
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations %d", ErrInvalidConfig, c.Iterations)
	}
	if c.PaymentDueDays <= 0 {
		return fmt.Errorf("%w: payment due days %d", ErrInvalidConfig, c.PaymentDueDays)
	}
	if c.ClaimFailureProbability < 0 || c.ClaimFailureProbability > 1 {
		return fmt.Errorf("%w: claim failure probability %v", ErrInvalidConfig, c.ClaimFailureProbability)
	}
	if c.ReputationDecay < 0 {
		return fmt.Errorf("%w: reputation decay %v", ErrInvalidConfig, c.ReputationDecay)
	}
	if !c.DuesSchedule.Valid() {
		return fmt.Errorf("%w: dues schedule %q", ErrInvalidConfig, c.DuesSchedule)
	}
	return nil
}

// Result is how a run ended. Days is the number of days that completed.
type Result struct {
	Outcome report.Outcome
	Days    int
}

type Option func(*Driver)

func WithObservers(obs ...report.Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, obs...) }
}

func WithMetrics(m *metrics.SimMetrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithSummary seeds the run summary handed to observers. The driver fills in
// the outcome and timing.
func WithSummary(s report.Summary) Option {
	return func(d *Driver) { d.summary = s }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

type Driver struct {
	cfg       Config
	ledger    *ledger.Ledger
	clock     *clock.Clock
	customers []Customer
	shops     []Shop
	rng       *rand.Rand

	observers []report.Observer
	metrics   *metrics.SimMetrics
	summary   report.Summary
	logger    zerolog.Logger

	customerAddrs []ids.Address
	shopAddrs     []ids.Address
	shopViews     []report.ShopView
}

// New wires a driver around a ledger that is already configured by its owner.
// The clock must be the one the ledger reads.
func New(cfg Config, l *ledger.Ledger, c *clock.Clock, customers []Customer, shops []Shop, rng *rand.Rand, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(shops) == 0 {
		return nil, fmt.Errorf("%w: no shops", ErrInvalidConfig)
	}
	d := &Driver{
		cfg:       cfg,
		ledger:    l,
		clock:     c,
		customers: customers,
		shops:     shops,
		rng:       rng,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, cu := range customers {
		d.customerAddrs = append(d.customerAddrs, cu.Address())
	}
	for _, s := range shops {
		if s.Address() == l.Owner() {
			return nil, fmt.Errorf("%w: shop address %s is the ledger owner", ErrInvalidConfig, s.Address())
		}
		d.shopAddrs = append(d.shopAddrs, s.Address())
		d.shopViews = append(d.shopViews, s)
	}
	d.summary.Owner = l.Owner()
	return d, nil
}

// Run simulates up to cfg.Iterations days. Cancelling ctx stops the run
// between days; a day in progress still completes and is observed. An
// observer error aborts the run. Observers are told how the run finished on
// every exit path.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	d.summary.Outcome = report.OutcomeRunning
	d.summary.StartedAt = time.Now().UTC()
	d.summary.FinishedAt = nil
	if err := d.notifyStart(ctx); err != nil {
		return Result{}, err
	}

	// Observers write what already happened, so they keep going after ctx
	// is cancelled.
	observeCtx := context.WithoutCancel(ctx)
	res := Result{Outcome: report.OutcomeCompleted, Days: d.cfg.Iterations}
	var runErr error
	for day := 0; day < d.cfg.Iterations; day++ {
		if ctx.Err() != nil {
			res = Result{Outcome: report.OutcomeInterrupted, Days: day}
			break
		}
		snapshot, halted := d.step(day)
		if halted {
			res = Result{Outcome: report.OutcomeHalted, Days: day}
			break
		}
		d.metrics.SetDay(day)
		d.metrics.SetBlacklisted(len(snapshot.Blacklisted))
		if err := d.notifyDay(observeCtx, snapshot); err != nil {
			res = Result{Outcome: report.OutcomeAborted, Days: day}
			runErr = err
			break
		}
	}

	finished := time.Now().UTC()
	d.summary.Outcome = res.Outcome
	d.summary.DaysRun = res.Days
	d.summary.FinishedAt = &finished
	d.metrics.ObserveRun(string(res.Outcome))
	if err := d.notifyFinish(observeCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return res, runErr
}

// step runs one day. It reports true when no shop is left in good standing,
// in which case nothing else happens that day.
func (d *Driver) step(day int) (report.Day, bool) {
	d.clock.Increment()
	if !d.ledger.ValidShopsLeft(d.shopAddrs) {
		return report.Day{}, true
	}

	stats := report.NewClaimStats()
	purchases := 0
	for _, cu := range d.customers {
		shop := d.shops[cu.ChooseShop(len(d.shops))]
		if cu.ChooseToPayByCoin() {
			d.ledger.CustomerBuysWithCoin(cu.Address(), shop.Address(), cu.CoinSpend())
			shop.BuyWithCoins(cu.CoinSpend())
			purchases++
			d.metrics.IncCoinPurchase()
		}
		if cu.ChooseToRecycle() {
			d.recycle(day, cu, shop, &stats)
		}
	}

	dues := d.cfg.DuesSchedule.open(day, d.cfg.PaymentDueDays)
	var newly []ids.Address
	if dues {
		for _, s := range d.shops {
			d.metrics.ObserveDuesPayment(s.PayDues(d.ledger))
		}
		newly, _ = d.ledger.CheckPayments(d.ledger.Owner(), day)
	}
	d.ledger.DecayReputation(d.ledger.Owner(), d.cfg.ReputationDecay)

	snapshot := report.Build(day, d.clock.Now(), d.ledger, d.customerAddrs, d.shopViews)
	snapshot.Claims = stats
	snapshot.PurchasesToday = purchases
	snapshot.DuesCollected = dues
	snapshot.NewlyBlacklisted = newly
	return snapshot, false
}

func (d *Driver) recycle(day int, cu Customer, shop Shop, stats *report.ClaimStats) {
	if !d.ledger.OpenClaim(shop.Address(), cu.Address()) {
		stats.Reject(string(ledger.ReasonNotPending))
		d.metrics.ObserveClaim(string(ledger.ReasonNotPending))
		return
	}
	stats.Opened++

	verifier := shop.Address()
	failed := d.claimFails()
	if failed {
		verifier = d.ledger.Owner()
	}
	v := d.ledger.VerifyClaim(verifier, cu.Address())
	d.metrics.ObserveClaim(string(v.Reason))
	if failed {
		stats.SimulatedFailures++
		d.logger.Info().Int("day", day).Int64("customer", int64(cu.Address())).Msg("claim failed")
	}
	if !v.Accepted {
		stats.Reject(string(v.Reason))
		return
	}

	stats.Accepted++
	stats.CoinsIssued += v.Coins
	stats.ReputationIssued += v.Reputation
	d.metrics.ObserveGrant(v.Coins, v.Reputation)

	cu.TransferCoin(v.Coins)
	if limit := d.ledger.ReputationLimit(); cu.Reputation(shop.Address()) > limit {
		cu.SetReputation(shop.Address(), limit)
	} else {
		cu.TransferReputation(v.Reputation, shop.Address())
	}
}

func (d *Driver) claimFails() bool {
	p := d.cfg.ClaimFailureProbability
	if p <= 0 {
		return false
	}
	return d.rng.Float64() < p
}

func (d *Driver) notifyStart(ctx context.Context) error {
	for _, o := range d.observers {
		if err := o.ObserveStart(ctx, d.summary); err != nil {
			return fmt.Errorf("observe start: %w", err)
		}
	}
	return nil
}

func (d *Driver) notifyDay(ctx context.Context, day report.Day) error {
	for _, o := range d.observers {
		if err := o.ObserveDay(ctx, day); err != nil {
			return fmt.Errorf("observe day %d: %w", day.Day, err)
		}
	}
	return nil
}

func (d *Driver) notifyFinish(ctx context.Context) error {
	var errs []error
	for _, o := range d.observers {
		if err := o.ObserveFinish(ctx, d.summary); err != nil {
			errs = append(errs, fmt.Errorf("observe finish: %w", err))
		}
	}
	return errors.Join(errs...)
}
