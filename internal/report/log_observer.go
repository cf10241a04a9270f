package report

import (
	"context"

	"github.com/rs/zerolog"
)

// LogObserver writes one debug line per day and an info line per outcome.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) ObserveStart(_ context.Context, s Summary) error {
	o.logger.Info().
		Str("run_id", s.RunID).
		Uint64("seed", s.Seed).
		Int("customers", s.Params.Customers).
		Int("shops", s.Params.Shops).
		Int("iterations", s.Params.Iterations).
		Interface("census", s.Census).
		Msg("simulation started")
	return nil
}

func (o *LogObserver) ObserveDay(_ context.Context, d Day) error {
	ev := o.logger.Debug().
		Int("day", d.Day).
		Int("claims_opened", d.Claims.Opened).
		Int("claims_accepted", d.Claims.Accepted).
		Interface("claims_rejected", d.Claims.Rejected).
		Int("purchases", d.PurchasesToday).
		Float64("shop_reputation_total", d.TotalShopReputation()).
		Int("blacklisted", len(d.Blacklisted)).
		Bool("dues_collected", d.DuesCollected)
	if top := d.TopCustomers(1); len(top) == 1 {
		ev = ev.Int64("top_customer", int64(top[0].Address)).Float64("top_customer_reputation", top[0].Value)
	}
	ev.Msg("day finished")
	for _, shop := range d.NewlyBlacklisted {
		o.logger.Warn().Int("day", d.Day).Int64("shop", int64(shop)).Msg("shop blacklisted for missed dues")
	}
	return nil
}

func (o *LogObserver) ObserveFinish(_ context.Context, s Summary) error {
	o.logger.Info().
		Str("run_id", s.RunID).
		Str("outcome", string(s.Outcome)).
		Int("days_run", s.DaysRun).
		Msg("simulation finished")
	return nil
}
