package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reusability-token/internal/agents"
	"reusability-token/internal/archive"
	"reusability-token/internal/clock"
	"reusability-token/internal/config"
	"reusability-token/internal/ids"
	"reusability-token/internal/ledger"
	"reusability-token/internal/metrics"
	"reusability-token/internal/registry"
	"reusability-token/internal/report"
	"reusability-token/internal/sim"
	httptransport "reusability-token/internal/transport/http"
)

type market struct {
	owner     ids.Address
	ledger    *ledger.Ledger
	clock     *clock.Clock
	customers []sim.Customer
	shops     []sim.Shop
	census    agents.Census
}

// buildMarket creates the population and a ledger configured by its owner.
func buildMarket(cfg config.SimConfig, rng *rand.Rand) (*market, error) {
	owner := ids.OwnerAddress(rng.IntN)
	reg := registry.New()
	clk := clock.New()
	l := ledger.New(owner)

	population, census, err := agents.NewCustomers(cfg.Customers, cfg.CustomerMix, ids.NewAllocator(), rng)
	if err != nil {
		return nil, err
	}
	m := &market{owner: owner, ledger: l, clock: clk, census: census}
	for _, c := range population {
		m.customers = append(m.customers, c)
	}
	for _, s := range agents.NewShops(cfg.Shops, ids.NewAllocator()) {
		reg.RegisterNewShop(s.Address())
		m.shops = append(m.shops, s)
	}

	applied := l.SetOracles(owner, reg, clk) &&
		l.SetCoinLimit(owner, cfg.CoinLimit) &&
		l.SetReputationLimit(owner, cfg.ReputationLimit) &&
		l.SetPaymentDuration(owner, cfg.PaymentDueDays) &&
		l.SetCoinsPerReputationToken(owner, cfg.CoinsPerReputationToken) &&
		l.SetPaymentCheck(owner, ledger.PaymentCheck(cfg.PaymentCheck))
	if !applied {
		return nil, fmt.Errorf("%w: ledger rejected owner configuration", config.ErrInvalidConfig)
	}
	return m, nil
}

func run(ctx context.Context, cfg config.AppConfig, out io.Writer) (sim.Result, error) {
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	m, err := buildMarket(cfg.Sim, rng)
	if err != nil {
		return sim.Result{}, err
	}
	log.Info().
		Int("gc", m.census[agents.KindGood]).
		Int("bc", m.census[agents.KindBad]).
		Int("nc", m.census[agents.KindNeutral]).
		Msg("customer population")

	rec := report.NewRecorder(cfg.Report.FeedBuffer)
	defer rec.Feed().Close()
	observers := []report.Observer{rec, report.NewLogObserver(log.Logger)}

	if cfg.Report.SQLitePath != "" {
		db, err := archive.OpenSQLite(cfg.Report.SQLitePath)
		if err != nil {
			return sim.Result{}, err
		}
		defer db.Close()
		observers = append(observers, db)
	}
	if cfg.Report.PostgresDSN != "" {
		pg, err := archive.OpenPostgres(ctx, cfg.Report.PostgresDSN)
		if err != nil {
			return sim.Result{}, err
		}
		defer pg.Close()
		observers = append(observers, pg)
	}

	var srv *http.Server
	if cfg.Report.HTTPAddr != "" {
		srv = newReportServer(cfg.Report.HTTPAddr, rec)
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("http listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	driver, err := sim.New(sim.Config{
		Iterations:              cfg.Sim.Iterations,
		PaymentDueDays:          cfg.Sim.PaymentDueDays,
		ClaimFailureProbability: cfg.Sim.ClaimFailureProbability,
		ReputationDecay:         cfg.Sim.ReputationDecay,
		DuesSchedule:            sim.DuesSchedule(cfg.Sim.DuesSchedule),
	}, m.ledger, m.clock, m.customers, m.shops, rng,
		sim.WithObservers(observers...),
		sim.WithMetrics(metrics.Sim()),
		sim.WithSummary(newSummary(cfg.Sim, seed, m.census)),
	)
	if err != nil {
		return sim.Result{}, err
	}
	res, err := driver.Run(ctx)
	if err != nil {
		return res, err
	}
	printBanner(out, res)

	if srv != nil {
		log.Info().Msg("run finished; serving reports until interrupted")
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return res, nil
}

// newReportServer serves the recorder over HTTP. Shutdown closes the feed so
// streaming clients return instead of holding the server open.
func newReportServer(addr string, rec *report.Recorder) *http.Server {
	r := httptransport.NewRouter(rec)
	httptransport.LogRoutes(r)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv.RegisterOnShutdown(rec.Feed().Close)
	return srv
}

func newSummary(cfg config.SimConfig, seed uint64, census agents.Census) report.Summary {
	counts := make(map[string]int, len(agents.Kinds))
	for _, k := range agents.Kinds {
		counts[string(k)] = census[k]
	}
	return report.Summary{
		RunID: ids.NewRunID(),
		Seed:  seed,
		Params: report.Params{
			Iterations:              cfg.Iterations,
			Customers:               cfg.Customers,
			Shops:                   cfg.Shops,
			CoinLimit:               cfg.CoinLimit,
			ReputationLimit:         cfg.ReputationLimit,
			CoinsPerReputationToken: cfg.CoinsPerReputationToken,
			PaymentDueDays:          cfg.PaymentDueDays,
			ClaimFailureProbability: cfg.ClaimFailureProbability,
			ReputationDecay:         cfg.ReputationDecay,
			CustomerMix:             cfg.CustomerMix,
			PaymentCheck:            cfg.PaymentCheck,
			DuesSchedule:            cfg.DuesSchedule,
		},
		Census: counts,
	}
}

func printBanner(w io.Writer, res sim.Result) {
	rule := "\n" + strings.Repeat("*", 15) + "\n\n"
	fmt.Fprint(w, rule)
	switch res.Outcome {
	case report.OutcomeHalted:
		fmt.Fprintln(w, "Tough luck. No shop earned enough coin to pay their dues.")
		fmt.Fprintf(w, "The experiment ran for %d days.\n", res.Days)
	case report.OutcomeInterrupted:
		fmt.Fprintf(w, "The experiment was interrupted after %d days.\n", res.Days)
	default:
		fmt.Fprintln(w, "Customers recycled their goods and shops paid their dues.")
		fmt.Fprintf(w, "The experiment ran successfully for %d days.\n", res.Days)
	}
	fmt.Fprint(w, rule)
}
