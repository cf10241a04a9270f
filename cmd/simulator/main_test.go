package main

import (
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reusability-token/internal/archive"
	"reusability-token/internal/config"
	"reusability-token/internal/ledger"
	"reusability-token/internal/report"
	"reusability-token/internal/sim"
)

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg, err := config.LoadApp()
	if err != nil {
		t.Fatalf("LoadApp: %v", err)
	}
	cfg.Sim.Iterations = 5
	cfg.Sim.Customers = 20
	cfg.Sim.Shops = 3
	cfg.Sim.Seed = 11
	return cfg
}

func TestBuildMarketConfiguresLedger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sim.PaymentCheck = "overdue"
	m, err := buildMarket(cfg.Sim, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatalf("buildMarket: %v", err)
	}
	if m.owner < 200000 || m.owner >= 3300000 {
		t.Fatalf("owner = %d outside the owner range", m.owner)
	}
	if m.ledger.CoinLimit() != 200 || m.ledger.ReputationLimit() != 100 || m.ledger.PaymentDueDays() != 30 {
		t.Fatalf("ledger limits not applied")
	}
	if m.ledger.PaymentCheck() != ledger.PaymentCheckOverdue {
		t.Fatalf("payment check = %s", m.ledger.PaymentCheck())
	}
	if len(m.customers) != 20 || len(m.shops) != 3 {
		t.Fatalf("population = %d customers, %d shops", len(m.customers), len(m.shops))
	}
	total := 0
	for _, n := range m.census {
		total += n
	}
	if total != 20 {
		t.Fatalf("census covers %d customers", total)
	}
}

func TestRunPrintsCompletionBanner(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	res, err := run(context.Background(), cfg, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res != (sim.Result{Outcome: report.OutcomeCompleted, Days: 5}) {
		t.Fatalf("result = %+v", res)
	}
	want := "\n***************\n\nCustomers recycled their goods and shops paid their dues.\n" +
		"The experiment ran successfully for 5 days.\n\n***************\n\n"
	if out.String() != want {
		t.Fatalf("banner = %q, want %q", out.String(), want)
	}
}

func TestRunPrintsHaltBanner(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sim.Shops = 1
	cfg.Sim.CustomerMix = []float64{1, 0, 0}
	cfg.Sim.PaymentDueDays = 1
	cfg.Sim.PaymentCheck = "overdue"
	cfg.Sim.DuesSchedule = "period"
	cfg.Sim.ReputationDecay = 0
	cfg.Sim.ClaimFailureProbability = 0
	cfg.Sim.Iterations = 10

	var out bytes.Buffer
	res, err := run(context.Background(), cfg, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != report.OutcomeHalted || res.Days != 3 {
		t.Fatalf("result = %+v, want halted after 3 days", res)
	}
	if !strings.Contains(out.String(), "Tough luck. No shop earned enough coin to pay their dues.\nThe experiment ran for 3 days.") {
		t.Fatalf("banner = %q", out.String())
	}
}

func TestRunArchivesToSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report.SQLitePath = filepath.Join(t.TempDir(), "runs.db")
	if _, err := run(context.Background(), cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	db, err := archive.OpenSQLite(cfg.Report.SQLitePath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	runs, err := db.Runs(context.Background())
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Outcome != "completed" || runs[0].DaysRun != 5 {
		t.Fatalf("archived runs = %+v", runs)
	}
	days, err := db.Days(context.Background(), runs[0].RunID)
	if err != nil || len(days) != 5 {
		t.Fatalf("archived days = %d, %v", len(days), err)
	}
}

func TestRootCommandFlagsOverrideEnv(t *testing.T) {
	t.Setenv("NUM_ITERATIONS", "50")
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--num_iterations", "2", "--num_customers", "5", "--num_shops", "2", "--seed", "3"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "ran successfully for 2 days") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--num_shops", "0"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected an error for zero shops")
	}
}

func TestReportServerShutdownEndsFeedStreams(t *testing.T) {
	rec := report.NewRecorder(8)
	srv := newReportServer("127.0.0.1:0", rec)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/feed/events")
	if err != nil {
		t.Fatalf("GET feed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Fatalf("stream did not end cleanly: %v", err)
	}
}
