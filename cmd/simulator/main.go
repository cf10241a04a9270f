package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"reusability-token/internal/config"
	"reusability-token/internal/logging"
)

type cliFlags struct {
	iterations int
	customers  int
	shops      int
	seed       uint64
	httpAddr   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("simulator failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags cliFlags
	cmd := &cobra.Command{
		Use:   "simulator",
		Short: "Simulate a recycling market rewarded with reusability tokens",
		Long: `Runs a day-by-day market where customers recycle goods at shops, earn
coins and reputation from the ledger, and shops must keep paying dues to stay
off the blacklist. Settings come from the environment; flags override them.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadApp()
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Sim.Validate(); err != nil {
				return err
			}
			closer, err := logging.Init(cfg.Log)
			if err != nil {
				return err
			}
			defer closer.Close()

			_, err = run(cmd.Context(), cfg, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().IntVar(&flags.iterations, "num_iterations", 100, "number of simulated days")
	cmd.Flags().IntVar(&flags.customers, "num_customers", 100, "number of customers in the market")
	cmd.Flags().IntVar(&flags.shops, "num_shops", 5, "number of shops in the market")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "random seed, 0 picks one from the clock")
	cmd.Flags().StringVar(&flags.httpAddr, "http_addr", "", "serve reports on this address while and after the run")
	return cmd
}

// apply copies flags the user actually set over the environment config.
func (f cliFlags) apply(cmd *cobra.Command, cfg *config.AppConfig) {
	changed := cmd.Flags().Changed
	if changed("num_iterations") {
		cfg.Sim.Iterations = f.iterations
	}
	if changed("num_customers") {
		cfg.Sim.Customers = f.customers
	}
	if changed("num_shops") {
		cfg.Sim.Shops = f.shops
	}
	if changed("seed") {
		cfg.Sim.Seed = f.seed
	}
	if changed("http_addr") {
		cfg.Report.HTTPAddr = f.httpAddr
	}
}
