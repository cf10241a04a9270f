package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"reusability-token/internal/ids"
)

// SimConfig holds the market parameters of one run. Limits and the payment
// period are applied to the ledger by its owner before the first day.
type SimConfig struct {
	Iterations              int       `env:"NUM_ITERATIONS" envDefault:"100"`
	Customers               int       `env:"NUM_CUSTOMERS" envDefault:"100"`
	Shops                   int       `env:"NUM_SHOPS" envDefault:"5"`
	CoinLimit               float64   `env:"COIN_LIMIT" envDefault:"200"`
	ReputationLimit         float64   `env:"REPUTATION_LIMIT" envDefault:"100"`
	CoinsPerReputationToken float64   `env:"COINS_PER_REPUTATION_TOKEN" envDefault:"1"`
	PaymentDueDays          int       `env:"PAYMENT_DUE_DAYS" envDefault:"30"`
	ClaimFailureProbability float64   `env:"CLAIM_FAILURE_PROBABILITY" envDefault:"0.00001"`
	ReputationDecay         float64   `env:"REPUTATION_DECAY" envDefault:"30"`
	CustomerMix             []float64 `env:"CUSTOMER_MIX" envDefault:"0.3,0.1,0.6" envSeparator:","`
	// Seed 0 picks a time based seed.
	Seed         uint64 `env:"SEED" envDefault:"0"`
	PaymentCheck string `env:"PAYMENT_CHECK" envDefault:"reference"`
	DuesSchedule string `env:"DUES_SCHEDULE" envDefault:"reference"`
}

func LoadSim() (SimConfig, error) {
	var cfg SimConfig
	if err := env.Parse(&cfg); err != nil {
		return SimConfig{}, err
	}
	return cfg, nil
}

// Validate is separate from LoadSim so command line overrides can be applied
// first.
func (c SimConfig) Validate() error {
	switch {
	case c.Iterations < 0:
		return fmt.Errorf("%w: NUM_ITERATIONS %d", ErrInvalidConfig, c.Iterations)
	case c.Customers < 0:
		return fmt.Errorf("%w: NUM_CUSTOMERS %d", ErrInvalidConfig, c.Customers)
	case c.Shops < 1 || c.Shops > ids.MaxShops:
		return fmt.Errorf("%w: NUM_SHOPS %d", ErrInvalidConfig, c.Shops)
	case c.CoinLimit <= 0:
		return fmt.Errorf("%w: COIN_LIMIT %v", ErrInvalidConfig, c.CoinLimit)
	case c.ReputationLimit <= 0:
		return fmt.Errorf("%w: REPUTATION_LIMIT %v", ErrInvalidConfig, c.ReputationLimit)
	case c.CoinsPerReputationToken < 0:
		return fmt.Errorf("%w: COINS_PER_REPUTATION_TOKEN %v", ErrInvalidConfig, c.CoinsPerReputationToken)
	case c.PaymentDueDays < 1:
		return fmt.Errorf("%w: PAYMENT_DUE_DAYS %d", ErrInvalidConfig, c.PaymentDueDays)
	case c.ClaimFailureProbability < 0 || c.ClaimFailureProbability > 1:
		return fmt.Errorf("%w: CLAIM_FAILURE_PROBABILITY %v", ErrInvalidConfig, c.ClaimFailureProbability)
	case c.ReputationDecay < 0:
		return fmt.Errorf("%w: REPUTATION_DECAY %v", ErrInvalidConfig, c.ReputationDecay)
	case len(c.CustomerMix) != 3:
		return fmt.Errorf("%w: CUSTOMER_MIX needs good,bad,neutral weights", ErrInvalidConfig)
	case c.PaymentCheck != "reference" && c.PaymentCheck != "overdue":
		return fmt.Errorf("%w: PAYMENT_CHECK %q", ErrInvalidConfig, c.PaymentCheck)
	case c.DuesSchedule != "reference" && c.DuesSchedule != "period":
		return fmt.Errorf("%w: DUES_SCHEDULE %q", ErrInvalidConfig, c.DuesSchedule)
	}
	return nil
}
