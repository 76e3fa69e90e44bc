package configs

import "time"

// Sweep configures the scheduled completion sweeps.
type Sweep struct {
	// Enabled turns the background sweeper on. Disable for one-shot tooling
	// that drives completion checks itself.
	Enabled bool `env:"ENABLED" envDefault:"true"`
	// Interval is the pause between sweep passes.
	Interval time.Duration `env:"INTERVAL" envDefault:"5m"`
	// ProofScope selects how order-level proofs count: "order-wide" (default,
	// they count toward every placement) or "placement".
	ProofScope string `env:"PROOF_SCOPE" envDefault:"order-wide"`
}
