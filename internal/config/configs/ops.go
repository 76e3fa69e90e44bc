package configs

// Ops configures the operational HTTP endpoint serving health and metrics.
// The application itself exposes no HTTP API; this listener exists for
// probes and Prometheus scrapes only.
type Ops struct {
	// Port is the TCP port the ops server listens on. Defaults to 8080.
	Port uint16 `env:"PORT" envDefault:"8080"`
}
