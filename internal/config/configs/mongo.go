package configs

import "time"

// Mongo holds configuration for connecting to MongoDB. URI is a full
// connection string accepted by the driver; Database names the database
// holding the campaign, order, performance and proof collections.
type Mongo struct {
	URI      string `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"DATABASE" envDefault:"admarket"`
	// ConnectTimeout bounds the initial connect-and-ping on startup.
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
}
