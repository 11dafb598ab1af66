package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "blokmap"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultReservationLockTTL bounds how long an abandoned advisory lock can
	// block a creation slot before the TTL monitor reaps it.
	DefaultReservationLockTTL = 10 * time.Second

	// DefaultCheckInGrace is how long after the last reserved block ends a
	// reservation may still be marked present or absent.
	DefaultCheckInGrace = 30 * time.Minute

	DefaultPaginationLimit = 25
)
