package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "resort"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Lease lock defaults: the TTL must comfortably cover the reservation
	// write, the acquire timeout bounds how long a request may wait on a
	// contended key before the caller is told to retry.
	DefaultLockTTL            = 30 * time.Second
	DefaultLockAcquireTimeout = 5 * time.Second
	DefaultLockRetryInterval  = 100 * time.Millisecond

	DefaultLogLevel = "info"

	DefaultBookingEventsTopic = "booking-events"

	DefaultPaginationLimit = 100
)
