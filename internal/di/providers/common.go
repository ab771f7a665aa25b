package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// sortLocale drives title collation for shelves and search results.
	sortLocale = "fr"
)
