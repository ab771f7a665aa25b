package api

// Route paths served outside of huma.
const (
	eventsPath = "/api/v1/events"
	coversPath = "/api/v1/covers/{name}"
)

// Cache-Control header values.
const (
	CacheOneWeek = "public, max-age=604800"
	CacheNoStore = "no-cache"
)
