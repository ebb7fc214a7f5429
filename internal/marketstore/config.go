package marketstore

import "time"

// Config holds the window sizes DataStore trims history to. Defaults match
// spec §3/§6.7.
type Config struct {
	PriceWindow  time.Duration // velocity.windowMinutes, default 5m
	VolumeWindow time.Duration // volume.avgWindowMinutes, default 60m
	NewListingTTL time.Duration // default 1h
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PriceWindow:   5 * time.Minute,
		VolumeWindow:  60 * time.Minute,
		NewListingTTL: time.Hour,
	}
}
