package dispatch

import (
	"fmt"
	"time"
)

// Config defines dispatch-related settings.
type Config struct {
	// OfferTTLMinutes is how long an offer stays open before expiring.
	OfferTTLMinutes int `json:"offer_ttl_minutes"`
	// MaxAttempts is the number of offer cycles before a job is flagged
	// for manual assignment.
	MaxAttempts int `json:"max_attempts"`
	// WindowDays is the horizon within which a job is eligible for
	// automatic offer creation.
	WindowDays int `json:"window_days"`
	// MinNoticeHours is the minimum lead time before the scheduled
	// start for an offer cycle to be worthwhile.
	MinNoticeHours int `json:"min_notice_hours"`
	// SweepIntervalSeconds is the cadence of the expiry sweeper.
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`
}

// SetDefaults applies the standard dispatch parameters.
func (c *Config) SetDefaults() {
	if c.OfferTTLMinutes == 0 {
		c.OfferTTLMinutes = 30
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.WindowDays == 0 {
		c.WindowDays = 14
	}
	if c.MinNoticeHours == 0 {
		c.MinNoticeHours = 2
	}
	if c.SweepIntervalSeconds == 0 {
		c.SweepIntervalSeconds = 60
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.OfferTTLMinutes < 0 || c.MaxAttempts < 0 || c.WindowDays < 0 ||
		c.MinNoticeHours < 0 || c.SweepIntervalSeconds < 0 {
		return fmt.Errorf("dispatch settings must not be negative")
	}
	return nil
}

// OfferTTL returns the offer lifetime as a duration.
func (c Config) OfferTTL() time.Duration {
	return time.Duration(c.OfferTTLMinutes) * time.Minute
}

// Window returns the dispatch horizon as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// MinNotice returns the minimum lead time as a duration.
func (c Config) MinNotice() time.Duration {
	return time.Duration(c.MinNoticeHours) * time.Hour
}

// SweepInterval returns the sweeper cadence as a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
