package geolocation

import "time"

// Fix represents a single geographical reading. Accuracy, Heading and Speed
// are optional: nil means the source did not report them.
type Fix struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64 // meters
	Heading   *float64 // degrees, 0-360
	Speed     *float64 // meters per second
	Time      time.Time
}

// Event is one item on a watch stream: a fix, or a non-fatal read error.
// A stream is never terminated by an error event; the consumer decides
// whether to keep listening.
type Event struct {
	Fix Fix
	Err error
}

// WatchOptions configures continuous monitoring.
type WatchOptions struct {
	HighAccuracy bool          // request the best accuracy the source offers
	Timeout      time.Duration // a reading is stale after this much silence
	MaximumAge   time.Duration // reuse a cached fix younger than this
}

// DefaultWatchOptions are the values used for unset fields.
var DefaultWatchOptions = WatchOptions{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaximumAge:   5 * time.Second,
}

func (o WatchOptions) withDefaults() WatchOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultWatchOptions.Timeout
	}
	if o.MaximumAge <= 0 {
		o.MaximumAge = DefaultWatchOptions.MaximumAge
	}
	return o
}
