package civicache

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Defaults applied by [New] for zero [Options] fields.
const (
	DefaultGraceWindow  = time.Second
	DefaultTempIDPrefix = "tmp-"
)

// Options configures a [Cache]. The zero value is usable.
type Options struct {
	// Store holds all cached values. Defaults to [NewMemStore].
	Store Store

	// Logger receives diagnostics (cache misses at debug level).
	// Defaults to a no-op logger.
	Logger *zap.Logger

	// Registerer receives the cache's metrics. Nil leaves them unregistered.
	// Registering two caches with the same Registerer panics.
	Registerer prometheus.Registerer

	// Normalizer recomputes derived display fields. Defaults to
	// [DefaultNormalizer].
	Normalizer Normalizer

	// Clock drives the swap grace window and pending expiry.
	// Defaults to wall-clock time.
	Clock Clock

	// GraceWindow is how long the detail record under a temporary ID stays
	// readable after it was swapped for the server ID. Zero means
	// [DefaultGraceWindow]; use a negative value to delete immediately.
	GraceWindow time.Duration

	// PendingTTL fails optimistic entities that were neither confirmed nor
	// failed within this duration. Zero disables expiry.
	PendingTTL time.Duration

	// ResolvedStatus is the status that counts as resolved in [Stats].
	// Defaults to [StatusResolved].
	ResolvedStatus string

	// TempIDPrefix prefixes IDs returned by [Cache.NewTempID].
	// Defaults to [DefaultTempIDPrefix].
	TempIDPrefix string
}

// Validate reports whether the options are usable.
func (o Options) Validate() error {
	if o.PendingTTL < 0 {
		return fmt.Errorf("%w: pending TTL must not be negative (got %s)", ErrInvalidOptions, o.PendingTTL)
	}

	return nil
}

func (o Options) withDefaults() Options {
	if o.Store == nil {
		o.Store = NewMemStore()
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	if o.Normalizer == nil {
		o.Normalizer = DefaultNormalizer{}
	}

	if o.Clock == nil {
		o.Clock = wallClock{}
	}

	switch {
	case o.GraceWindow == 0:
		o.GraceWindow = DefaultGraceWindow
	case o.GraceWindow < 0:
		o.GraceWindow = 0
	}

	if o.ResolvedStatus == "" {
		o.ResolvedStatus = StatusResolved
	}

	if o.TempIDPrefix == "" {
		o.TempIDPrefix = DefaultTempIDPrefix
	}

	return o
}

// Clock abstracts time for the grace window and expiry timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
