package civicache_test

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/calvinalkan/civicache/internal/vclock"
	"github.com/calvinalkan/civicache/pkg/civicache"
)

const testGrace = 500 * time.Millisecond

type testCache struct {
	*civicache.Cache

	clock *vclock.Clock
	logs  *observer.ObservedLogs
}

// newTestCache returns a cache on a manual clock with debug logs captured.
// opts may adjust the options before the cache is built.
func newTestCache(t *testing.T, opts ...func(*civicache.Options)) *testCache {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	clock := vclock.NewClock()

	o := civicache.Options{
		Logger:      zap.New(core),
		Clock:       clock,
		GraceWindow: testGrace,
	}

	for _, fn := range opts {
		fn(&o)
	}

	c, err := civicache.New(o)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	t.Cleanup(c.Close)

	return &testCache{Cache: c, clock: clock, logs: logs}
}

func newReport(id string, lat, lng float64) civicache.Report {
	return civicache.Report{
		ID:       id,
		Title:    "Report " + id,
		Category: "baches",
		Status:   civicache.StatusPending,
		Lat:      lat,
		Lng:      lng,
	}
}

func mustReport(t *testing.T, c *testCache, id string) civicache.Report {
	t.Helper()

	r, presence := c.Report(id)
	if presence != civicache.Present {
		t.Fatalf("report %s presence = %s, want present", id, presence)
	}

	return r
}

func mustList(t *testing.T, c *testCache, key civicache.Key) []string {
	t.Helper()

	ids, presence := c.List(key)
	if presence != civicache.Present {
		t.Fatalf("list %s presence = %s, want present", key, presence)
	}

	return ids
}

func ptr[T any](v T) *T {
	return &v
}
