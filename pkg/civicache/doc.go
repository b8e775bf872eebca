// Package civicache is the normalized client-side cache behind the civic
// incident map: reports, their comments, and the global stats counters.
//
// Every entity lives exactly once, in its detail record. List views (one per
// distinct query the UI has run) hold only IDs and are projected back into
// entities with [Cache.HydrateReports] and [Cache.HydrateComments]. Writes
// coming from the UI are applied optimistically and reconciled later, when
// the server has assigned a real identity.
//
// # Basic Usage
//
//	c, err := civicache.New(civicache.Options{Logger: logger})
//	if err != nil {
//	    // only invalid options fail
//	}
//	defer c.Close()
//
//	// Hydrate from a fetch.
//	c.SetReportList("map", civicache.Filter{Discriminator: "20,0,20,0"}, reports)
//
//	// Optimistic comment, confirmed once the server answers.
//	tmp := c.CreatePendingComment(civicache.Comment{ReportID: "r-42", Body: "+1"})
//	c.ConfirmComment(tmp, "c-900")
//
// # Failure Semantics
//
// Cache operations never return errors. A patch or delta against an entity
// that is not cached is skipped and logged at debug level, because the cache
// is a derived view and staleness against the network is the normal state.
//
// # Concurrency
//
// All operations are serialized by one mutex and are atomic with respect to
// each other. Listeners registered with [Store.Subscribe] run after the
// operation has released the lock, so they may call back into the cache.
//
// There is no protection against a stale network response overwriting a
// newer optimistic value; callers sequence dependent mutations themselves.
package civicache
