/*
Package workreg provides a keyed worker registry: given a key, it returns
a handle to a long-lived worker bound to that key, creating the worker on
first request and guaranteeing that concurrent requests for the same key
never produce two workers.

# Overview

A Registry serializes all creation decisions through a single coordinator
goroutine. Lookups for an absent key invoke a caller-supplied factory
exactly once; every concurrent caller for that key receives the same
handle. Each worker's termination is watched, and a dead worker's entry
is removed so the next lookup creates a fresh one.

	reg, err := workreg.Start[string, *Conn](workreg.Config{Name: "conns"})
	if err != nil {
	    log.Fatal(err)
	}
	defer reg.Stop(context.Background())

	conn, err := reg.LookupOrStart(ctx, "db-1", func() (*Conn, workreg.Identity, error) {
	    conn, err := dial("db-1")
	    if err != nil {
	        return nil, workreg.Identity{}, err
	    }
	    return conn, workreg.NewIdentity(conn.Closed()), nil
	})

The factory returns the handle plus an Identity built from a channel that
closes when the worker terminates. The registry interprets neither; the
handle is carried to callers, the identity only correlates termination
notifications back to the entry.

# Fast-read cache

With Config.FastReadCache enabled, resolved entries are mirrored into a
concurrently readable table, so repeat lookups of known keys skip the
coordinator entirely. The fast path does not re-verify liveness: a handle
may be returned in the short window between worker death and cleanup.
Callers taking the fast path handle a dead handle by retrying
LookupOrStart.

# Creation semantics

The factory runs on the coordinator's own turn. That is what serializes
concurrent creators, and it also means a slow factory stalls lookups for
unrelated keys that miss the cache. Serialize creation, not day-to-day
traffic: enable the fast-read cache for read-heavy workloads and keep
factories quick.

A caller's context expiring cancels only that caller's wait. A factory
call already in flight always finishes, and its entry is committed and
served to the next lookup.

# Supervision

The supervise subpackage provides an independent restart boundary for
workers, and Supervised returns a descriptor so an external supervision
tree can own restart of the registry itself. A restarted registry starts
empty: prior handles may still be alive, but the registry has forgotten
them.
*/
package workreg
