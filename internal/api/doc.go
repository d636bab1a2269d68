// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

/*
Package api serves the operational HTTP surface of levelstate.

Routes:

	GET  /metrics                        Prometheus exposition
	GET  /api/v1/health/live             process liveness
	GET  /api/v1/health/ready            component readiness (store, NATS, stream)
	GET  /api/v1/levels                  paginated level populations
	GET  /api/v1/levels/{levelID}        one level population
	GET  /api/v1/players/{playerID}      one presence row
	GET  /api/v1/transitions             paginated unflushed transition counters
	POST /api/v1/maintenance/flush       run the transition flusher now
	POST /api/v1/maintenance/reap        run the stale presence reaper now

Read routes page with the page_size and page_token query parameters; the
next_token of a response continues the scan. Maintenance routes are rate
limited per client IP and run the same scheduler job as the background
loop, so a manual run never overlaps a scheduled one.

Every response uses the models.APIResponse envelope.
*/
package api
