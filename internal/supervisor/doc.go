// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

/*
Package supervisor runs the service's long-lived components under a suture v4
supervisor tree.

	RootSupervisor ("levelstate")
	├── DataSupervisor ("data-layer")
	│   ├── JobService "stale-reaper"
	│   ├── JobService "transition-flusher"
	│   └── JobService "store-gc"
	├── MessagingSupervisor ("messaging-layer")
	│   └── PipelineService (NATS, stream, router)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer restarts its own services with backoff. A failing event pipeline
does not stop the reaper or the flusher, and the HTTP surface keeps serving
reads while the pipeline recovers.

Supervisor events are logged through sutureslog with the slog adapter from
internal/logging.
*/
package supervisor
