// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

/*
Package eventprocessor moves player events and level changes over NATS
JetStream using Watermill.

# Topics

	events.enriched   batches of tab-separated enriched event records
	presence.changes  JSON models.LevelChange records (stream change mode)
	events.poison     messages that exhausted their retries

All three subjects live in one stream, PLAYER_EVENTS, created by
StreamInitializer before any publisher or subscriber starts.

# Message flow

	events.enriched ──► EventBatchHandler ──► presence.Updater
	                                              │
	                          ┌───────────────────┴──────────────┐
	                  changes.mode=direct               changes.mode=stream
	                          │                                  │
	                   presence.Recorder             ChangePublisher ──► presence.changes
	                                                                         │
	                                                       ChangeHandler ◄───┘
	                                                             │
	                                                     presence.Recorder

# Error handling

A record that fails to decode is logged and skipped; the rest of the batch
is still applied. A store.ErrStoreUnavailable fails the whole message, which
the Router's Retry middleware retries and JetStream later redelivers. Since
presence updates are monotonic and counter deltas are exactly-once,
reprocessing a batch is harmless. Messages that can never succeed return a
PermanentError and are routed to the poison topic.
*/
package eventprocessor
