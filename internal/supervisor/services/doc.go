// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package services adapts the service's components to suture.Service.
//
// Every wrapper follows the same shape: start the component, block until the
// context is canceled, stop the component, return ctx.Err(). A start failure
// is returned immediately so suture restarts the service with backoff.
package services
