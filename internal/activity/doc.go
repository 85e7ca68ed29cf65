// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package activity stores the operator-facing activity feed.

Activities are append-only records of fleet events: registrations, devices
coming online or going offline, playlist assignments and media uploads.
They are written by the fan-out activity sink after the primary mutation has
committed, so a failed write never undoes the change it describes.

Two Store implementations are provided:

  - MemoryStore: bounded in-memory ring, used in tests and when no database
    is configured.
  - DuckDBStore: persistent store sharing the registry's DuckDB connection.

Usage:

	store := activity.NewDuckDBStore(db.Conn())
	if err := store.CreateTable(ctx); err != nil {
	    return err
	}
	recent, err := store.Recent(ctx, 50)
*/
package activity
