// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package mediacache keeps local copies of playlist media on a player.

Each media item maps to exactly one file, <dir>/media_<id>.<ext>, where ext
is taken from the original upload name and defaults to "jpg". A file is only
ever visible under that name once it has been fully written: downloads go to
a temporary file in the same directory, are synced, and are renamed into
place. A failed download leaves nothing behind and reports
apperr.ErrPartialFetch; the caller plays the remote URL instead and tries
again on its next tick.

Concurrent Ensure calls for the same id share one download. Different ids
download independently.

The Index records which ids are cached so the player can rebuild its view of
the cache at startup without touching the network. RebuildIndex trusts the
filesystem over the index.
*/
package mediacache
