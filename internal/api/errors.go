// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import "os"

// errNotFile is returned for directory lookups under /uploads/. It wraps
// os.ErrNotExist so http.FileServer answers 404.
var errNotFile = &os.PathError{Op: "open", Path: "/", Err: os.ErrNotExist}
