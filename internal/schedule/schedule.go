// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package schedule decides which playlist is active at a wall-clock instant.
//
// The same resolver runs on the registry (fleet overview counts) and on every
// player (local playback selection), so the two can never disagree.
//
// Windows are daily "HH:MM" pairs in device-local time:
//
//	start < end   active when start <= now < end
//	start > end   wraps midnight, active when now >= start or now < end
//	start == end  never active
//
// When several windows contain now, the greatest start time wins. Equal start
// times fall back to the lexicographically smallest playlist id.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/marquee/internal/models"
)

// Clock is a minute-of-day in [0, 1440).
type Clock int

// MinutesPerDay bounds Clock.
const MinutesPerDay = 24 * 60

// ParseClock parses "HH:MM" (24h). Single-digit hours ("9:05") are accepted.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return 0, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock(h*60 + m), nil
}

// MustParseClock is ParseClock for constants and tests.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the minute-of-day of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// String formats c as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window is a daily time window.
type Window struct {
	Start Clock
	End   Clock
}

// ParseWindow parses a start/end pair.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: s, End: e}, nil
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool {
	return w.Start > w.End
}

// Contains applies the wrap-aware rule.
func (w Window) Contains(now Clock) bool {
	switch {
	case w.Start < w.End:
		return now >= w.Start && now < w.End
	case w.Start > w.End:
		return now >= w.Start || now < w.End
	default:
		return false
	}
}

// IsActive reports whether p's window contains now. Playlists with malformed
// times are never active.
func IsActive(p *models.Playlist, now Clock) bool {
	w, err := ParseWindow(p.StartTime, p.EndTime)
	if err != nil {
		return false
	}
	return w.Contains(now)
}

// ResolveActive returns the single active playlist at now, or false when none
// is active. The returned pointer aliases an element of playlists.
func ResolveActive(playlists []models.Playlist, now Clock) (*models.Playlist, bool) {
	var (
		best      *models.Playlist
		bestStart Clock
	)
	for i := range playlists {
		p := &playlists[i]
		w, err := ParseWindow(p.StartTime, p.EndTime)
		if err != nil || !w.Contains(now) {
			continue
		}
		if best == nil || w.Start > bestStart || (w.Start == bestStart && p.ID < best.ID) {
			best, bestStart = p, w.Start
		}
	}
	return best, best != nil
}

// CountActive returns how many playlists have a window containing now.
func CountActive(playlists []models.Playlist, now Clock) int {
	n := 0
	for i := range playlists {
		if IsActive(&playlists[i], now) {
			n++
		}
	}
	return n
}
