// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package schedule

import (
	"testing"
	"time"

	"github.com/tomtom215/marquee/internal/models"
)

func TestParseClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:05", 545, false},
		{"9:05", 545, false},
		{"23:59", 1439, false},
		{" 12:30 ", 750, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"1230", 0, true},
		{"12:3", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseClock(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestClock_String(t *testing.T) {
	t.Parallel()

	if got := MustParseClock("07:03").String(); got != "07:03" {
		t.Errorf("String() = %q", got)
	}
	at := time.Date(2026, 5, 1, 23, 30, 59, 0, time.UTC)
	if got := ClockOf(at).String(); got != "23:30" {
		t.Errorf("ClockOf = %q", got)
	}
}

// Normal windows include t iff start <= t < end, checked across every minute.
func TestWindow_NormalExhaustive(t *testing.T) {
	t.Parallel()

	w := Window{Start: MustParseClock("08:00"), End: MustParseClock("20:00")}
	for m := Clock(0); m < MinutesPerDay; m++ {
		want := m >= w.Start && m < w.End
		if got := w.Contains(m); got != want {
			t.Fatalf("Contains(%s) = %v, want %v", m, got, want)
		}
	}
}

// Wrapping windows include t iff t >= start or t < end.
func TestWindow_WrapExhaustive(t *testing.T) {
	t.Parallel()

	w := Window{Start: MustParseClock("23:30"), End: MustParseClock("00:15")}
	if !w.Wraps() {
		t.Fatal("expected wrapping window")
	}
	for m := Clock(0); m < MinutesPerDay; m++ {
		want := m >= w.Start || m < w.End
		if got := w.Contains(m); got != want {
			t.Fatalf("Contains(%s) = %v, want %v", m, got, want)
		}
	}
}

func TestWindow_EmptyNeverActive(t *testing.T) {
	t.Parallel()

	w := Window{Start: MustParseClock("10:00"), End: MustParseClock("10:00")}
	for m := Clock(0); m < MinutesPerDay; m++ {
		if w.Contains(m) {
			t.Fatalf("start == end window active at %s", m)
		}
	}
}

func TestWindow_Boundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end string
		now        string
		want       bool
	}{
		{"start inclusive", "09:00", "16:00", "09:00", true},
		{"end exclusive", "09:00", "16:00", "16:00", false},
		{"before start", "09:00", "16:00", "08:59", false},
		{"wrap late evening", "23:30", "00:00", "23:45", true},
		{"wrap end exclusive at midnight", "23:30", "00:00", "00:00", false},
		{"wrap early morning", "22:00", "06:00", "05:59", true},
		{"wrap midday", "22:00", "06:00", "12:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, err := ParseWindow(tt.start, tt.end)
			if err != nil {
				t.Fatal(err)
			}
			if got := w.Contains(MustParseClock(tt.now)); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestResolveActive_GreatestStartWins(t *testing.T) {
	t.Parallel()

	playlists := []models.Playlist{
		{ID: "morning", StartTime: "09:00", EndTime: "23:59"},
		{ID: "late", StartTime: "23:30", EndTime: "02:00"},
	}
	got, ok := ResolveActive(playlists, MustParseClock("23:45"))
	if !ok {
		t.Fatal("expected an active playlist")
	}
	if got.ID != "late" {
		t.Errorf("resolved %s, want late (23:30 start)", got.ID)
	}

	// Input order must not matter.
	playlists[0], playlists[1] = playlists[1], playlists[0]
	got, _ = ResolveActive(playlists, MustParseClock("23:45"))
	if got.ID != "late" {
		t.Errorf("resolved %s after reorder, want late", got.ID)
	}
}

func TestResolveActive_TieBreakByID(t *testing.T) {
	t.Parallel()

	playlists := []models.Playlist{
		{ID: "pl-b", StartTime: "08:00", EndTime: "18:00"},
		{ID: "pl-a", StartTime: "08:00", EndTime: "12:00"},
		{ID: "pl-c", StartTime: "08:00", EndTime: "20:00"},
	}
	for i := 0; i < 3; i++ {
		got, ok := ResolveActive(playlists, MustParseClock("10:00"))
		if !ok || got.ID != "pl-a" {
			t.Fatalf("rotation %d: resolved %v, want pl-a", i, got)
		}
		playlists = append(playlists[1:], playlists[0])
	}
}

func TestResolveActive_None(t *testing.T) {
	t.Parallel()

	if _, ok := ResolveActive(nil, 0); ok {
		t.Error("nil input should resolve to none")
	}
	playlists := []models.Playlist{
		{ID: "day", StartTime: "08:00", EndTime: "20:00"},
		{ID: "broken", StartTime: "8am", EndTime: "20:00"},
		{ID: "empty", StartTime: "12:00", EndTime: "12:00"},
	}
	if got, ok := ResolveActive(playlists, MustParseClock("21:00")); ok {
		t.Errorf("expected none at 21:00, got %s", got.ID)
	}
	if got, _ := ResolveActive(playlists, MustParseClock("12:00")); got.ID != "day" {
		t.Errorf("expected day at 12:00, got %s", got.ID)
	}
}

func TestResolveActive_AliasesInput(t *testing.T) {
	t.Parallel()

	playlists := []models.Playlist{{ID: "p", Name: "before", StartTime: "00:00", EndTime: "23:59"}}
	got, _ := ResolveActive(playlists, MustParseClock("12:00"))
	got.Name = "after"
	if playlists[0].Name != "after" {
		t.Error("ResolveActive should return a pointer into the input slice")
	}
}

func TestCountActive(t *testing.T) {
	t.Parallel()

	playlists := []models.Playlist{
		{ID: "a", StartTime: "08:00", EndTime: "20:00"},
		{ID: "b", StartTime: "22:00", EndTime: "06:00"},
		{ID: "c", StartTime: "11:00", EndTime: "13:00"},
		{ID: "d", StartTime: "bad", EndTime: "13:00"},
	}
	if got := CountActive(playlists, MustParseClock("12:00")); got != 2 {
		t.Errorf("CountActive(12:00) = %d, want 2", got)
	}
	if got := CountActive(playlists, MustParseClock("23:00")); got != 1 {
		t.Errorf("CountActive(23:00) = %d, want 1", got)
	}
}
