// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"sort"

	"github.com/tomtom215/earmark/internal/models"
)

const (
	sessionGapMs = 30 * msPerMinute
	minRunLength = 5
)

// sessionRun is a maximal sequence of same-artist plays with no gap longer
// than sessionGapMs between one play's end and the next play's start.
type sessionRun struct {
	Artist string
	Length int
}

// runFold is the state carried through the scan.
type runFold struct {
	artist  string
	length  int
	lastEnd int64
	runs    []sessionRun
}

func (f *runFold) step(e models.TimelineEntry) {
	if f.length > 0 && (e.Artist != f.artist || e.StartedAt-f.lastEnd > sessionGapMs) {
		f.flush()
	}
	if f.length == 0 {
		f.artist = e.Artist
	}
	f.length++
	f.lastEnd = e.StartedAt + e.DurationMs
}

func (f *runFold) flush() {
	if f.length >= minRunLength {
		f.runs = append(f.runs, sessionRun{Artist: f.artist, Length: f.length})
	}
	f.artist = ""
	f.length = 0
}

// findSessionRuns folds a chronologically ordered timeline into the runs of
// at least minRunLength plays, including a trailing open run.
func findSessionRuns(timeline []models.TimelineEntry) []sessionRun {
	var f runFold
	for _, e := range timeline {
		f.step(e)
	}
	f.flush()
	return f.runs
}

// summarizeRuns returns the average run length and the artist with the most
// runs. Ties go to the artist whose runs total more plays, then by name.
func summarizeRuns(runs []sessionRun) (avg float64, topArtist string) {
	if len(runs) == 0 {
		return 0, ""
	}

	type tally struct {
		artist string
		runs   int
		plays  int
	}
	byArtist := make(map[string]*tally)
	total := 0
	for _, r := range runs {
		total += r.Length
		t, ok := byArtist[r.Artist]
		if !ok {
			t = &tally{artist: r.Artist}
			byArtist[r.Artist] = t
		}
		t.runs++
		t.plays += r.Length
	}

	tallies := make([]*tally, 0, len(byArtist))
	for _, t := range byArtist {
		tallies = append(tallies, t)
	}
	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].runs != tallies[j].runs {
			return tallies[i].runs > tallies[j].runs
		}
		if tallies[i].plays != tallies[j].plays {
			return tallies[i].plays > tallies[j].plays
		}
		return tallies[i].artist < tallies[j].artist
	})

	return float64(total) / float64(len(runs)), tallies[0].artist
}
