// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/earmark/internal/models"
)

// Archetype thresholds.
const (
	archetypeWindowDays = 30
	weekendWindowDays   = 28
	explorerWindowDays  = 7

	nightOwlShare        = 0.5
	morningShare         = 0.5
	commuteShare         = 0.3
	completionistRate    = 0.05
	skipperRate          = 0.4
	deepCutMinPlays      = 50
	loyalFanShare        = 0.5
	explorerMinArtists   = 5
	weekendShare         = 0.6
	wideTasteMinArtists  = 15
	wideTasteMaxTopShare = 0.15
	repeatTopSongs       = 3
	repeatShare          = 0.4
	albumMinRuns         = 3
)

var (
	nightHours   = []int{22, 23, 0, 1, 2, 3}
	morningHours = []int{5, 6, 7, 8}
	amCommute    = []int{7, 8}
	pmCommute    = []int{17, 18}
)

func sumHours(hist [24]int64, hours []int) int64 {
	var total int64
	for _, h := range hours {
		total += hist[h]
	}
	return total
}

func sumAll(hist [24]int64) int64 {
	var total int64
	for _, v := range hist {
		total += v
	}
	return total
}

// archetype builds a month-keyed candidate.
func (r *run) archetype(t Type, stats Stats) candidate {
	return candidate{Type: t, EntityKey: r.w.yearMonth, Stats: stats}
}

// detectTimeOfDay covers the night owl, morning and commute archetypes, which
// share one hourly histogram.
func detectTimeOfDay(ctx context.Context, r *run) ([]candidate, error) {
	hist, err := r.events.HourlyDuration(ctx, r.w.trailing(archetypeWindowDays), r.w.nowMs, r.w.offsetMs)
	if err != nil {
		return nil, fmt.Errorf("hourly duration: %w", err)
	}
	total := sumAll(hist)
	if total == 0 {
		return nil, nil
	}

	var out []candidate
	night := sumHours(hist, nightHours)
	if share := ratio(night, total); share > nightOwlShare {
		out = append(out, r.archetype(TypeNightOwl, HourShareStats{
			Share: share, Hours: hoursOf(night), WindowDays: archetypeWindowDays,
		}))
	}

	morning := sumHours(hist, morningHours)
	if share := ratio(morning, total); share > morningShare {
		out = append(out, r.archetype(TypeMorningListener, HourShareStats{
			Share: share, Hours: hoursOf(morning), WindowDays: archetypeWindowDays,
		}))
	}

	am, pm := sumHours(hist, amCommute), sumHours(hist, pmCommute)
	if share := ratio(am+pm, total); share > commuteShare && am > 0 && pm > 0 {
		out = append(out, r.archetype(TypeCommuteListener, CommuteStats{
			Share:        share,
			MorningShare: ratio(am, total),
			EveningShare: ratio(pm, total),
		}))
	}
	return out, nil
}

// detectSkipRate evaluates the all-time skip rate. A history with no plays
// has no rate.
func detectSkipRate(ctx context.Context, r *run) ([]candidate, error) {
	totals, err := r.allTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	if totals.Plays == 0 {
		return nil, nil
	}

	rate := ratio(totals.Skips, totals.Plays)
	stats := SkipRateStats{SkipRate: rate, Skips: totals.Skips, Plays: totals.Plays}
	switch {
	case rate < completionistRate:
		return []candidate{r.archetype(TypeCompletionist, stats)}, nil
	case rate > skipperRate:
		return []candidate{r.archetype(TypeCertifiedSkipper, stats)}, nil
	}
	return nil, nil
}

// detectDeepCut picks the most played song with at least deepCutMinPlays
// plays, ties broken by duration then song id.
func detectDeepCut(ctx context.Context, r *run) ([]candidate, error) {
	songs, err := r.events.TopSongs(ctx, models.SongFilter{MinPlays: deepCutMinPlays, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}
	if len(songs) == 0 {
		return nil, nil
	}

	s := songs[0]
	c := r.archetype(TypeDeepCutDigger, DeepCutStats{Plays: s.Plays, Hours: hoursOf(s.DurationMs)})
	c.EntityName = s.Title
	c.SongID = int64Ptr(s.SongID)
	c.ArtistID = int64Ptr(s.ArtistID)
	c.ImageURL = s.ArtworkURL
	return []candidate{c}, nil
}

func detectLoyalFan(ctx context.Context, r *run) ([]candidate, error) {
	totals, err := r.allTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	top, err := r.events.TopArtists(ctx, models.ArtistFilter{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("top artists: %w", err)
	}
	if len(top) == 0 {
		return nil, nil
	}

	a := top[0]
	share := ratio(a.DurationMs, totals.DurationMs)
	if share <= loyalFanShare {
		return nil, nil
	}
	c := r.archetype(TypeLoyalFan, ShareStats{Share: share, Hours: hoursOf(a.DurationMs)})
	c.EntityName = a.Name
	c.ArtistID = int64Ptr(a.ArtistID)
	c.ImageURL = a.ImageURL
	return []candidate{c}, nil
}

func detectExplorer(ctx context.Context, r *run) ([]candidate, error) {
	n, err := r.events.NewArtistsSince(ctx, r.w.trailing(explorerWindowDays))
	if err != nil {
		return nil, fmt.Errorf("new artists: %w", err)
	}
	if n < explorerMinArtists {
		return nil, nil
	}
	return []candidate{r.archetype(TypeExplorer, NewArtistsStats{NewArtists: n, WindowDays: explorerWindowDays})}, nil
}

func detectWeekendWarrior(ctx context.Context, r *run) ([]candidate, error) {
	days, err := r.events.DailyDuration(ctx, models.DayFilter{
		Since:    r.w.trailing(weekendWindowDays),
		Until:    r.w.nowMs,
		OffsetMs: r.w.offsetMs,
	})
	if err != nil {
		return nil, fmt.Errorf("daily duration: %w", err)
	}

	var weekend, total int64
	for _, d := range days {
		total += d.DurationMs
		if wd, ok := weekday(d.Day); ok && (wd == time.Saturday || wd == time.Sunday) {
			weekend += d.DurationMs
		}
	}
	if total == 0 {
		return nil, nil
	}
	share := ratio(weekend, total)
	if share <= weekendShare {
		return nil, nil
	}
	return []candidate{r.archetype(TypeWeekendWarrior, ShareStats{
		Share: share, Hours: hoursOf(weekend), WindowDays: weekendWindowDays,
	})}, nil
}

func detectWideTaste(ctx context.Context, r *run) ([]candidate, error) {
	artists, err := r.events.TopArtists(ctx, models.ArtistFilter{
		Since: r.w.trailing(archetypeWindowDays),
		Until: r.w.nowMs,
	})
	if err != nil {
		return nil, fmt.Errorf("top artists: %w", err)
	}
	if len(artists) < wideTasteMinArtists {
		return nil, nil
	}

	var total int64
	for _, a := range artists {
		total += a.DurationMs
	}
	share := ratio(artists[0].DurationMs, total)
	if share >= wideTasteMaxTopShare {
		return nil, nil
	}
	return []candidate{r.archetype(TypeWideTaste, WideTasteStats{Artists: len(artists), TopShare: share})}, nil
}

func detectRepeatOffender(ctx context.Context, r *run) ([]candidate, error) {
	songs, err := r.events.TopSongs(ctx, models.SongFilter{
		Since: r.w.trailing(archetypeWindowDays),
		Until: r.w.nowMs,
	})
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}
	share, top, total := topShare(songs, repeatTopSongs)
	if total == 0 || share <= repeatShare {
		return nil, nil
	}
	return []candidate{r.archetype(TypeRepeatOffender, TopSongsShareStats{
		Share: share, TopSongs: top, Plays: total,
	})}, nil
}

// topShare returns the share of plays held by the first n songs, how many
// songs that was, and the total plays.
func topShare(songs []models.SongTotal, n int) (share float64, top int, total int64) {
	var head int64
	for i, s := range songs {
		total += s.Plays
		if i < n {
			head += s.Plays
			top++
		}
	}
	return ratio(head, total), top, total
}

func detectAlbumListener(ctx context.Context, r *run) ([]candidate, error) {
	since := r.w.trailing(archetypeWindowDays)
	timeline, err := r.events.Timeline(ctx, since, r.w.nowMs)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	runs := findSessionRuns(timeline)
	if len(runs) < albumMinRuns {
		return nil, nil
	}
	avg, topArtist := summarizeRuns(runs)

	stats := AlbumRunStats{Runs: len(runs), AvgRunLength: avg, TopArtist: topArtist}
	songs, err := r.events.TopSongs(ctx, models.SongFilter{Since: since, Until: r.w.nowMs, Artist: topArtist, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("top songs for %s: %w", topArtist, err)
	}

	c := r.archetype(TypeAlbumListener, stats)
	c.EntityName = topArtist
	if len(songs) > 0 {
		stats.TopSong = songs[0].Title
		c.Stats = stats
		c.ArtistID = int64Ptr(songs[0].ArtistID)
	}
	return []candidate{c}, nil
}
