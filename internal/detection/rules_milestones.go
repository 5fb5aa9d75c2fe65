// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tomtom215/earmark/internal/models"
)

// maxStreakDays caps the backward streak scan.
const maxStreakDays = 365

// allRules returns every rule family in evaluation order.
func allRules() []rule {
	return []rule{
		{name: "song_plays", detect: detectSongPlays},
		{name: "artist_hours", detect: detectArtistHours},
		{name: "streak", detect: detectStreak},
		{name: "total_hours", detect: detectTotalHours},
		{name: "discovery", detect: detectDiscovery},
		{name: "time_of_day", detect: detectTimeOfDay},
		{name: "skip_rate", detect: detectSkipRate},
		{name: "deep_cut", detect: detectDeepCut},
		{name: "loyal_fan", detect: detectLoyalFan},
		{name: "explorer", detect: detectExplorer},
		{name: "weekend_warrior", detect: detectWeekendWarrior},
		{name: "wide_taste", detect: detectWideTaste},
		{name: "repeat_offender", detect: detectRepeatOffender},
		{name: "album_listener", detect: detectAlbumListener},
		{name: "obsession_daily", detect: detectObsessionDaily},
		{name: "daily_ritual", detect: detectDailyRitual},
		{name: "breakup_candidate", detect: detectBreakupCandidate},
		{name: "fast_obsession", detect: detectFastObsession},
		{name: "longest_session", detect: detectLongestSession},
		{name: "quick_obsession", detect: detectQuickObsession},
		{name: "discovery_week", detect: detectDiscoveryWeek},
		{name: "resurrection", detect: detectResurrection},
		{name: "night_binge", detect: detectNightBinge},
		{name: "comfort_zone", detect: detectComfortZone},
		{name: "rediscovery", detect: detectRediscovery},
		{name: "slow_burn", detect: detectSlowBurn},
		{name: "marathon_week", detect: detectMarathonWeek},
	}
}

// detectSongPlays fires every threshold a song has reached, not just the
// highest.
func detectSongPlays(ctx context.Context, r *run) ([]candidate, error) {
	thresholds := r.cfg.SongPlayThresholds
	songs, err := r.events.TopSongs(ctx, models.SongFilter{MinPlays: int64(thresholds[0])})
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}

	var out []candidate
	for _, s := range songs {
		for _, t := range thresholds {
			if s.Plays < int64(t) {
				break
			}
			out = append(out, candidate{
				Type:       SongPlaysType(t),
				EntityKey:  fmt.Sprintf("%d:%d", s.SongID, t),
				EntityName: s.Title,
				SongID:     int64Ptr(s.SongID),
				ArtistID:   int64Ptr(s.ArtistID),
				ImageURL:   s.ArtworkURL,
				Stats:      SongPlaysStats{Threshold: t, Plays: s.Plays, FirstHeardAt: s.FirstHeardAt},
			})
		}
	}
	return out, nil
}

func detectArtistHours(ctx context.Context, r *run) ([]candidate, error) {
	thresholds := r.cfg.ArtistHourThresholds
	artists, err := r.events.TopArtists(ctx, models.ArtistFilter{
		MinDurationMs: int64(thresholds[0]) * msPerHour,
	})
	if err != nil {
		return nil, fmt.Errorf("top artists: %w", err)
	}

	var out []candidate
	for _, a := range artists {
		for _, h := range thresholds {
			if a.DurationMs < int64(h)*msPerHour {
				break
			}
			out = append(out, candidate{
				Type:       ArtistHoursType(h),
				EntityKey:  fmt.Sprintf("%s:%d", a.Name, h),
				EntityName: a.Name,
				ArtistID:   int64Ptr(a.ArtistID),
				ImageURL:   a.ImageURL,
				Stats:      ArtistHoursStats{Threshold: h, Hours: hoursOf(a.DurationMs), Plays: a.Plays},
			})
		}
	}
	return out, nil
}

// detectStreak scans backward from today. A day without plays, today
// included, ends the streak.
func detectStreak(ctx context.Context, r *run) ([]candidate, error) {
	days, err := r.events.DailyDuration(ctx, models.DayFilter{
		Since:    r.w.dayStart(maxStreakDays - 1),
		OffsetMs: r.w.offsetMs,
	})
	if err != nil {
		return nil, fmt.Errorf("daily duration: %w", err)
	}

	active := make(map[string]bool, len(days))
	for _, d := range days {
		if d.Plays > 0 {
			active[d.Day] = true
		}
	}

	streak := 0
	for streak < maxStreakDays && active[r.w.dayKey(streak)] {
		streak++
	}

	var out []candidate
	for _, t := range r.cfg.StreakThresholds {
		if streak < t {
			break
		}
		out = append(out, candidate{
			Type:      StreakType(t),
			EntityKey: strconv.Itoa(t),
			Stats:     StreakStats{Threshold: t, Days: streak},
		})
	}
	return out, nil
}

func detectTotalHours(ctx context.Context, r *run) ([]candidate, error) {
	totals, err := r.allTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}

	var out []candidate
	for _, h := range r.cfg.TotalHourThresholds {
		if totals.DurationMs < int64(h)*msPerHour {
			break
		}
		out = append(out, candidate{
			Type:      TotalHoursType(h),
			EntityKey: strconv.Itoa(h),
			Stats:     TotalHoursStats{Threshold: h, Hours: hoursOf(totals.DurationMs), Plays: totals.Plays},
		})
	}
	return out, nil
}

func detectDiscovery(ctx context.Context, r *run) ([]candidate, error) {
	totals, err := r.allTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}

	var out []candidate
	for _, t := range r.cfg.DiscoveryThresholds {
		if totals.DistinctSongs < int64(t) {
			break
		}
		out = append(out, candidate{
			Type:      SongsDiscoveredType(t),
			EntityKey: strconv.Itoa(t),
			Stats: DiscoveryStats{
				Threshold:       t,
				DistinctSongs:   totals.DistinctSongs,
				DistinctArtists: totals.DistinctArtists,
			},
		})
	}
	return out, nil
}

func hoursOf(ms int64) float64 {
	return float64(ms) / float64(msPerHour)
}

// ratio divides with the denominator floored at 1.
func ratio(num, den int64) float64 {
	if den < 1 {
		den = 1
	}
	return float64(num) / float64(den)
}
