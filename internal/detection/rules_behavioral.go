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

// Behavioral thresholds.
const (
	obsessionDailyMinPlays = 5
	ritualDays             = 7
	breakupMinSkips        = 10
	breakupWindowDays      = 7
	fastObsessionMinPlays  = 20
	fastObsessionDays      = 30
	longestSessionMinMs    = msPerHour
	quickObsessionTop      = 5
	quickObsessionDays     = 7
	discoveryWeekArtists   = 8
	resurrectionMinPlays   = 5
	resurrectionGapDays    = 30
	nightBingeDays         = 30
	nightBingeMinMs        = 2 * msPerHour
	weekWindowDays         = 7
	comfortTopSongs        = 5
	comfortShare           = 0.8
	rediscoveryMinPlays    = 5
	rediscoveryGapDays     = 60
	slowBurnTop            = 20
	slowBurnMinPlays       = 5
	slowBurnMaxBefore      = 5
	slowBurnMinAgeDays     = 60
	marathonWindowDays     = 730
)

// songCandidate fills the song identity fields of a candidate.
func songCandidate(t Type, key string, s models.SongTotal, stats Stats) candidate {
	return candidate{
		Type:       t,
		EntityKey:  key,
		EntityName: s.Title,
		SongID:     int64Ptr(s.SongID),
		ArtistID:   int64Ptr(s.ArtistID),
		ImageURL:   s.ArtworkURL,
		Stats:      stats,
	}
}

func artistCandidate(t Type, key string, a models.ArtistTotal, stats Stats) candidate {
	return candidate{
		Type:       t,
		EntityKey:  key,
		EntityName: a.Name,
		ArtistID:   int64Ptr(a.ArtistID),
		ImageURL:   a.ImageURL,
		Stats:      stats,
	}
}

// todaySongs returns per-song totals for the current local calendar day.
func (r *run) todaySongs(ctx context.Context, minPlays int64) ([]models.SongTotal, error) {
	return r.events.TopSongs(ctx, models.SongFilter{
		Since:    r.w.todayStart,
		Until:    r.w.dayStart(-1),
		MinPlays: minPlays,
	})
}

func detectObsessionDaily(ctx context.Context, r *run) ([]candidate, error) {
	songs, err := r.todaySongs(ctx, obsessionDailyMinPlays)
	if err != nil {
		return nil, fmt.Errorf("today's songs: %w", err)
	}

	out := make([]candidate, 0, len(songs))
	for _, s := range songs {
		key := fmt.Sprintf("%d:%s", s.SongID, r.w.today)
		out = append(out, songCandidate(TypeObsessionDaily, key, s, DayPlaysStats{Day: r.w.today, Plays: s.Plays}))
	}
	return out, nil
}

// detectDailyRitual finds songs played on each of the last seven local days,
// today included.
func detectDailyRitual(ctx context.Context, r *run) ([]candidate, error) {
	since := r.w.dayStart(ritualDays - 1)
	songs, err := r.events.TopSongs(ctx, models.SongFilter{Since: since, MinPlays: ritualDays})
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}

	var out []candidate
	for _, s := range songs {
		days, err := r.events.SongDays(ctx, s.SongID, since, r.w.offsetMs)
		if err != nil {
			return out, fmt.Errorf("song days %d: %w", s.SongID, err)
		}
		if !coversLastDays(r.w, days, ritualDays) {
			continue
		}
		key := fmt.Sprintf("%d:%s", s.SongID, r.w.today)
		out = append(out, songCandidate(TypeDailyRitual, key, s, RitualStats{Days: ritualDays, Plays: s.Plays}))
	}
	return out, nil
}

func coversLastDays(w window, days []string, n int) bool {
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		seen[d] = true
	}
	for i := 0; i < n; i++ {
		if !seen[w.dayKey(i)] {
			return false
		}
	}
	return true
}

func detectBreakupCandidate(ctx context.Context, r *run) ([]candidate, error) {
	artists, err := r.events.TopArtists(ctx, models.ArtistFilter{
		Since:    r.w.trailing(breakupWindowDays),
		Until:    r.w.nowMs,
		MinSkips: breakupMinSkips,
	})
	if err != nil {
		return nil, fmt.Errorf("top artists: %w", err)
	}

	out := make([]candidate, 0, len(artists))
	for _, a := range artists {
		key := a.Name + ":" + r.w.weekKey
		out = append(out, artistCandidate(TypeBreakupCandidate, key, a, SkipCountStats{
			Skips: a.Skips, WindowDays: breakupWindowDays,
		}))
	}
	return out, nil
}

func detectFastObsession(ctx context.Context, r *run) ([]candidate, error) {
	songs, err := r.events.TopSongs(ctx, models.SongFilter{MinPlays: fastObsessionMinPlays})
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}

	cutoff := r.w.trailing(fastObsessionDays)
	var out []candidate
	for _, s := range songs {
		if s.FirstHeardAt < cutoff {
			continue
		}
		out = append(out, songCandidate(TypeFastObsession, strconv.FormatInt(s.SongID, 10), s, FreshObsessionStats{
			Plays: s.Plays, DaysSinceFirstHeard: r.w.daysSince(s.FirstHeardAt),
		}))
	}
	return out, nil
}

// detectLongestSession keys on the record duration itself so only a strictly
// longer play fires again.
func detectLongestSession(ctx context.Context, r *run) ([]candidate, error) {
	totals, err := r.allTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	if totals.LongestMs < longestSessionMinMs {
		return nil, nil
	}
	return []candidate{{
		Type:      TypeLongestSession,
		EntityKey: strconv.FormatInt(totals.LongestMs, 10),
		Stats:     SessionStats{DurationMs: totals.LongestMs},
	}}, nil
}

func detectQuickObsession(ctx context.Context, r *run) ([]candidate, error) {
	songs, err := r.events.TopSongs(ctx, models.SongFilter{Limit: quickObsessionTop})
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}

	cutoff := r.w.trailing(quickObsessionDays)
	var out []candidate
	for i, s := range songs {
		if s.FirstHeardAt < cutoff {
			continue
		}
		out = append(out, songCandidate(TypeQuickObsession, strconv.FormatInt(s.SongID, 10), s, FreshObsessionStats{
			Plays: s.Plays, Rank: i + 1, DaysSinceFirstHeard: r.w.daysSince(s.FirstHeardAt),
		}))
	}
	return out, nil
}

func detectDiscoveryWeek(ctx context.Context, r *run) ([]candidate, error) {
	n, err := r.events.NewArtistsSince(ctx, r.w.trailing(weekWindowDays))
	if err != nil {
		return nil, fmt.Errorf("new artists: %w", err)
	}
	if n < discoveryWeekArtists {
		return nil, nil
	}
	return []candidate{{
		Type:      TypeDiscoveryWeek,
		EntityKey: r.w.weekKey,
		Stats:     NewArtistsStats{NewArtists: n, WindowDays: weekWindowDays},
	}}, nil
}

// detectResurrection finds songs on repeat today that were also played on a
// calendar day at least resurrectionGapDays before today. Any play before
// the start of the day resurrectionGapDays-1 days ago qualifies.
func detectResurrection(ctx context.Context, r *run) ([]candidate, error) {
	songs, err := r.todaySongs(ctx, resurrectionMinPlays)
	if err != nil {
		return nil, fmt.Errorf("today's songs: %w", err)
	}

	var out []candidate
	for _, s := range songs {
		prior, err := r.events.HistoryBefore(ctx, models.HistoryFilter{
			SongID: s.SongID,
			Before: r.w.dayStart(resurrectionGapDays - 1),
		})
		if err != nil {
			return out, fmt.Errorf("history of song %d: %w", s.SongID, err)
		}
		if prior.Plays == 0 {
			continue
		}
		key := fmt.Sprintf("%d:%s", s.SongID, r.w.today)
		out = append(out, songCandidate(TypeResurrection, key, s, ResurrectionStats{
			PlaysToday:      s.Plays,
			DaysSincePrior:  r.w.calendarDaysBefore(prior.LastPlayedAt),
			PriorPlaysCount: prior.Plays,
		}))
	}
	return out, nil
}

func detectNightBinge(ctx context.Context, r *run) ([]candidate, error) {
	days, err := r.events.DailyDuration(ctx, models.DayFilter{
		Since:    r.w.dayStart(nightBingeDays - 1),
		OffsetMs: r.w.offsetMs,
		Hours:    nightHours,
	})
	if err != nil {
		return nil, fmt.Errorf("night duration: %w", err)
	}

	var out []candidate
	for _, d := range days {
		if d.DurationMs < nightBingeMinMs {
			continue
		}
		out = append(out, candidate{
			Type:      TypeNightBinge,
			EntityKey: d.Day,
			Stats:     NightBingeStats{Day: d.Day, NightHours: hoursOf(d.DurationMs)},
		})
	}
	return out, nil
}

func detectComfortZone(ctx context.Context, r *run) ([]candidate, error) {
	songs, err := r.events.TopSongs(ctx, models.SongFilter{
		Since: r.w.trailing(weekWindowDays),
		Until: r.w.nowMs,
	})
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}
	share, top, total := topShare(songs, comfortTopSongs)
	if total == 0 || share < comfortShare {
		return nil, nil
	}
	return []candidate{{
		Type:      TypeComfortZone,
		EntityKey: r.w.weekKey,
		Stats:     TopSongsShareStats{Share: share, TopSongs: top, Plays: total},
	}}, nil
}

// detectRediscovery fires when this week's top artist returns after a long
// silence.
func detectRediscovery(ctx context.Context, r *run) ([]candidate, error) {
	weekStart := r.w.trailing(weekWindowDays)
	top, err := r.events.TopArtists(ctx, models.ArtistFilter{Since: weekStart, Until: r.w.nowMs, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("top artists: %w", err)
	}
	if len(top) == 0 || top[0].Plays < rediscoveryMinPlays {
		return nil, nil
	}

	a := top[0]
	prior, err := r.events.HistoryBefore(ctx, models.HistoryFilter{Artist: a.Name, Before: weekStart})
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", a.Name, err)
	}
	if prior.Plays == 0 {
		return nil, nil
	}
	gap := int((weekStart - prior.LastPlayedAt) / msPerDay)
	if gap < rediscoveryGapDays {
		return nil, nil
	}

	key := a.Name + ":" + r.w.weekKey
	return []candidate{artistCandidate(TypeRediscovery, key, a, RediscoveryStats{
		PlaysThisWeek: a.Plays, GapDays: gap,
	})}, nil
}

func detectSlowBurn(ctx context.Context, r *run) ([]candidate, error) {
	weekStart := r.w.trailing(weekWindowDays)
	songs, err := r.events.TopSongs(ctx, models.SongFilter{
		Since:    weekStart,
		Until:    r.w.nowMs,
		MinPlays: slowBurnMinPlays,
		Limit:    slowBurnTop,
	})
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}

	var out []candidate
	for _, s := range songs {
		age := r.w.daysSince(s.FirstHeardAt)
		if age < slowBurnMinAgeDays {
			continue
		}
		prior, err := r.events.HistoryBefore(ctx, models.HistoryFilter{SongID: s.SongID, Before: weekStart})
		if err != nil {
			return out, fmt.Errorf("history of song %d: %w", s.SongID, err)
		}
		if prior.Plays >= slowBurnMaxBefore {
			continue
		}
		key := fmt.Sprintf("%d:%s", s.SongID, r.w.weekKey)
		out = append(out, songCandidate(TypeSlowBurn, key, s, SlowBurnStats{
			PlaysThisWeek:       s.Plays,
			PlaysBefore:         prior.Plays,
			DaysSinceFirstHeard: age,
		}))
	}
	return out, nil
}

// detectMarathonWeek fires when the current ISO week is the biggest of the
// last two years. Ties with an earlier week still count.
func detectMarathonWeek(ctx context.Context, r *run) ([]candidate, error) {
	weeks, err := r.events.WeeklyDuration(ctx, r.w.trailing(marathonWindowDays), r.w.offsetMs)
	if err != nil {
		return nil, fmt.Errorf("weekly duration: %w", err)
	}

	var current, best int64
	for _, wk := range weeks {
		if wk.WeekKey == r.w.weekKey {
			current = wk.DurationMs
			continue
		}
		if wk.DurationMs > best {
			best = wk.DurationMs
		}
	}
	if current == 0 || current < best {
		return nil, nil
	}
	return []candidate{{
		Type:      TypeMarathonWeek,
		EntityKey: r.w.weekKey,
		Stats:     MarathonStats{Hours: hoursOf(current), PreviousBestHours: hoursOf(best)},
	}}, nil
}
