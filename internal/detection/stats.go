// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Stats is the raw statistic payload attached to a moment. Each rule family
// has exactly one payload type; the set is closed.
type Stats interface {
	isStats()
}

// SongPlaysStats backs SONG_PLAYS_* milestones.
type SongPlaysStats struct {
	Threshold    int   `json:"threshold"`
	Plays        int64 `json:"plays"`
	FirstHeardAt int64 `json:"first_heard_at,omitempty"`
}

// ArtistHoursStats backs ARTIST_HOURS_* milestones.
type ArtistHoursStats struct {
	Threshold int     `json:"threshold"`
	Hours     float64 `json:"hours"`
	Plays     int64   `json:"plays,omitempty"`
}

// StreakStats backs STREAK_* milestones.
type StreakStats struct {
	Threshold int `json:"threshold"`
	Days      int `json:"days"`
}

// TotalHoursStats backs TOTAL_HOURS_* milestones.
type TotalHoursStats struct {
	Threshold int     `json:"threshold"`
	Hours     float64 `json:"hours"`
	Plays     int64   `json:"plays,omitempty"`
}

// DiscoveryStats backs SONGS_DISCOVERED_* milestones.
type DiscoveryStats struct {
	Threshold       int   `json:"threshold"`
	DistinctSongs   int64 `json:"distinct_songs"`
	DistinctArtists int64 `json:"distinct_artists,omitempty"`
}

// HourShareStats backs the time-of-day archetypes.
type HourShareStats struct {
	Share      float64 `json:"share"`
	Hours      float64 `json:"hours,omitempty"` // listening hours inside the time band
	WindowDays int     `json:"window_days"`
}

// CommuteStats backs the commute archetype.
type CommuteStats struct {
	Share        float64 `json:"share"`
	MorningShare float64 `json:"morning_share"`
	EveningShare float64 `json:"evening_share"`
}

// SkipRateStats backs the completionist and skipper archetypes.
type SkipRateStats struct {
	SkipRate float64 `json:"skip_rate"`
	Skips    int64   `json:"skips"`
	Plays    int64   `json:"plays"`
}

// DeepCutStats backs the deep cut archetype.
type DeepCutStats struct {
	Plays int64   `json:"plays"`
	Hours float64 `json:"hours,omitempty"`
}

// ShareStats backs archetypes measured as one entity's share of listening.
type ShareStats struct {
	Share      float64 `json:"share"`
	Hours      float64 `json:"hours,omitempty"`
	WindowDays int     `json:"window_days,omitempty"`
}

// NewArtistsStats backs the explorer archetype and the discovery week.
type NewArtistsStats struct {
	NewArtists int64 `json:"new_artists"`
	WindowDays int   `json:"window_days"`
}

// WideTasteStats backs the wide taste archetype.
type WideTasteStats struct {
	Artists  int     `json:"artists"`
	TopShare float64 `json:"top_share"`
}

// TopSongsShareStats backs the repeat offender archetype and comfort zone.
type TopSongsShareStats struct {
	Share    float64 `json:"share"`
	TopSongs int     `json:"top_songs"`
	Plays    int64   `json:"plays"`
}

// AlbumRunStats backs the album listener archetype.
type AlbumRunStats struct {
	Runs         int     `json:"runs"`
	AvgRunLength float64 `json:"avg_run_length"`
	TopArtist    string  `json:"top_artist,omitempty"`
	TopSong      string  `json:"top_song,omitempty"`
}

// DayPlaysStats backs the daily obsession.
type DayPlaysStats struct {
	Day   string `json:"day"`
	Plays int64  `json:"plays"`
}

// RitualStats backs the daily ritual.
type RitualStats struct {
	Days  int   `json:"days"`
	Plays int64 `json:"plays"`
}

// SkipCountStats backs the breakup candidate.
type SkipCountStats struct {
	Skips      int64 `json:"skips"`
	WindowDays int   `json:"window_days"`
}

// FreshObsessionStats backs fast and quick obsessions.
type FreshObsessionStats struct {
	Plays               int64 `json:"plays"`
	Rank                int   `json:"rank,omitempty"`
	DaysSinceFirstHeard int   `json:"days_since_first_heard"`
}

// SessionStats backs the longest session record.
type SessionStats struct {
	DurationMs int64 `json:"duration_ms"`
}

// ResurrectionStats backs the resurrection.
type ResurrectionStats struct {
	PlaysToday      int64 `json:"plays_today"`
	DaysSincePrior  int   `json:"days_since_prior"`
	PriorPlaysCount int64 `json:"prior_plays"`
}

// NightBingeStats backs the night binge.
type NightBingeStats struct {
	Day        string  `json:"day"`
	NightHours float64 `json:"night_hours"`
}

// RediscoveryStats backs the rediscovery.
type RediscoveryStats struct {
	PlaysThisWeek int64 `json:"plays_this_week"`
	GapDays       int   `json:"gap_days"`
}

// SlowBurnStats backs the slow burn.
type SlowBurnStats struct {
	PlaysThisWeek       int64 `json:"plays_this_week"`
	PlaysBefore         int64 `json:"plays_before"`
	DaysSinceFirstHeard int   `json:"days_since_first_heard"`
}

// MarathonStats backs the marathon week.
type MarathonStats struct {
	Hours             float64 `json:"hours"`
	PreviousBestHours float64 `json:"previous_best_hours,omitempty"`
}

func (SongPlaysStats) isStats()      {}
func (ArtistHoursStats) isStats()    {}
func (StreakStats) isStats()         {}
func (TotalHoursStats) isStats()     {}
func (DiscoveryStats) isStats()      {}
func (HourShareStats) isStats()      {}
func (CommuteStats) isStats()        {}
func (SkipRateStats) isStats()       {}
func (DeepCutStats) isStats()        {}
func (ShareStats) isStats()          {}
func (NewArtistsStats) isStats()     {}
func (WideTasteStats) isStats()      {}
func (TopSongsShareStats) isStats()  {}
func (AlbumRunStats) isStats()       {}
func (DayPlaysStats) isStats()       {}
func (RitualStats) isStats()         {}
func (SkipCountStats) isStats()      {}
func (FreshObsessionStats) isStats() {}
func (SessionStats) isStats()        {}
func (ResurrectionStats) isStats()   {}
func (NightBingeStats) isStats()     {}
func (RediscoveryStats) isStats()    {}
func (SlowBurnStats) isStats()       {}
func (MarathonStats) isStats()       {}

// newStats returns an empty payload of the type produced for t, or nil for
// types that carry no stats.
func newStats(t Type) Stats {
	if prefix, _, ok := t.milestone(); ok {
		switch prefix {
		case PrefixSongPlays:
			return &SongPlaysStats{}
		case PrefixArtistHours:
			return &ArtistHoursStats{}
		case PrefixStreak:
			return &StreakStats{}
		case PrefixTotalHours:
			return &TotalHoursStats{}
		case PrefixSongsDiscovered:
			return &DiscoveryStats{}
		}
	}

	switch t {
	case TypeNightOwl, TypeMorningListener:
		return &HourShareStats{}
	case TypeCommuteListener:
		return &CommuteStats{}
	case TypeCompletionist, TypeCertifiedSkipper:
		return &SkipRateStats{}
	case TypeDeepCutDigger:
		return &DeepCutStats{}
	case TypeLoyalFan, TypeWeekendWarrior:
		return &ShareStats{}
	case TypeExplorer, TypeDiscoveryWeek:
		return &NewArtistsStats{}
	case TypeWideTaste:
		return &WideTasteStats{}
	case TypeRepeatOffender, TypeComfortZone:
		return &TopSongsShareStats{}
	case TypeAlbumListener:
		return &AlbumRunStats{}
	case TypeObsessionDaily:
		return &DayPlaysStats{}
	case TypeDailyRitual:
		return &RitualStats{}
	case TypeBreakupCandidate:
		return &SkipCountStats{}
	case TypeFastObsession, TypeQuickObsession:
		return &FreshObsessionStats{}
	case TypeLongestSession:
		return &SessionStats{}
	case TypeResurrection:
		return &ResurrectionStats{}
	case TypeNightBinge:
		return &NightBingeStats{}
	case TypeRediscovery:
		return &RediscoveryStats{}
	case TypeSlowBurn:
		return &SlowBurnStats{}
	case TypeMarathonWeek:
		return &MarathonStats{}
	}
	return nil
}

// decodeStats restores the typed payload stored for a moment of type t.
// Unknown types and empty payloads yield nil.
func decodeStats(t Type, raw []byte) (Stats, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	s := newStats(t)
	if s == nil {
		return nil, nil
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("failed to decode %s stats: %w", t, err)
	}
	return derefStats(s), nil
}

// derefStats normalizes pointer payloads to values so copy and tests can
// type-switch on one form.
func derefStats(s Stats) Stats {
	switch v := s.(type) {
	case *SongPlaysStats:
		return *v
	case *ArtistHoursStats:
		return *v
	case *StreakStats:
		return *v
	case *TotalHoursStats:
		return *v
	case *DiscoveryStats:
		return *v
	case *HourShareStats:
		return *v
	case *CommuteStats:
		return *v
	case *SkipRateStats:
		return *v
	case *DeepCutStats:
		return *v
	case *ShareStats:
		return *v
	case *NewArtistsStats:
		return *v
	case *WideTasteStats:
		return *v
	case *TopSongsShareStats:
		return *v
	case *AlbumRunStats:
		return *v
	case *DayPlaysStats:
		return *v
	case *RitualStats:
		return *v
	case *SkipCountStats:
		return *v
	case *FreshObsessionStats:
		return *v
	case *SessionStats:
		return *v
	case *ResurrectionStats:
		return *v
	case *NightBingeStats:
		return *v
	case *RediscoveryStats:
		return *v
	case *SlowBurnStats:
		return *v
	case *MarathonStats:
		return *v
	}
	return s
}

// UnmarshalJSON restores the typed stats payload from the moment type.
func (m *Moment) UnmarshalJSON(data []byte) error {
	type alias Moment
	aux := struct {
		*alias
		Stats json.RawMessage `json:"stats,omitempty"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	stats, err := decodeStats(m.Type, aux.Stats)
	if err != nil {
		return err
	}
	m.Stats = stats
	return nil
}
