// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/earmark/internal/models"
)

// Type is the discriminated tag of a moment.
type Type string

// Milestone type prefixes. The full type appends the threshold, e.g.
// SONG_PLAYS_100.
const (
	PrefixSongPlays       = "SONG_PLAYS_"
	PrefixArtistHours     = "ARTIST_HOURS_"
	PrefixStreak          = "STREAK_"
	PrefixTotalHours      = "TOTAL_HOURS_"
	PrefixSongsDiscovered = "SONGS_DISCOVERED_"
)

// Archetype types. They are keyed by yearMonth.
const (
	TypeNightOwl         Type = "ARCHETYPE_NIGHT_OWL"
	TypeMorningListener  Type = "ARCHETYPE_MORNING_LISTENER"
	TypeCommuteListener  Type = "ARCHETYPE_COMMUTE_LISTENER"
	TypeCompletionist    Type = "ARCHETYPE_COMPLETIONIST"
	TypeCertifiedSkipper Type = "ARCHETYPE_CERTIFIED_SKIPPER"
	TypeDeepCutDigger    Type = "ARCHETYPE_DEEP_CUT_DIGGER"
	TypeLoyalFan         Type = "ARCHETYPE_LOYAL_FAN"
	TypeExplorer         Type = "ARCHETYPE_EXPLORER"
	TypeWeekendWarrior   Type = "ARCHETYPE_WEEKEND_WARRIOR"
	TypeWideTaste        Type = "ARCHETYPE_WIDE_TASTE"
	TypeRepeatOffender   Type = "ARCHETYPE_REPEAT_OFFENDER"
	TypeAlbumListener    Type = "ARCHETYPE_ALBUM_LISTENER"
)

// Behavioral types.
const (
	TypeObsessionDaily   Type = "OBSESSION_DAILY"
	TypeDailyRitual      Type = "DAILY_RITUAL"
	TypeBreakupCandidate Type = "BREAKUP_CANDIDATE"
	TypeFastObsession    Type = "FAST_OBSESSION"
	TypeLongestSession   Type = "LONGEST_SESSION"
	TypeQuickObsession   Type = "QUICK_OBSESSION"
	TypeDiscoveryWeek    Type = "DISCOVERY_WEEK"
	TypeResurrection     Type = "RESURRECTION"
	TypeNightBinge       Type = "NIGHT_BINGE"
	TypeComfortZone      Type = "COMFORT_ZONE"
	TypeRediscovery      Type = "REDISCOVERY"
	TypeSlowBurn         Type = "SLOW_BURN"
	TypeMarathonWeek     Type = "MARATHON_WEEK"
)

// TypeFeatureUnlock is reserved for UI feature gating. It is never produced
// by a rule and is hidden from ListAll.
const TypeFeatureUnlock Type = "INTERNAL_FEATURE_UNLOCK"

// SongPlaysType returns the song play milestone type for a threshold.
func SongPlaysType(threshold int) Type { return milestoneType(PrefixSongPlays, threshold) }

// ArtistHoursType returns the artist hour milestone type for a threshold.
func ArtistHoursType(threshold int) Type { return milestoneType(PrefixArtistHours, threshold) }

// StreakType returns the streak milestone type for a threshold.
func StreakType(threshold int) Type { return milestoneType(PrefixStreak, threshold) }

// TotalHoursType returns the total hour milestone type for a threshold.
func TotalHoursType(threshold int) Type { return milestoneType(PrefixTotalHours, threshold) }

// SongsDiscoveredType returns the discovery milestone type for a threshold.
func SongsDiscoveredType(threshold int) Type { return milestoneType(PrefixSongsDiscovered, threshold) }

func milestoneType(prefix string, threshold int) Type {
	return Type(prefix + strconv.Itoa(threshold))
}

// milestone splits a milestone type into its prefix and threshold.
func (t Type) milestone() (prefix string, threshold int, ok bool) {
	for _, p := range []string{PrefixSongPlays, PrefixArtistHours, PrefixStreak, PrefixTotalHours, PrefixSongsDiscovered} {
		if rest, found := strings.CutPrefix(string(t), p); found {
			n, err := strconv.Atoi(rest)
			if err != nil || n <= 0 {
				return "", 0, false
			}
			return p, n, true
		}
	}
	return "", 0, false
}

// Moment is a persisted, user-facing record of a detected achievement.
//
// (Type, EntityKey) is unique across all time. SeenAt and SharedAt only ever
// move from nil to a timestamp.
type Moment struct {
	ID          int64      `json:"id"`
	Type        Type       `json:"type"`
	EntityKey   string     `json:"entity_key"`
	TriggeredAt time.Time  `json:"triggered_at"`
	SeenAt      *time.Time `json:"seen_at,omitempty"`
	SharedAt    *time.Time `json:"shared_at,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StatLines   []string   `json:"stat_lines"`
	SongID      *int64     `json:"song_id,omitempty"`
	ArtistID    *int64     `json:"artist_id,omitempty"`
	EntityName  string     `json:"entity_name,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	CopyVariant int        `json:"copy_variant"`
	Tier        Tier       `json:"tier"`
	Stats       Stats      `json:"stats,omitempty"`
}

// EventStore is the listening history aggregate contract read by the detector.
// All timestamps are epoch milliseconds.
type EventStore interface {
	TopSongs(ctx context.Context, f models.SongFilter) ([]models.SongTotal, error)
	TopArtists(ctx context.Context, f models.ArtistFilter) ([]models.ArtistTotal, error)
	Totals(ctx context.Context, since, until int64) (models.Totals, error)
	NewSongsSince(ctx context.Context, since int64) (int64, error)
	NewArtistsSince(ctx context.Context, since int64) (int64, error)
	HourlyDuration(ctx context.Context, since, until, offsetMs int64) ([24]int64, error)
	DailyDuration(ctx context.Context, f models.DayFilter) ([]models.DayTotal, error)
	SongDays(ctx context.Context, songID, since, offsetMs int64) ([]string, error)
	WeeklyDuration(ctx context.Context, since, offsetMs int64) ([]models.WeekTotal, error)
	HistoryBefore(ctx context.Context, f models.HistoryFilter) (models.History, error)
	Timeline(ctx context.Context, since, until int64) ([]models.TimelineEntry, error)
}

// MomentStore persists moments with uniqueness on (type, entity key).
type MomentStore interface {
	// InsertIfAbsent stores m and sets m.ID. It returns false without error
	// when a moment with the same (type, entity key) already exists.
	InsertIfAbsent(ctx context.Context, m *Moment) (bool, error)
	ExistsByTypeAndKey(ctx context.Context, t Type, entityKey string) (bool, error)
	CountByType(ctx context.Context, t Type) (int, error)
	MarkSeen(ctx context.Context, id int64, at time.Time) error
	MarkShared(ctx context.Context, id int64, at time.Time) error
	Get(ctx context.Context, id int64) (*Moment, error)
	ListAll(ctx context.Context) ([]Moment, error)
	ListUnseen(ctx context.Context) ([]Moment, error)
	ListRecent(ctx context.Context, limit int) ([]Moment, error)
	RecordUnlock(ctx context.Context, key string, at time.Time) (bool, error)
	BackfillArtistImages(ctx context.Context) (int64, error)
}

// Notifier delivers newly created moments to an external channel.
type Notifier interface {
	Send(ctx context.Context, m *Moment) error
	Name() string
	Enabled() bool
}

// Broadcaster pushes real-time messages to connected clients.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Publisher emits moments onto the event bus.
type Publisher interface {
	PublishMoment(ctx context.Context, m *Moment) error
}

var (
	// ErrRunInProgress is returned when a detection run is already executing.
	ErrRunInProgress = errors.New("detection run already in progress")

	// ErrMomentNotFound is returned when a moment id does not exist.
	ErrMomentNotFound = errors.New("moment not found")
)

// RuleError reports a rule family that failed during a run.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
