// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Copy is the user-facing text of a moment.
type Copy struct {
	Title       string
	Description string
	StatLines   []string
}

// chips collects stat lines, skipping absent values.
type chips []string

func (c *chips) add(present bool, format string, args ...interface{}) {
	if present {
		*c = append(*c, fmt.Sprintf(format, args...))
	}
}

// ComposeCopy renders a moment's title, description and stat chips.
//
// occurrences is the number of moments of the same type that existed before
// this one; types with a repeat phrasing use it when it is positive. Stats of
// the wrong payload type, zero fields and an empty entity name never error;
// the affected chips are left out and the copy falls back to generic wording.
// Unknown types get a humanized title, a generic description and no chips.
func ComposeCopy(t Type, entityName string, stats Stats, occurrences int) Copy {
	if stats != nil {
		stats = derefStats(stats)
	}
	repeat := occurrences > 0

	if prefix, n, ok := t.milestone(); ok {
		return milestoneCopy(prefix, n, entityName, stats, repeat)
	}

	var c chips
	switch t {
	case TypeNightOwl:
		s, _ := stats.(HourShareStats)
		c.add(s.Share > 0, "%s after 10pm", fmtPercent(s.Share))
		c.add(s.Hours > 0, "%s hours at night", fmtHours(s.Hours))
		return Copy{"Night Owl", "Most of your listening this month happened while everyone else was asleep.", c}

	case TypeMorningListener:
		s, _ := stats.(HourShareStats)
		c.add(s.Share > 0, "%s before 9am", fmtPercent(s.Share))
		c.add(s.Hours > 0, "%s morning hours", fmtHours(s.Hours))
		return Copy{"Early Bird", "Your mornings have a soundtrack. Most of your listening happens between 5 and 9am.", c}

	case TypeCommuteListener:
		s, _ := stats.(CommuteStats)
		c.add(s.MorningShare > 0, "%s on the way in", fmtPercent(s.MorningShare))
		c.add(s.EveningShare > 0, "%s on the way home", fmtPercent(s.EveningShare))
		return Copy{"Commute Companion", "Music rides along with you at rush hour, morning and evening.", c}

	case TypeCompletionist:
		s, _ := stats.(SkipRateStats)
		c.add(s.Plays > 0, "%s skip rate", fmtPercent(s.SkipRate))
		c.add(s.Plays > 0, "%d plays", s.Plays)
		return Copy{"Completionist", "You almost never skip. Every song gets heard to the end.", c}

	case TypeCertifiedSkipper:
		s, _ := stats.(SkipRateStats)
		c.add(s.Plays > 0, "%s skip rate", fmtPercent(s.SkipRate))
		c.add(s.Skips > 0, "%d skips", s.Skips)
		return Copy{"Certified Skipper", "You know what you want, and it isn't the rest of this song.", c}

	case TypeDeepCutDigger:
		s, _ := stats.(DeepCutStats)
		c.add(s.Plays > 0, "%d plays", s.Plays)
		c.add(s.Hours > 0, "%s hours", fmtHours(s.Hours))
		return Copy{"Deep Cut Digger", fmt.Sprintf("You keep going back to %s.", or(entityName, "the same song")), c}

	case TypeLoyalFan:
		s, _ := stats.(ShareStats)
		c.add(s.Share > 0, "%s of your listening", fmtPercent(s.Share))
		c.add(s.Hours > 0, "%s hours", fmtHours(s.Hours))
		return Copy{"Loyal Fan", fmt.Sprintf("%s accounts for most of everything you play.", or(entityName, "One artist")), c}

	case TypeExplorer:
		s, _ := stats.(NewArtistsStats)
		c.add(s.NewArtists > 0, "%d new artists", s.NewArtists)
		c.add(s.WindowDays > 0, "in %d days", s.WindowDays)
		return Copy{"Explorer", "You've been branching out, finding artists you'd never heard before.", c}

	case TypeWeekendWarrior:
		s, _ := stats.(ShareStats)
		c.add(s.Share > 0, "%s on weekends", fmtPercent(s.Share))
		c.add(s.Hours > 0, "%s hours", fmtHours(s.Hours))
		return Copy{"Weekend Warrior", "Saturdays and Sundays are when the music really comes out.", c}

	case TypeWideTaste:
		s, _ := stats.(WideTasteStats)
		c.add(s.Artists > 0, "%d artists this month", s.Artists)
		c.add(s.TopShare > 0, "Top artist only %s", fmtPercent(s.TopShare))
		return Copy{"Wide Taste", "No single artist dominates your rotation.", c}

	case TypeRepeatOffender:
		s, _ := stats.(TopSongsShareStats)
		c.add(s.TopSongs > 0 && s.Share > 0, "Top %d songs = %s of plays", s.TopSongs, fmtPercent(s.Share))
		c.add(s.Plays > 0, "%d plays this month", s.Plays)
		return Copy{"Repeat Offender", "A handful of songs are doing all the heavy lifting.", c}

	case TypeAlbumListener:
		s, _ := stats.(AlbumRunStats)
		c.add(s.Runs > 0, "%d long runs", s.Runs)
		c.add(s.AvgRunLength > 0, "%s songs per run", fmtDecimal(s.AvgRunLength))
		c.add(s.TopArtist != "", "Mostly %s", s.TopArtist)
		c.add(s.TopSong != "", "Like %s", s.TopSong)
		return Copy{"Album Listener", "You listen in long same-artist runs, like a record front to back.", c}

	case TypeObsessionDaily:
		s, _ := stats.(DayPlaysStats)
		c.add(s.Plays > 0, "%d plays today", s.Plays)
		desc := fmt.Sprintf("%s is on repeat today.", or(entityName, "One song"))
		if s.Plays > 0 {
			desc = fmt.Sprintf("You've played %s %d times today.", or(entityName, "one song"), s.Plays)
		}
		return Copy{"Today's Obsession", desc, c}

	case TypeDailyRitual:
		s, _ := stats.(RitualStats)
		c.add(s.Days > 0, "%d days in a row", s.Days)
		c.add(s.Plays > 0, "%d plays", s.Plays)
		return Copy{"Daily Ritual", fmt.Sprintf("%s has been part of every single day this week.", or(entityName, "One song")), c}

	case TypeBreakupCandidate:
		s, _ := stats.(SkipCountStats)
		c.add(s.Skips > 0, "%d skips", s.Skips)
		c.add(s.WindowDays > 0, "in %d days", s.WindowDays)
		return Copy{"Breakup Candidate", fmt.Sprintf("You keep skipping %s. Everything okay?", or(entityName, "the same artist")), c}

	case TypeFastObsession:
		s, _ := stats.(FreshObsessionStats)
		c.add(s.Plays > 0, "%d plays", s.Plays)
		c.add(s.DaysSinceFirstHeard > 0, "First heard %d days ago", s.DaysSinceFirstHeard)
		return Copy{"Fast Obsession", fmt.Sprintf("%s went from new to heavy rotation in no time.", or(entityName, "A new song")), c}

	case TypeLongestSession:
		s, _ := stats.(SessionStats)
		c.add(s.DurationMs > 0, "%s", fmtDuration(s.DurationMs))
		desc := "Your longest listening session yet."
		if repeat {
			desc = "New record! You topped your longest listening session."
		}
		return Copy{"Longest Session", desc, c}

	case TypeQuickObsession:
		s, _ := stats.(FreshObsessionStats)
		c.add(s.Rank > 0, "#%d all time", s.Rank)
		c.add(s.Plays > 0, "%d plays", s.Plays)
		return Copy{"Quick Obsession", fmt.Sprintf("%s cracked your all-time top 5 within a week of hearing it.", or(entityName, "A new song")), c}

	case TypeDiscoveryWeek:
		s, _ := stats.(NewArtistsStats)
		c.add(s.NewArtists > 0, "%d new artists", s.NewArtists)
		return Copy{"Discovery Week", "So many new artists in a single week.", c}

	case TypeResurrection:
		s, _ := stats.(ResurrectionStats)
		c.add(s.PlaysToday > 0, "%d plays today", s.PlaysToday)
		c.add(s.DaysSincePrior > 0, "First played %d days ago", s.DaysSincePrior)
		return Copy{"Back From the Vault", fmt.Sprintf("%s is back in heavy rotation today.", or(entityName, "An old favorite")), c}

	case TypeNightBinge:
		s, _ := stats.(NightBingeStats)
		c.add(s.NightHours > 0, "%s hours after dark", fmtHours(s.NightHours))
		c.add(s.Day != "", "%s", fmtDay(s.Day))
		return Copy{"Night Binge", "You stayed up with the music well past midnight.", c}

	case TypeComfortZone:
		s, _ := stats.(TopSongsShareStats)
		c.add(s.TopSongs > 0 && s.Share > 0, "Top %d songs = %s of plays", s.TopSongs, fmtPercent(s.Share))
		return Copy{"Comfort Zone", "This week you stuck to your favorites.", c}

	case TypeRediscovery:
		s, _ := stats.(RediscoveryStats)
		c.add(s.PlaysThisWeek > 0, "%d plays this week", s.PlaysThisWeek)
		c.add(s.GapDays > 0, "%d days apart", s.GapDays)
		return Copy{"Rediscovery", fmt.Sprintf("You found your way back to %s.", or(entityName, "an old favorite")), c}

	case TypeSlowBurn:
		s, _ := stats.(SlowBurnStats)
		c.add(s.PlaysThisWeek > 0, "%d plays this week", s.PlaysThisWeek)
		c.add(s.DaysSinceFirstHeard > 0, "First heard %d days ago", s.DaysSinceFirstHeard)
		return Copy{"Slow Burn", fmt.Sprintf("%s took its time, but it's finally clicking.", or(entityName, "One song")), c}

	case TypeMarathonWeek:
		s, _ := stats.(MarathonStats)
		c.add(s.Hours > 0, "%s hours this week", fmtHours(s.Hours))
		c.add(s.PreviousBestHours > 0, "Previous best %s hours", fmtHours(s.PreviousBestHours))
		desc := "Your biggest listening week ever."
		if repeat {
			desc = "You beat your own record again. Biggest week ever."
		}
		return Copy{"Marathon Week", desc, c}

	case TypeFeatureUnlock:
		return Copy{"Feature Unlocked", "Something new is waiting for you.", nil}
	}

	return Copy{Title: humanize(string(t)), Description: "You reached a new moment in your listening."}
}

func milestoneCopy(prefix string, n int, entityName string, stats Stats, repeat bool) Copy {
	var c chips
	switch prefix {
	case PrefixSongPlays:
		s, _ := stats.(SongPlaysStats)
		c.add(s.Plays > 0, "%d plays", s.Plays)
		c.add(s.FirstHeardAt > 0, "Since %s", fmtMonth(s.FirstHeardAt))
		desc := fmt.Sprintf("You've played %s %d times", or(entityName, "this song"), n)
		if repeat {
			desc = fmt.Sprintf("%s just joined your %d-play club", or(entityName, "Another song"), n)
		}
		return Copy{fmt.Sprintf("%d Plays", n), desc, c}

	case PrefixArtistHours:
		s, _ := stats.(ArtistHoursStats)
		c.add(s.Hours > 0, "%s hours", fmtHours(s.Hours))
		c.add(s.Plays > 0, "%d plays", s.Plays)
		desc := fmt.Sprintf("You've spent %d hours listening to %s", n, or(entityName, "one artist"))
		if repeat {
			desc = fmt.Sprintf("%s is now one of your %d-hour artists", or(entityName, "Another artist"), n)
		}
		return Copy{fmt.Sprintf("%d Hours", n), desc, c}

	case PrefixStreak:
		s, _ := stats.(StreakStats)
		c.add(s.Days > 0, "%d days and counting", s.Days)
		desc := fmt.Sprintf("You've listened every day for %d days straight", n)
		if repeat {
			desc = fmt.Sprintf("Another %d-day streak. You keep showing up", n)
		}
		return Copy{fmt.Sprintf("%d-Day Streak", n), desc, c}

	case PrefixTotalHours:
		s, _ := stats.(TotalHoursStats)
		c.add(s.Hours > 0, "%s hours", fmtHours(s.Hours))
		c.add(s.Plays > 0, "%d plays", s.Plays)
		return Copy{fmt.Sprintf("%d Hours Listened", n), fmt.Sprintf("You've listened to %d hours of music", n), c}

	default: // PrefixSongsDiscovered
		s, _ := stats.(DiscoveryStats)
		c.add(s.DistinctSongs > 0, "%d songs", s.DistinctSongs)
		c.add(s.DistinctArtists > 0, "%d artists", s.DistinctArtists)
		return Copy{fmt.Sprintf("%d Songs Discovered", n), fmt.Sprintf("You've heard %d different songs", n), c}
	}
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// humanize turns "SOME_NEW_TYPE" into "Some New Type".
func humanize(tag string) string {
	words := strings.FieldsFunc(strings.ToLower(tag), func(r rune) bool { return r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return "New Moment"
	}
	return strings.Join(words, " ")
}

func fmtPercent(share float64) string {
	return strconv.Itoa(int(math.Round(share*100))) + "%"
}

func fmtDecimal(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func fmtHours(h float64) string {
	return fmtDecimal(h)
}

func fmtDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func fmtMonth(epochMs int64) string {
	return time.UnixMilli(epochMs).UTC().Format("Jan 2006")
}

func fmtDay(key string) string {
	t, err := time.Parse("2006-01-02", key)
	if err != nil {
		return key
	}
	return t.Format("Mon, Jan 2")
}
