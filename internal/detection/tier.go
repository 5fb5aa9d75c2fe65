// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

// Tier is the presentation emphasis of a moment. It never affects detection.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

var tierTable = map[Type]Tier{
	SongPlaysType(50):  TierBronze,
	SongPlaysType(100): TierSilver,
	SongPlaysType(250): TierGold,
	SongPlaysType(500): TierGold,

	ArtistHoursType(5):  TierBronze,
	ArtistHoursType(10): TierSilver,
	ArtistHoursType(24): TierGold,

	StreakType(7):   TierBronze,
	StreakType(14):  TierSilver,
	StreakType(30):  TierGold,
	StreakType(100): TierGold,

	TotalHoursType(24):   TierBronze,
	TotalHoursType(100):  TierSilver,
	TotalHoursType(500):  TierGold,
	TotalHoursType(1000): TierGold,

	SongsDiscoveredType(100): TierBronze,
	SongsDiscoveredType(250): TierSilver,
	SongsDiscoveredType(500): TierGold,

	TypeNightOwl:         TierSilver,
	TypeMorningListener:  TierSilver,
	TypeCommuteListener:  TierBronze,
	TypeCompletionist:    TierGold,
	TypeCertifiedSkipper: TierBronze,
	TypeDeepCutDigger:    TierGold,
	TypeLoyalFan:         TierGold,
	TypeExplorer:         TierSilver,
	TypeWeekendWarrior:   TierBronze,
	TypeWideTaste:        TierGold,
	TypeRepeatOffender:   TierBronze,
	TypeAlbumListener:    TierSilver,

	TypeObsessionDaily:   TierBronze,
	TypeDailyRitual:      TierSilver,
	TypeBreakupCandidate: TierBronze,
	TypeFastObsession:    TierSilver,
	TypeLongestSession:   TierSilver,
	TypeQuickObsession:   TierSilver,
	TypeDiscoveryWeek:    TierSilver,
	TypeResurrection:     TierSilver,
	TypeNightBinge:       TierBronze,
	TypeComfortZone:      TierBronze,
	TypeRediscovery:      TierGold,
	TypeSlowBurn:         TierGold,
	TypeMarathonWeek:     TierSilver,
}

// Classify returns the fixed tier of a moment type. Unmapped types are Silver.
func Classify(t Type) Tier {
	if tier, ok := tierTable[t]; ok {
		return tier
	}
	return TierSilver
}

// Bump raises a tier by one level. Gold stays Gold.
func (t Tier) Bump() Tier {
	switch t {
	case TierBronze:
		return TierSilver
	case TierSilver, TierGold:
		return TierGold
	default:
		return TierSilver
	}
}

// personalBest reports types whose re-occurrence means the listener beat
// their own record.
func personalBest(t Type) bool {
	return t == TypeLongestSession || t == TypeMarathonWeek
}
