// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"fmt"
	"time"
)

const (
	msPerMinute = int64(60_000)
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// window holds every time boundary of one detection run. It is computed once
// from a single "now" so a run stays internally consistent however long it
// takes.
//
// The zone offset in effect at "now" is applied to the whole run; calendar
// buckets across a DST change may be off by an hour.
type window struct {
	now        time.Time // in the run's fixed zone
	nowMs      int64
	offsetMs   int64
	todayStart int64
	today      string // 2006-01-02
	weekKey    string // 2006-W01
	yearMonth  string // 2006-01
}

func newWindow(now time.Time, loc *time.Location) window {
	if loc == nil {
		loc = time.UTC
	}
	_, offsetSec := now.In(loc).Zone()
	zone := time.FixedZone("run", offsetSec)
	local := now.In(zone)

	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	year, week := local.ISOWeek()

	return window{
		now:        local,
		nowMs:      now.UnixMilli(),
		offsetMs:   int64(offsetSec) * 1000,
		todayStart: midnight.UnixMilli(),
		today:      local.Format("2006-01-02"),
		weekKey:    fmt.Sprintf("%04d-W%02d", year, week),
		yearMonth:  local.Format("2006-01"),
	}
}

// trailing returns the epoch ms exactly n days before now.
func (w window) trailing(days int) int64 {
	return w.nowMs - int64(days)*msPerDay
}

// dayStart returns the epoch ms of local midnight n days before today.
func (w window) dayStart(daysAgo int) int64 {
	return w.todayStart - int64(daysAgo)*msPerDay
}

// dayKey returns the "2006-01-02" key of the local day n days before today.
func (w window) dayKey(daysAgo int) string {
	return w.now.AddDate(0, 0, -daysAgo).Format("2006-01-02")
}

// daysSince returns whole days elapsed between epoch ms t and now.
func (w window) daysSince(t int64) int {
	if t >= w.nowMs {
		return 0
	}
	return int((w.nowMs - t) / msPerDay)
}

// calendarDaysBefore returns how many local calendar days the day holding
// epoch ms t lies before today. Times today or later return 0.
func (w window) calendarDaysBefore(t int64) int {
	if t >= w.todayStart {
		return 0
	}
	return int((w.todayStart - t + msPerDay - 1) / msPerDay)
}

// weekday parses a day key in the run's zone.
func weekday(dayKey string) (time.Weekday, bool) {
	t, err := time.Parse("2006-01-02", dayKey)
	if err != nil {
		return 0, false
	}
	return t.Weekday(), true
}
