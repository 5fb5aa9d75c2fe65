// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/earmark/internal/models"
)

const (
	msPerHour = int64(3_600_000)
	msPerDay  = 24 * msPerHour
)

// buildInClause creates a parameterized IN clause for SQL queries.
//
//	placeholders, args := buildInClause([]int{22, 23, 0})
//	// placeholders = "?,?,?"
func buildInClause(items []int) (string, []interface{}) {
	placeholders := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		placeholders[i] = "?"
		args[i] = item
	}
	return strings.Join(placeholders, ","), args
}

// windowConditions appends started_at bounds for alias e. The base query
// must already carry "WHERE 1=1".
func windowConditions(since, until int64) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if since > 0 {
		conditions = append(conditions, "e.started_at >= ?")
		args = append(args, since)
	}
	if until > 0 {
		conditions = append(conditions, "e.started_at < ?")
		args = append(args, until)
	}

	if len(conditions) > 0 {
		return " AND " + strings.Join(conditions, " AND "), args
	}
	return "", args
}

func songFilterConditions(f *models.SongFilter) (string, []interface{}) {
	where, args := windowConditions(f.Since, f.Until)
	if f.Artist != "" {
		where += " AND a.name = ?"
		args = append(args, f.Artist)
	}
	return where, args
}

// localHourExpr buckets a shifted epoch into local hour of day (0-23).
func localHourExpr() string {
	return fmt.Sprintf("(((e.started_at + ?) %% %d) // %d)", msPerDay, msPerHour)
}

// localDayExpr buckets a shifted epoch into whole days since the epoch.
func localDayExpr() string {
	return fmt.Sprintf("((e.started_at + ?) // %d)", msPerDay)
}

// dayNumberKey formats a day number produced by localDayExpr as "2006-01-02".
func dayNumberKey(day int64) string {
	return unixDay(day).Format("2006-01-02")
}

// dayNumberWeekKey formats the ISO week containing a day number as "2006-W01".
func dayNumberWeekKey(day int64) string {
	year, week := unixDay(day).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func unixDay(day int64) time.Time {
	return time.UnixMilli(day * msPerDay).UTC()
}
