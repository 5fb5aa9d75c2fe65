// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/tomtom215/earmark/internal/config"
	"github.com/tomtom215/earmark/internal/database"
	"github.com/tomtom215/earmark/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests; concurrent CGO
// connections can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// testNow is Wednesday 2024-03-13 20:00 UTC, ISO week 2024-W11.
var testNow = time.Date(2024, 3, 13, 20, 0, 0, 0, time.UTC)

// day returns epoch ms for hour:minute UTC, n days before testNow's date.
func day(n, hour, minute int) int64 {
	midnight := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -n).
		Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute).
		UnixMilli()
}

func play(title, artist string, startedAt, durationMs int64, completed bool) models.PlayRequest {
	return models.PlayRequest{
		Title:      title,
		Artist:     artist,
		StartedAt:  startedAt,
		DurationMs: durationMs,
		AppID:      "com.example.player",
		Completed:  completed,
	}
}

// repeatPlays returns n completed plays of one song, gap apart.
func repeatPlays(title, artist string, n int, start int64, gap time.Duration, durationMs int64) []models.PlayRequest {
	plays := make([]models.PlayRequest, n)
	for i := range plays {
		plays[i] = play(title, artist, start+int64(i)*gap.Milliseconds(), durationMs, true)
	}
	return plays
}

// dailyPlays returns one completed play at noon on each listed day.
func dailyPlays(title, artist string, days ...int) []models.PlayRequest {
	plays := make([]models.PlayRequest, 0, len(days))
	for _, d := range days {
		plays = append(plays, play(title, artist, day(d, 12, 0), 3*msPerMinute, true))
	}
	return plays
}

func dayRange(from, to int) []int {
	days := make([]int, 0, to-from+1)
	for d := from; d <= to; d++ {
		days = append(days, d)
	}
	return days
}

func concat(groups ...[]models.PlayRequest) []models.PlayRequest {
	var all []models.PlayRequest
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

type testEnv struct {
	db    *database.DB
	store *DuckDBStore
	det   *Detector
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 1})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

func setupEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	store := NewDuckDBStore(db.Conn())
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	det, err := NewDetector(db, store, cfg)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	det.SetClock(func() time.Time { return testNow })
	t.Cleanup(func() { _ = det.Close() })

	return &testEnv{db: db, store: store, det: det}
}

func (e *testEnv) record(t *testing.T, plays []models.PlayRequest) []models.ListeningEvent {
	t.Helper()
	events, err := e.db.RecordPlays(context.Background(), plays)
	if err != nil {
		t.Fatalf("RecordPlays failed: %v", err)
	}
	return events
}

func (e *testEnv) detect(t *testing.T) []Moment {
	t.Helper()
	moments, err := e.det.DetectAndPersistNewMoments(context.Background())
	if err != nil {
		t.Fatalf("DetectAndPersistNewMoments failed: %v", err)
	}
	return moments
}

func findMoment(moments []Moment, typ Type) *Moment {
	for i := range moments {
		if moments[i].Type == typ {
			return &moments[i]
		}
	}
	return nil
}

func typesOf(moments []Moment) []string {
	out := make([]string, 0, len(moments))
	for _, m := range moments {
		out = append(out, fmt.Sprintf("%s[%s]", m.Type, m.EntityKey))
	}
	return out
}

// recordingNotifier captures sent moments.
type recordingNotifier struct {
	name    string
	enabled bool

	mu   sync.Mutex
	sent []Moment
}

func (n *recordingNotifier) Send(_ context.Context, m *Moment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, *m)
	return nil
}

func (n *recordingNotifier) Name() string { return n.name }
func (n *recordingNotifier) Enabled() bool { return n.enabled }

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// recordingBroadcaster captures WebSocket broadcasts.
type recordingBroadcaster struct {
	mu    sync.Mutex
	types []string
}

func (b *recordingBroadcaster) BroadcastJSON(messageType string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.types = append(b.types, messageType)
}

// recordingPublisher captures event bus publishes.
type recordingPublisher struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (p *recordingPublisher) PublishMoment(_ context.Context, m *Moment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, m.ID)
	return nil
}

// failingEvents fails TopSongs and delegates everything else.
type failingEvents struct {
	EventStore
	err error
}

func (f failingEvents) TopSongs(context.Context, models.SongFilter) ([]models.SongTotal, error) {
	return nil, f.err
}
