// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/earmark/internal/logging"
	"github.com/tomtom215/earmark/internal/metrics"
	"github.com/tomtom215/earmark/internal/models"
)

// Config tunes the detector. Zero-valued threshold lists fall back to the
// defaults.
type Config struct {
	Timezone             string
	DisabledRules        []string
	SongPlayThresholds   []int
	ArtistHourThresholds []int
	StreakThresholds     []int
	TotalHourThresholds  []int
	DiscoveryThresholds  []int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Timezone:             "UTC",
		SongPlayThresholds:   []int{50, 100, 250, 500},
		ArtistHourThresholds: []int{5, 10, 24},
		StreakThresholds:     []int{7, 14, 30, 100},
		TotalHourThresholds:  []int{24, 100, 500, 1000},
		DiscoveryThresholds:  []int{100, 250, 500},
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	c.SongPlayThresholds = sortedThresholds(c.SongPlayThresholds, def.SongPlayThresholds)
	c.ArtistHourThresholds = sortedThresholds(c.ArtistHourThresholds, def.ArtistHourThresholds)
	c.StreakThresholds = sortedThresholds(c.StreakThresholds, def.StreakThresholds)
	c.TotalHourThresholds = sortedThresholds(c.TotalHourThresholds, def.TotalHourThresholds)
	c.DiscoveryThresholds = sortedThresholds(c.DiscoveryThresholds, def.DiscoveryThresholds)
}

// sortedThresholds returns an ascending copy of list, or of def when list is
// empty. The caller's slice is never reordered.
func sortedThresholds(list, def []int) []int {
	if len(list) == 0 {
		list = def
	}
	out := make([]int, len(list))
	copy(out, list)
	sort.Ints(out)
	return out
}

// candidate is a moment a rule wants to create, before copy and tier.
type candidate struct {
	Type       Type
	EntityKey  string
	EntityName string
	SongID     *int64
	ArtistID   *int64
	ImageURL   string
	Stats      Stats
}

// run is the per-invocation state shared by rule families.
type run struct {
	events EventStore
	cfg    *Config
	w      window

	totals *models.Totals
}

// allTime returns history-wide totals, queried at most once per run.
func (r *run) allTime(ctx context.Context) (models.Totals, error) {
	if r.totals != nil {
		return *r.totals, nil
	}
	t, err := r.events.Totals(ctx, 0, 0)
	if err != nil {
		return t, err
	}
	r.totals = &t
	return t, nil
}

// rule is one independent rule family.
type rule struct {
	name   string
	detect func(ctx context.Context, r *run) ([]candidate, error)
}

// RuleStatus describes a registered rule family.
type RuleStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// RunMetrics summarizes detector activity since startup.
type RunMetrics struct {
	Runs           int64     `json:"runs"`
	MomentsCreated int64     `json:"moments_created"`
	RuleErrors     int64     `json:"rule_errors"`
	LastRunAt      time.Time `json:"last_run_at"`
	LastDurationMs int64     `json:"last_duration_ms"`
}

// Detector evaluates every rule family against the event store and persists
// moments that have never been created before.
type Detector struct {
	events  EventStore
	moments MomentStore
	cfg     Config
	loc     *time.Location
	now     func() time.Time
	rules   []rule

	mu          sync.RWMutex
	disabled    map[string]bool
	notifiers   []Notifier
	broadcaster Broadcaster
	publisher   Publisher
	stats       RunMetrics

	// runMu keeps at most one run in flight.
	runMu      sync.Mutex
	dispatchWG sync.WaitGroup
}

// NewDetector creates a detector with every rule family registered.
func NewDetector(events EventStore, moments MomentStore, cfg Config) (*Detector, error) {
	cfg.applyDefaults()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid detection timezone %q: %w", cfg.Timezone, err)
	}

	d := &Detector{
		events:   events,
		moments:  moments,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
		rules:    allRules(),
		disabled: make(map[string]bool),
	}

	for _, name := range cfg.DisabledRules {
		if err := d.SetRuleEnabled(name, false); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SetClock replaces the time source. Used by tests and replays.
func (d *Detector) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// RegisterNotifier adds a notification channel.
func (d *Detector) RegisterNotifier(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, n)
}

// SetBroadcaster sets the real-time broadcaster.
func (d *Detector) SetBroadcaster(b Broadcaster) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcaster = b
}

// SetPublisher sets the event bus publisher.
func (d *Detector) SetPublisher(p Publisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publisher = p
}

// Rules lists registered rule families in evaluation order.
func (d *Detector) Rules() []RuleStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	statuses := make([]RuleStatus, 0, len(d.rules))
	for _, r := range d.rules {
		statuses = append(statuses, RuleStatus{Name: r.name, Enabled: !d.disabled[r.name]})
	}
	return statuses
}

// SetRuleEnabled enables or disables a rule family by name.
func (d *Detector) SetRuleEnabled(name string, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range d.rules {
		if r.name == name {
			if enabled {
				delete(d.disabled, name)
			} else {
				d.disabled[name] = true
			}
			return nil
		}
	}
	return fmt.Errorf("rule not found: %s", name)
}

// Metrics returns a copy of the run counters.
func (d *Detector) Metrics() RunMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

func (d *Detector) activeRules() []rule {
	d.mu.RLock()
	defer d.mu.RUnlock()

	active := make([]rule, 0, len(d.rules))
	for _, r := range d.rules {
		if !d.disabled[r.name] {
			active = append(active, r)
		}
	}
	return active
}

// DetectAndPersistNewMoments runs every enabled rule family once and returns
// the moments created by this call. They are already persisted.
//
// A second call with no new listening data returns nothing. Rule and store
// failures do not stop the run: the moments created so far are returned
// together with the joined errors, and a retry only creates what is still
// missing. Cancelling ctx stops the remaining families.
func (d *Detector) DetectAndPersistNewMoments(ctx context.Context) ([]Moment, error) {
	if !d.runMu.TryLock() {
		metrics.DetectionRuns.WithLabelValues("busy").Inc()
		return nil, ErrRunInProgress
	}
	defer d.runMu.Unlock()

	d.mu.RLock()
	now := d.now()
	d.mu.RUnlock()

	start := time.Now()
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	logger := logging.Ctx(ctx)

	if n, err := d.moments.BackfillArtistImages(ctx); err != nil {
		logger.Warn().Err(err).Msg("artist image backfill failed")
	} else if n > 0 {
		logger.Debug().Int64("updated", n).Msg("backfilled artist images")
	}

	r := &run{events: d.events, cfg: &d.cfg, w: newWindow(now, d.loc)}

	var created []Moment
	var errs []error
	for _, rl := range d.activeRules() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		candidates, err := rl.detect(ctx, r)
		if err != nil {
			metrics.RecordRuleError(rl.name)
			errs = append(errs, &RuleError{Rule: rl.name, Err: err})
			continue
		}

		for _, c := range candidates {
			m, err := d.persist(ctx, r.w, c)
			if err != nil {
				metrics.RecordRuleError(rl.name)
				errs = append(errs, &RuleError{Rule: rl.name, Err: err})
				continue
			}
			if m != nil {
				created = append(created, *m)
				metrics.RecordMomentCreated(string(m.Type), string(m.Tier))
			}
		}
	}

	if len(created) > 0 {
		if _, err := d.moments.RecordUnlock(ctx, "first_moment", r.w.now.UTC()); err != nil {
			logger.Warn().Err(err).Msg("failed to record feature unlock")
		}
		d.dispatch(ctx, created)
	}

	runErr := errors.Join(errs...)
	elapsed := time.Since(start)
	d.recordRun(len(created), len(errs), start, elapsed)

	result := "success"
	if runErr != nil {
		result = "partial"
	}
	metrics.RecordDetectionRun(result, elapsed)

	logger.Info().
		Int("created", len(created)).
		Int("errors", len(errs)).
		Dur("duration", elapsed).
		Msg("detection run completed")

	return created, runErr
}

// persist applies the idempotency check, composes copy and inserts. It
// returns nil without error when the moment already exists.
func (d *Detector) persist(ctx context.Context, w window, c candidate) (*Moment, error) {
	exists, err := d.moments.ExistsByTypeAndKey(ctx, c.Type, c.EntityKey)
	if err != nil {
		return nil, fmt.Errorf("exists check %s/%s: %w", c.Type, c.EntityKey, err)
	}
	if exists {
		return nil, nil
	}

	variant, err := d.moments.CountByType(ctx, c.Type)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", c.Type, err)
	}

	text := ComposeCopy(c.Type, c.EntityName, c.Stats, variant)
	tier := Classify(c.Type)
	if variant > 0 && personalBest(c.Type) {
		tier = tier.Bump()
	}

	m := &Moment{
		Type:        c.Type,
		EntityKey:   c.EntityKey,
		TriggeredAt: w.now.UTC(),
		Title:       text.Title,
		Description: text.Description,
		StatLines:   text.StatLines,
		SongID:      c.SongID,
		ArtistID:    c.ArtistID,
		EntityName:  c.EntityName,
		ImageURL:    c.ImageURL,
		CopyVariant: variant,
		Tier:        tier,
		Stats:       c.Stats,
	}
	if m.StatLines == nil {
		m.StatLines = []string{}
	}

	inserted, err := d.moments.InsertIfAbsent(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("insert %s/%s: %w", c.Type, c.EntityKey, err)
	}
	if !inserted {
		// Lost a race with a concurrent writer.
		return nil, nil
	}
	return m, nil
}

func (d *Detector) recordRun(created, errCount int, start time.Time, elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Runs++
	d.stats.MomentsCreated += int64(created)
	d.stats.RuleErrors += int64(errCount)
	d.stats.LastRunAt = start
	d.stats.LastDurationMs = elapsed.Milliseconds()
}

// Close waits for in-flight notifications.
func (d *Detector) Close() error {
	d.dispatchWG.Wait()
	return nil
}

func int64Ptr(v int64) *int64 {
	return &v
}
