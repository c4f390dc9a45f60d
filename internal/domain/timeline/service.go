package timeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelog/carelog/internal/platform/cache"
	"github.com/carelog/carelog/internal/platform/telemetry"
	"github.com/carelog/carelog/pkg/recerr"
)

// Service is the timeline aggregator. It merges source records into the
// per-patient event sequence and owns the ordering, dedup, and default
// display invariants. It holds no mutable state of its own: rebuild is a
// pure function of the source snapshot, so concurrent rebuilds for the same
// patient are safe and a losing optimistic write is simply discarded.
type Service struct {
	repo     Repository
	sources  SourceLoader
	defaults KindDefaults
	cache    *cache.TimelineCache
	metrics  *telemetry.Metrics
	logger   zerolog.Logger
}

func NewService(repo Repository, sources SourceLoader, defaults KindDefaults, tlCache *cache.TimelineCache, metrics *telemetry.Metrics, logger zerolog.Logger) *Service {
	if defaults == nil {
		defaults = DefaultKindDefaults()
	}
	return &Service{
		repo:     repo,
		sources:  sources,
		defaults: defaults,
		cache:    tlCache,
		metrics:  metrics,
		logger:   logger,
	}
}

// merge normalizes, deduplicates, and orders a source snapshot. It is pure:
// two calls with the same snapshot produce identical sequences.
func (s *Service) merge(records []SourceRecord) ([]TimelineEvent, error) {
	events := make([]TimelineEvent, 0, len(records))
	byID := make(map[string]int, len(records))

	for _, rec := range records {
		ev, err := Normalize(rec)
		if err != nil {
			return nil, err
		}
		if idx, seen := byID[ev.ID]; seen {
			// Last write wins on duplicate identifiers. A duplicate means two
			// source records claim the same event, which is a data-integrity
			// problem upstream, not a reason to fail the rebuild.
			s.logger.Warn().
				Str("event_id", ev.ID).
				Str("kind", string(ev.Kind)).
				Msg("duplicate event id in timeline sources, keeping latest")
			events[idx] = ev
			continue
		}
		byID[ev.ID] = len(events)
		events = append(events, ev)
	}

	// Stable sort keeps ingestion order for equal dates, which makes the
	// output deterministic across rebuilds from the same snapshot.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})

	for i := range events {
		s.resolveDisplay(&events[i])
	}
	return events, nil
}

func (s *Service) resolveDisplay(ev *TimelineEvent) {
	d, ok := s.defaults[ev.Kind]
	if !ok {
		return
	}
	if ev.Color == "" {
		ev.Color = d.Color
	}
	if ev.Icon == "" {
		ev.Icon = d.Icon
	}
}

// Rebuild materializes the timeline for a patient from the current source
// snapshot and saves it. Losing an optimistic write is not an error: the
// winner rebuilt from the same or a newer snapshot, so its result stands.
func (s *Service) Rebuild(ctx context.Context, patientID string) (*Timeline, error) {
	if patientID == "" {
		return nil, &recerr.ValidationError{Field: "patient_id", Reason: "must not be empty"}
	}

	start := time.Now()
	records, err := s.sources.LoadTimelineSources(ctx, patientID)
	if err != nil {
		s.observeRebuild("error", start, 0)
		return nil, err
	}

	events, err := s.merge(records)
	if err != nil {
		s.observeRebuild("invalid_source", start, 0)
		return nil, err
	}

	tl, err := s.repo.Load(ctx, patientID)
	switch {
	case err == nil:
	case recerr.IsNotFound(err):
		tl = &Timeline{
			ID:        uuid.New().String(),
			PatientID: patientID,
			CreatedAt: time.Now().UTC(),
		}
	default:
		s.observeRebuild("error", start, 0)
		return nil, err
	}

	tl.Events = events
	tl.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, tl); err != nil {
		if recerr.IsConflict(err) {
			// A concurrent rebuild committed first. Its result already
			// reflects the current snapshot, so return it instead of retrying.
			s.logger.Debug().Str("patient_id", patientID).Msg("discarding stale timeline rebuild")
			s.observeRebuild("superseded", start, len(events))
			return s.repo.Load(ctx, patientID)
		}
		s.observeRebuild("error", start, 0)
		return nil, err
	}

	s.cache.Set(ctx, patientID, tl)
	s.observeRebuild("success", start, len(events))
	return tl, nil
}

func (s *Service) observeRebuild(outcome string, start time.Time, eventCount int) {
	if s.metrics == nil {
		return
	}
	s.metrics.TimelineRebuilds.WithLabelValues(outcome).Inc()
	s.metrics.TimelineRebuildDuration.Observe(time.Since(start).Seconds())
	if outcome == "success" {
		s.metrics.TimelineEvents.Set(float64(eventCount))
	}
}

// Get returns the patient's timeline, from cache when possible, rebuilding
// when no timeline has been materialized yet.
func (s *Service) Get(ctx context.Context, patientID string) (*Timeline, error) {
	if patientID == "" {
		return nil, &recerr.ValidationError{Field: "patient_id", Reason: "must not be empty"}
	}
	var cached Timeline
	if s.cache.Get(ctx, patientID, &cached) {
		return &cached, nil
	}
	tl, err := s.repo.Load(ctx, patientID)
	if recerr.IsNotFound(err) {
		return s.Rebuild(ctx, patientID)
	}
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, patientID, tl)
	return tl, nil
}

// Invalidate drops any cached timeline for the patient. Called by source
// domains after a write that changes what Rebuild would produce.
func (s *Service) Invalidate(ctx context.Context, patientID string) {
	s.cache.Invalidate(ctx, patientID)
}

// Append inserts one event into the patient's stored timeline and commits
// it under the version check. When no timeline has been materialized yet the
// event's source row is already committed, so a full rebuild picks it up
// instead. A losing version check returns the ConflictError; the cache is
// dropped so the next read sees the committed state.
func (s *Service) Append(ctx context.Context, patientID string, ev TimelineEvent) error {
	tl, err := s.repo.Load(ctx, patientID)
	if recerr.IsNotFound(err) {
		_, err = s.Rebuild(ctx, patientID)
		return err
	}
	if err != nil {
		return err
	}
	if err := s.AppendEvent(tl, ev); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, tl); err != nil {
		s.cache.Invalidate(ctx, patientID)
		return err
	}
	s.cache.Set(ctx, patientID, tl)
	return nil
}

// AppendEvent inserts one event into an already-materialized timeline,
// keeping the date order without re-sorting the whole sequence. Ties insert
// after existing events with the same date, matching the stable-sort order a
// full rebuild would produce.
func (s *Service) AppendEvent(tl *Timeline, ev TimelineEvent) error {
	if ev.ID == "" {
		return &recerr.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if ev.Date.IsZero() {
		return &recerr.ValidationError{Field: "date", Reason: "must carry a resolvable event date"}
	}
	if !ev.Kind.Valid() {
		return &recerr.ValidationError{Field: "kind", Reason: "unknown event kind " + string(ev.Kind)}
	}
	if !ev.Ref.Matches(ev.Kind) {
		return &recerr.ValidationError{Field: "ref", Reason: "reference payload must match event kind " + string(ev.Kind)}
	}
	for _, existing := range tl.Events {
		if existing.ID == ev.ID {
			return &recerr.ValidationError{Field: "id", Reason: "event " + ev.ID + " already present"}
		}
	}

	s.resolveDisplay(&ev)

	idx := sort.Search(len(tl.Events), func(i int) bool {
		return tl.Events[i].Date.After(ev.Date)
	})
	tl.Events = append(tl.Events, TimelineEvent{})
	copy(tl.Events[idx+1:], tl.Events[idx:])
	tl.Events[idx] = ev
	tl.UpdatedAt = time.Now().UTC()
	return nil
}

// EventsByKind filters a timeline's events to one kind, preserving order.
func EventsByKind(tl *Timeline, kind EventKind) []TimelineEvent {
	var out []TimelineEvent
	for _, ev := range tl.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// EventsInRange returns the patient's events with dates in [from, to].
// A zero from or to leaves that side unbounded.
func (s *Service) EventsInRange(ctx context.Context, patientID string, from, to time.Time) ([]TimelineEvent, error) {
	tl, err := s.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	var out []TimelineEvent
	for _, ev := range tl.Events {
		if !from.IsZero() && ev.Date.Before(from) {
			continue
		}
		if !to.IsZero() && ev.Date.After(to) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
