// Package cache is the shared response cache for appointment-store reads.
// Invalidation is expressed as named, typed operations rather than ad hoc key
// strings so the scope of every mutation stays auditable.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicdesk/dashboard/internal/appointments"
	"github.com/clinicdesk/dashboard/internal/observability/metrics"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

// Store caches appointment-store responses in Redis. A cache failure is
// never fatal: reads degrade to a miss, writes are logged and dropped.
type Store struct {
	redis   *redis.Client
	ttl     time.Duration
	tracer  trace.Tracer
	logger  *logging.Logger
	metrics *metrics.DashboardMetrics
}

// New creates a response cache. Entries expire after ttl except the
// last-known booked-set kept for stale-while-error fallback.
func New(rdb *redis.Client, ttl time.Duration, logger *logging.Logger, m *metrics.DashboardMetrics) *Store {
	if rdb == nil {
		panic("cache: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		redis:   rdb,
		ttl:     ttl,
		tracer:  otel.Tracer("clinicdesk.internal.cache"),
		logger:  logger,
		metrics: m,
	}
}

func dayListKey(date, q string) string {
	return fmt.Sprintf("appointments:day:%s:q:%s", date, q)
}

func bookedKey(date string) string {
	return fmt.Sprintf("booked:%s", date)
}

func bookedLastKey(date string) string {
	return fmt.Sprintf("booked:last:%s", date)
}

func historyKey(trackingID string) string {
	return fmt.Sprintf("history:%s", trackingID)
}

// GetDayList returns the cached appointment list for (date, q) if present.
func (s *Store) GetDayList(ctx context.Context, date, q string) ([]appointments.Appointment, bool) {
	var list []appointments.Appointment
	ok := s.get(ctx, "day_list", dayListKey(date, q), &list)
	return list, ok
}

// SetDayList caches the appointment list for (date, q).
func (s *Store) SetDayList(ctx context.Context, date, q string, list []appointments.Appointment) {
	s.set(ctx, dayListKey(date, q), list, s.ttl)
}

// GetBookedTimes returns the fresh booked slot labels for a date if present.
func (s *Store) GetBookedTimes(ctx context.Context, date string) ([]string, bool) {
	var times []string
	ok := s.get(ctx, "booked_times", bookedKey(date), &times)
	return times, ok
}

// GetBookedTimesStale returns the last successfully fetched booked-set for a
// date regardless of freshness. Used when the store is unreachable.
func (s *Store) GetBookedTimesStale(ctx context.Context, date string) ([]string, bool) {
	var times []string
	ok := s.get(ctx, "booked_times_stale", bookedLastKey(date), &times)
	return times, ok
}

// SetBookedTimes caches the booked-set for a date, updating both the fresh
// entry and the last-known fallback.
func (s *Store) SetBookedTimes(ctx context.Context, date string, times []string) {
	s.set(ctx, bookedKey(date), times, s.ttl)
	s.set(ctx, bookedLastKey(date), times, 0)
}

// GetHistory returns the cached appointment history for a tracking id.
func (s *Store) GetHistory(ctx context.Context, trackingID string) ([]appointments.Appointment, bool) {
	var list []appointments.Appointment
	ok := s.get(ctx, "history", historyKey(trackingID), &list)
	return list, ok
}

// SetHistory caches the appointment history for a tracking id.
func (s *Store) SetHistory(ctx context.Context, trackingID string, list []appointments.Appointment) {
	s.set(ctx, historyKey(trackingID), list, s.ttl)
}

// InvalidateDay drops every cached read derived from a single date: the
// fresh booked-set and all (date, q) appointment lists. The last-known
// booked-set survives as the stale-while-error fallback until the next
// successful fetch overwrites it.
func (s *Store) InvalidateDay(ctx context.Context, date string) {
	ctx, span := s.tracer.Start(ctx, "cache.invalidate_day")
	defer span.End()

	keys := []string{bookedKey(date)}
	iter := s.redis.Scan(ctx, 0, dayListKey(date, "*"), 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("cache scan failed during invalidation", "date", date, "error", err)
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("cache invalidation failed", "date", date, "error", err)
		return
	}
	s.logger.Debug("cache invalidated for day", "date", date, "keys", len(keys))
}

// InvalidateHistory drops the cached history for a tracking id.
func (s *Store) InvalidateHistory(ctx context.Context, trackingID string) {
	if trackingID == "" {
		return
	}
	if err := s.redis.Del(ctx, historyKey(trackingID)).Err(); err != nil {
		s.logger.Warn("history invalidation failed", "tracking_id", trackingID, "error", err)
	}
}

func (s *Store) get(ctx context.Context, entry, key string, out any) bool {
	ctx, span := s.tracer.Start(ctx, "cache.get")
	defer span.End()

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.RecordError(err)
			s.logger.Warn("cache read failed", "key", key, "error", err)
		}
		s.metrics.ObserveCache(entry, "miss")
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		span.RecordError(err)
		s.logger.Warn("cache entry corrupt", "key", key, "error", err)
		s.metrics.ObserveCache(entry, "miss")
		return false
	}
	s.metrics.ObserveCache(entry, "hit")
	return true
}

func (s *Store) set(ctx context.Context, key string, value any, ttl time.Duration) {
	ctx, span := s.tracer.Start(ctx, "cache.set")
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
