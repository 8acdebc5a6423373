package schedule

import (
	"context"
	"sort"

	"github.com/clinicdesk/dashboard/internal/appointments"
	"github.com/clinicdesk/dashboard/internal/cache"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

// BookedSet is the set of slot labels already consumed on a date.
type BookedSet map[string]struct{}

// Has reports whether the label is already booked.
func (s BookedSet) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// Labels returns the set's labels in slot order.
func (s BookedSet) Labels() []string {
	labels := make([]string, 0, len(s))
	for label := range s {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		return slotIndex[labels[i]] < slotIndex[labels[j]]
	})
	return labels
}

func newBookedSet(labels []string) BookedSet {
	set := make(BookedSet, len(labels))
	for _, label := range labels {
		set[label] = struct{}{}
	}
	return set
}

// DayLister is the slice of the appointment store the resolver needs.
type DayLister interface {
	ListByDate(ctx context.Context, date, q string) ([]appointments.Appointment, error)
}

// Resolver derives the booked-set for a date from the appointment store,
// caching per date so reselecting the same date does not re-fetch until an
// invalidation.
type Resolver struct {
	store  DayLister
	cache  *cache.Store
	logger *logging.Logger
}

// NewResolver creates a booked-slots resolver.
func NewResolver(store DayLister, cacheStore *cache.Store, logger *logging.Logger) *Resolver {
	if store == nil {
		panic("schedule: store required")
	}
	if cacheStore == nil {
		panic("schedule: cache required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{store: store, cache: cacheStore, logger: logger}
}

// BookedTimes returns the set of occupied slot labels on date. An empty date
// short-circuits to an empty set without issuing a request. A fetch failure
// serves the last successfully fetched set for the date; only when nothing
// was ever fetched does it surface no occupied slots. The empty fallback is
// not cached, so the next read retries the store.
func (r *Resolver) BookedTimes(ctx context.Context, date string) BookedSet {
	if date == "" {
		return BookedSet{}
	}

	if times, ok := r.cache.GetBookedTimes(ctx, date); ok {
		return newBookedSet(times)
	}

	list, err := r.store.ListByDate(ctx, date, "")
	if err != nil {
		if times, ok := r.cache.GetBookedTimesStale(ctx, date); ok {
			r.logger.Warn("serving stale booked-set after fetch failure", "date", date, "error", err)
			return newBookedSet(times)
		}
		r.logger.Warn("booked-set fetch failed on first load, duplicate guard degraded", "date", date, "error", err)
		return BookedSet{}
	}

	set := make(BookedSet, len(list))
	for _, apt := range list {
		if apt.Time != "" {
			set[apt.Time] = struct{}{}
		}
	}
	r.cache.SetBookedTimes(ctx, date, set.Labels())
	return set
}
