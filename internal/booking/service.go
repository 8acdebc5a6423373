// Package booking implements the appointment booking workflow: validation,
// submission, status transitions, prescription attachment, deletion, and the
// cache invalidation each mutation requires.
package booking

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicdesk/dashboard/internal/appointments"
	"github.com/clinicdesk/dashboard/internal/cache"
	"github.com/clinicdesk/dashboard/internal/observability/metrics"
	"github.com/clinicdesk/dashboard/internal/schedule"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

var bookingTracer = otel.Tracer("clinicdesk.internal.booking")

// Store is the slice of the appointment store the workflow mutates.
type Store interface {
	Create(ctx context.Context, req appointments.BookingRequest) (*appointments.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status appointments.Status) error
	AttachPrescription(ctx context.Context, id string, p appointments.Prescription) error
	Delete(ctx context.Context, id string) error
}

// Service runs the booking workflow against the remote store. Nothing is
// inserted optimistically; the caches are invalidated so the next read
// reflects the server's state.
type Service struct {
	store   Store
	booked  *schedule.Resolver
	cache   *cache.Store
	logger  *logging.Logger
	metrics *metrics.DashboardMetrics

	newTrackingID func() string
}

// NewService constructs a booking service.
func NewService(store Store, booked *schedule.Resolver, cacheStore *cache.Store, logger *logging.Logger, m *metrics.DashboardMetrics) *Service {
	if store == nil {
		panic("booking: store required")
	}
	if booked == nil {
		panic("booking: resolver required")
	}
	if cacheStore == nil {
		panic("booking: cache required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:         store,
		booked:        booked,
		cache:         cacheStore,
		logger:        logger,
		metrics:       m,
		newTrackingID: schedule.NewTrackingID,
	}
}

// Request is a candidate booking as entered in the form.
type Request struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Address string `json:"address"`
	Mobile  string `json:"mobile"`
	Payment string `json:"payment"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// Result is a confirmed booking.
type Result struct {
	Appointment *appointments.Appointment
	TrackingID  string
}

// Book validates the candidate against the current booked-set and submits
// it. Any precondition failure returns a *ValidationError before a single
// request is issued.
func (s *Service) Book(ctx context.Context, req Request) (*Result, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinicdesk.date", req.Date),
		attribute.String("clinicdesk.time", req.Time),
	)

	if err := s.validate(ctx, req); err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("rejected")
		return nil, err
	}

	trackingID := s.newTrackingID()
	created, err := s.store.Create(ctx, appointments.BookingRequest{
		Name:       strings.TrimSpace(req.Name),
		Age:        req.Age,
		Address:    strings.TrimSpace(req.Address),
		Mobile:     strings.TrimSpace(req.Mobile),
		Payment:    strings.TrimSpace(req.Payment),
		Date:       req.Date,
		Time:       req.Time,
		TrackingID: trackingID,
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("failed")
		return nil, fmt.Errorf("booking: create failed: %w", err)
	}

	// The day's lists and booked-set are now stale; the next read refetches.
	s.cache.InvalidateDay(ctx, req.Date)

	s.metrics.ObserveBooking("created")
	s.logger.Info("appointment booked",
		"tracking_id", trackingID,
		"date", req.Date,
		"time", req.Time,
	)
	return &Result{Appointment: created, TrackingID: trackingID}, nil
}

func (s *Service) validate(ctx context.Context, req Request) error {
	if req.Date == "" {
		return errNoDate
	}
	if !schedule.ValidDate(req.Date) {
		return errBadDate
	}
	if req.Time == "" {
		return errNoSlot
	}
	if !schedule.IsSlot(req.Time) {
		return errUnknownSlot
	}
	if strings.TrimSpace(req.Name) == "" {
		return missingField("name")
	}
	if req.Age <= 0 {
		return missingField("age")
	}
	if strings.TrimSpace(req.Address) == "" {
		return missingField("address")
	}
	if strings.TrimSpace(req.Mobile) == "" {
		return missingField("mobile")
	}
	if strings.TrimSpace(req.Payment) == "" {
		return missingField("payment")
	}

	// A booked-set that could not be fetched resolves to empty: the guard
	// degrades and the store stays the authority on conflicts.
	if s.booked.BookedTimes(ctx, req.Date).Has(req.Time) {
		return errSlotTaken
	}
	return nil
}

// UpdateStatus moves an appointment between Pending and Completed. Both
// directions are permitted; the last successfully applied status wins.
func (s *Service) UpdateStatus(ctx context.Context, id string, status appointments.Status, date, trackingID string) error {
	ctx, span := bookingTracer.Start(ctx, "booking.update_status")
	defer span.End()

	if !status.Valid() {
		return &ValidationError{Field: "status", Message: "Status must be Pending or Completed."}
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: status update failed: %w", err)
	}
	if date != "" {
		s.cache.InvalidateDay(ctx, date)
	}
	s.cache.InvalidateHistory(ctx, trackingID)
	s.logger.Info("appointment status updated", "id", id, "status", status)
	return nil
}

// AttachPrescription stores the prescription record on an appointment.
func (s *Service) AttachPrescription(ctx context.Context, id string, p appointments.Prescription, trackingID string) error {
	ctx, span := bookingTracer.Start(ctx, "booking.attach_prescription")
	defer span.End()

	if err := s.store.AttachPrescription(ctx, id, p); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: prescription update failed: %w", err)
	}
	s.cache.InvalidateHistory(ctx, trackingID)
	s.logger.Info("prescription attached", "id", id, "medicines", len(p.Medicines))
	return nil
}

// Delete removes an appointment and drops the day's cached reads.
func (s *Service) Delete(ctx context.Context, id, date string) error {
	ctx, span := bookingTracer.Start(ctx, "booking.delete")
	defer span.End()

	if err := s.store.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: delete failed: %w", err)
	}
	if date != "" {
		s.cache.InvalidateDay(ctx, date)
	}
	s.logger.Info("appointment deleted", "id", id, "date", date)
	return nil
}
