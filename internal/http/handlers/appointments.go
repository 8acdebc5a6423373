package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicdesk/dashboard/internal/appointments"
	"github.com/clinicdesk/dashboard/internal/booking"
	"github.com/clinicdesk/dashboard/internal/cache"
	"github.com/clinicdesk/dashboard/internal/prescription"
	"github.com/clinicdesk/dashboard/internal/schedule"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

// Store is the slice of the appointment-store client the read handlers use.
type Store interface {
	ListByDate(ctx context.Context, date, q string) ([]appointments.Appointment, error)
	ListAll(ctx context.Context) ([]appointments.Appointment, error)
	ListForPatientView(ctx context.Context) ([]appointments.Appointment, error)
	Get(ctx context.Context, id string) (*appointments.Appointment, error)
	HistoryByTrackingID(ctx context.Context, trackingID string) ([]appointments.Appointment, error)
	SearchPatients(ctx context.Context, q string) ([]appointments.Patient, error)
	ListPatients(ctx context.Context, q string) ([]appointments.Patient, error)
}

// Appointments serves the scheduling surface.
type Appointments struct {
	store    Store
	booking  *booking.Service
	resolver *schedule.Resolver
	cache    *cache.Store
	location *time.Location
	now      func() time.Time

	clinicName string
	doctorName string

	logger *logging.Logger
}

// AppointmentsConfig wires the scheduling handler.
type AppointmentsConfig struct {
	Store      Store
	Booking    *booking.Service
	Resolver   *schedule.Resolver
	Cache      *cache.Store
	Location   *time.Location
	ClinicName string
	DoctorName string
	Logger     *logging.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewAppointments creates the scheduling handler.
func NewAppointments(cfg AppointmentsConfig) *Appointments {
	if cfg.Store == nil || cfg.Booking == nil || cfg.Resolver == nil || cfg.Cache == nil {
		panic("handlers: store, booking, resolver and cache are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Appointments{
		store:      cfg.Store,
		booking:    cfg.Booking,
		resolver:   cfg.Resolver,
		cache:      cfg.Cache,
		location:   cfg.Location,
		now:        now,
		clinicName: cfg.ClinicName,
		doctorName: cfg.DoctorName,
		logger:     logger,
	}
}

// Routes mounts the scheduling endpoints on r.
func (h *Appointments) Routes(r chi.Router) {
	r.Get("/slots", h.SlotGrid)
	r.Get("/appointments", h.ListByDate)
	r.Get("/appointments/today", h.ListToday)
	r.Get("/appointments/all", h.ListAll)
	r.Get("/appointments/view", h.ListForPatientView)
	r.Post("/appointments", h.Book)
	r.Get("/appointments/{id}", h.Get)
	r.Patch("/appointments/{id}/status", h.UpdateStatus)
	r.Put("/appointments/{id}/prescription", h.AttachPrescription)
	r.Get("/appointments/{id}/print", h.Print)
	r.Delete("/appointments/{id}", h.Delete)
	r.Get("/history/{trackingID}", h.History)
	r.Get("/patients/search", h.SearchPatients)
	r.Get("/patients", h.ListPatients)
}

// SlotGrid returns all 144 slots for a date with their booked flags. Without
// a date every slot is free.
func (h *Appointments) SlotGrid(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" && !schedule.ValidDate(date) {
		respondMessage(w, http.StatusBadRequest, "The date must be in YYYY-MM-DD format.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"slots": schedule.Grid(h.resolver.BookedTimes(r.Context(), date)),
	})
}

// ListByDate returns the appointments for a date, optionally filtered by a
// search term, read through the day-list cache.
func (h *Appointments) ListByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		respondMessage(w, http.StatusBadRequest, "A date is required.")
		return
	}
	if !schedule.ValidDate(date) {
		respondMessage(w, http.StatusBadRequest, "The date must be in YYYY-MM-DD format.")
		return
	}
	h.respondDayList(w, r, date, strings.TrimSpace(r.URL.Query().Get("q")))
}

// ListToday resolves "today" in the clinic timezone and returns that day's
// appointments.
func (h *Appointments) ListToday(w http.ResponseWriter, r *http.Request) {
	date := schedule.Today(h.now(), h.location)
	h.respondDayList(w, r, date, strings.TrimSpace(r.URL.Query().Get("q")))
}

func (h *Appointments) respondDayList(w http.ResponseWriter, r *http.Request, date, q string) {
	ctx := r.Context()
	if list, ok := h.cache.GetDayList(ctx, date, q); ok {
		respondJSON(w, http.StatusOK, map[string]any{"date": date, "appointments": list})
		return
	}

	list, err := h.store.ListByDate(ctx, date, q)
	if err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []appointments.Appointment{}
	}
	h.cache.SetDayList(ctx, date, q, list)
	respondJSON(w, http.StatusOK, map[string]any{"date": date, "appointments": list})
}

// ListAll returns every appointment in the store.
func (h *Appointments) ListAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListAll(r.Context())
	if err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"appointments": list})
}

// ListForPatientView returns the reduced listing the patient-facing view
// uses.
func (h *Appointments) ListForPatientView(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListForPatientView(r.Context())
	if err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"appointments": list})
}

// Get returns a single appointment.
func (h *Appointments) Get(w http.ResponseWriter, r *http.Request) {
	apt, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	apt.Status = apt.Status.OrDefault()
	respondJSON(w, http.StatusOK, apt)
}

// History returns the visit history behind a tracking id, read through the
// history cache. An unknown tracking id yields an empty list.
func (h *Appointments) History(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")
	ctx := r.Context()

	if history, ok := h.cache.GetHistory(ctx, trackingID); ok {
		respondJSON(w, http.StatusOK, map[string]any{"trackingId": trackingID, "history": history})
		return
	}

	history, err := h.store.HistoryByTrackingID(ctx, trackingID)
	if err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	if history == nil {
		history = []appointments.Appointment{}
	}
	h.cache.SetHistory(ctx, trackingID, history)
	respondJSON(w, http.StatusOK, map[string]any{"trackingId": trackingID, "history": history})
}

// Book runs the booking workflow and answers 201 with the tracking id.
func (h *Appointments) Book(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := decodeBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "The booking payload could not be read.")
		return
	}

	result, err := h.booking.Book(r.Context(), req)
	if err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"trackingId":  result.TrackingID,
		"appointment": result.Appointment,
	})
}

// UpdateStatus flips an appointment between Pending and Completed.
func (h *Appointments) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status     appointments.Status `json:"status"`
		Date       string              `json:"date"`
		TrackingID string              `json:"trackingId"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "The status payload could not be read.")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.booking.UpdateStatus(r.Context(), id, req.Status, req.Date, req.TrackingID); err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

// AttachPrescription stores a prescription on an appointment and returns the
// URL of the printable document so the client can open it immediately.
func (h *Appointments) AttachPrescription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prescription appointments.Prescription `json:"prescription"`
		TrackingID   string                    `json:"trackingId"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "The prescription payload could not be read.")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.booking.AttachPrescription(r.Context(), id, req.Prescription, req.TrackingID); err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"printUrl": "/api/appointments/" + id + "/print",
	})
}

// Print renders the standalone printable prescription document.
func (h *Appointments) Print(w http.ResponseWriter, r *http.Request) {
	apt, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	if apt.Prescription == nil {
		respondMessage(w, http.StatusNotFound, "This appointment has no prescription yet.")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = prescription.Render(w, prescription.Document{
		ClinicName: h.clinicName,
		DoctorName: h.doctorName,
		Patient:    *apt,
		IssuedAt:   h.now(),
	})
	if err != nil {
		h.logger.Error("failed to render prescription", "appointment_id", apt.ID, "error", err)
	}
}

// Delete removes an appointment.
func (h *Appointments) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	date := r.URL.Query().Get("date")
	if err := h.booking.Delete(r.Context(), id, date); err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// SearchPatients answers the autocomplete. Terms under two characters yield
// an empty result without touching the store.
func (h *Appointments) SearchPatients(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	patients, err := h.store.SearchPatients(r.Context(), q)
	if err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	if patients == nil {
		patients = []appointments.Patient{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

// ListPatients returns the patient directory, optionally filtered.
func (h *Appointments) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.store.ListPatients(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		respondWorkflowError(w, h.logger, err)
		return
	}
	if patients == nil {
		patients = []appointments.Patient{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"patients": patients})
}
