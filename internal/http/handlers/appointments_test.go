package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/dashboard/internal/appointments"
	"github.com/clinicdesk/dashboard/internal/booking"
	"github.com/clinicdesk/dashboard/internal/cache"
	"github.com/clinicdesk/dashboard/internal/schedule"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

// fakeStore backs both the read handlers and the booking workflow.
type fakeStore struct {
	byDate    map[string][]appointments.Appointment
	listErr   error
	byID      map[string]*appointments.Appointment
	history   map[string][]appointments.Appointment
	patients  []appointments.Patient
	listCalls int

	created    []appointments.BookingRequest
	createErr  error
	statusByID map[string]appointments.Status
	deleted    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byDate:     make(map[string][]appointments.Appointment),
		byID:       make(map[string]*appointments.Appointment),
		history:    make(map[string][]appointments.Appointment),
		statusByID: make(map[string]appointments.Status),
	}
}

func (f *fakeStore) ListByDate(_ context.Context, date, q string) ([]appointments.Appointment, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	list := f.byDate[date]
	if q == "" {
		return list, nil
	}
	var out []appointments.Appointment
	for _, apt := range list {
		if strings.Contains(strings.ToLower(apt.Name), strings.ToLower(q)) ||
			strings.Contains(apt.TrackingID, q) || strings.Contains(apt.Mobile, q) {
			out = append(out, apt)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]appointments.Appointment, error) {
	var out []appointments.Appointment
	for _, list := range f.byDate {
		out = append(out, list...)
	}
	return out, nil
}

func (f *fakeStore) ListForPatientView(ctx context.Context) ([]appointments.Appointment, error) {
	return f.ListAll(ctx)
}

func (f *fakeStore) Get(_ context.Context, id string) (*appointments.Appointment, error) {
	if apt, ok := f.byID[id]; ok {
		return apt, nil
	}
	return nil, &appointments.APIError{StatusCode: 404, Message: "Appointment not found"}
}

func (f *fakeStore) HistoryByTrackingID(_ context.Context, trackingID string) ([]appointments.Appointment, error) {
	return f.history[trackingID], nil
}

func (f *fakeStore) SearchPatients(_ context.Context, q string) ([]appointments.Patient, error) {
	if len(q) < 2 {
		return nil, nil
	}
	return f.patients, nil
}

func (f *fakeStore) ListPatients(_ context.Context, _ string) ([]appointments.Patient, error) {
	return f.patients, nil
}

func (f *fakeStore) Create(_ context.Context, req appointments.BookingRequest) (*appointments.Appointment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	apt := appointments.Appointment{
		ID: "srv-1", Name: req.Name, Age: req.Age, Address: req.Address,
		Mobile: req.Mobile, Payment: req.Payment, TrackingID: req.TrackingID,
		Date: req.Date, Time: req.Time,
	}
	f.byDate[req.Date] = append(f.byDate[req.Date], apt)
	f.byID[apt.ID] = &apt
	return &apt, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status appointments.Status) error {
	f.statusByID[id] = status
	return nil
}

func (f *fakeStore) AttachPrescription(_ context.Context, id string, p appointments.Prescription) error {
	if apt, ok := f.byID[id]; ok {
		apt.Prescription = &p
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fixture struct {
	store  *fakeStore
	cache  *cache.Store
	router *chi.Mux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := logging.New("error")
	cacheStore := cache.New(rdb, time.Minute, logger, nil)
	resolver := schedule.NewResolver(store, cacheStore, logger)
	svc := booking.NewService(store, resolver, cacheStore, logger, nil)

	h := NewAppointments(AppointmentsConfig{
		Store:      store,
		Booking:    svc,
		Resolver:   resolver,
		Cache:      cacheStore,
		Location:   time.FixedZone("BDT", 6*3600),
		ClinicName: "City Clinic",
		DoctorName: "Dr. Roy",
		Logger:     logger,
		Now:        func() time.Time { return time.Date(2025, 10, 31, 20, 30, 0, 0, time.UTC) },
	})

	r := chi.NewRouter()
	r.Route("/api", h.Routes)
	return &fixture{store: store, cache: cacheStore, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func validBooking() map[string]any {
	return map[string]any{
		"name": "Jane Doe", "age": 30, "address": "Dhaka",
		"mobile": "01710000001", "payment": "Cash",
		"date": "2025-11-01", "time": "9:10 AM",
	}
}

func TestSlotGridMarksBookedSlots(t *testing.T) {
	f := newFixture(t)
	f.store.byDate["2025-11-01"] = []appointments.Appointment{
		{ID: "a1", Time: "9:00 AM"},
		{ID: "a2", Time: "2:30 PM"},
	}

	rec := f.do(t, http.MethodGet, "/api/slots?date=2025-11-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Date  string          `json:"date"`
		Slots []schedule.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, schedule.SlotCount)

	booked := 0
	for _, slot := range resp.Slots {
		if slot.Booked {
			booked++
			assert.Contains(t, []string{"9:00 AM", "2:30 PM"}, slot.Label)
		}
	}
	assert.Equal(t, 2, booked)
	assert.Equal(t, "12:00 AM", resp.Slots[0].Label)
	assert.Equal(t, "11:50 PM", resp.Slots[len(resp.Slots)-1].Label)
}

func TestSlotGridWithoutDateIsAllFree(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.store.listCalls, "no upstream call without a date")

	var resp struct {
		Slots []schedule.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	for _, slot := range resp.Slots {
		require.False(t, slot.Booked)
	}
}

func TestSlotGridDegradesToAllFreeWhenStoreDown(t *testing.T) {
	f := newFixture(t)
	f.store.listErr = errors.New("store list down")

	rec := f.do(t, http.MethodGet, "/api/slots?date=2025-11-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Slots []schedule.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, schedule.SlotCount)
	for _, slot := range resp.Slots {
		require.False(t, slot.Booked)
	}

	// And a booking on that date still goes through; the store remains the
	// authority on conflicts.
	rec = f.do(t, http.MethodPost, "/api/appointments", validBooking())
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, f.store.created, 1)
}

func TestSlotGridRejectsMalformedDate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/slots?date=01-11-2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListByDateReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	f.store.byDate["2025-11-01"] = []appointments.Appointment{{ID: "a1", Name: "Jane"}}

	rec := f.do(t, http.MethodGet, "/api/appointments?date=2025-11-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.store.listCalls)

	rec = f.do(t, http.MethodGet, "/api/appointments?date=2025-11-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.store.listCalls, "second read must come from cache")
}

func TestListByDateRequiresDate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/appointments", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTodayUsesClinicTimezone(t *testing.T) {
	// 2025-10-31 20:30 UTC is already 2025-11-01 in the clinic timezone.
	f := newFixture(t)
	f.store.byDate["2025-11-01"] = []appointments.Appointment{{ID: "a1", Name: "Jane"}}

	rec := f.do(t, http.MethodGet, "/api/appointments/today", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "2025-11-01", resp["date"])
	assert.Len(t, resp["appointments"], 1)
}

func TestBookReturnsTrackingID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/appointments", validBooking())
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode(t, rec)
	trackingID, _ := resp["trackingId"].(string)
	assert.True(t, schedule.ValidTrackingID(trackingID), "trackingId %q", trackingID)
	require.Len(t, f.store.created, 1)
	assert.Equal(t, trackingID, f.store.created[0].TrackingID)
}

func TestBookBookedSlotAnswers422WithoutCreate(t *testing.T) {
	f := newFixture(t)
	f.store.byDate["2025-11-01"] = []appointments.Appointment{{ID: "a1", Time: "9:10 AM"}}

	rec := f.do(t, http.MethodPost, "/api/appointments", validBooking())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, f.store.created)
}

func TestBookSurfacesServerMessageAs502(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = &appointments.APIError{StatusCode: 409, Message: "Time slot already booked"}

	rec := f.do(t, http.MethodPost, "/api/appointments", validBooking())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Time slot already booked", decode(t, rec)["error"])
}

func TestBookingScenario(t *testing.T) {
	// Two booked slots, grid disables exactly those two, booking a free slot
	// issues exactly one create call and the next grid read shows it taken.
	f := newFixture(t)
	f.store.byDate["2025-11-01"] = []appointments.Appointment{
		{ID: "a1", Time: "9:00 AM"},
		{ID: "a2", Time: "2:30 PM"},
	}

	rec := f.do(t, http.MethodGet, "/api/slots?date=2025-11-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var grid struct {
		Slots []schedule.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	booked := 0
	for _, slot := range grid.Slots {
		if slot.Booked {
			booked++
		}
	}
	require.Equal(t, 2, booked)

	rec = f.do(t, http.MethodPost, "/api/appointments", validBooking())
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.store.created, 1)

	rec = f.do(t, http.MethodGet, "/api/slots?date=2025-11-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	found := false
	for _, slot := range grid.Slots {
		if slot.Label == "9:10 AM" {
			found = slot.Booked
		}
	}
	assert.True(t, found, "freshly booked slot must show as taken")
}

func TestUpdateStatusAppliesAndInvalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.SetHistory(ctx, "APT-A1B2C3D4", []appointments.Appointment{{ID: "a1"}})

	rec := f.do(t, http.MethodPatch, "/api/appointments/a1/status", map[string]any{
		"status": "Completed", "date": "2025-11-01", "trackingId": "APT-A1B2C3D4",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointments.StatusCompleted, f.store.statusByID["a1"])

	_, ok := f.cache.GetHistory(ctx, "APT-A1B2C3D4")
	assert.False(t, ok)

	rec = f.do(t, http.MethodPatch, "/api/appointments/a1/status", map[string]any{
		"status": "Pending",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointments.StatusPending, f.store.statusByID["a1"])
}

func TestUpdateStatusRejectsUnknownState(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPatch, "/api/appointments/a1/status", map[string]any{
		"status": "Archived",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAttachPrescriptionReturnsPrintURL(t *testing.T) {
	f := newFixture(t)
	f.store.byID["a1"] = &appointments.Appointment{ID: "a1", Name: "Jane Doe", Date: "2025-11-01", Time: "9:10 AM"}

	rec := f.do(t, http.MethodPut, "/api/appointments/a1/prescription", map[string]any{
		"trackingId": "APT-A1B2C3D4",
		"prescription": map[string]any{
			"medicines":           []map[string]string{{"name": "Napa", "dosage": "500mg", "instructions": "After meals"}},
			"tests":               []string{"CBC"},
			"generalInstructions": "Rest well.",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/appointments/a1/print", decode(t, rec)["printUrl"])
	require.NotNil(t, f.store.byID["a1"].Prescription)

	rec = f.do(t, http.MethodGet, "/api/appointments/a1/print", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Napa")
	assert.Contains(t, body, "City Clinic")
	assert.Contains(t, body, "window.print()")
}

func TestGetDefaultsAbsentStatusToPending(t *testing.T) {
	f := newFixture(t)
	f.store.byID["a1"] = &appointments.Appointment{ID: "a1", Name: "Jane Doe"}

	rec := f.do(t, http.MethodGet, "/api/appointments/a1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pending", decode(t, rec)["status"])
}

func TestPrintWithoutPrescriptionIs404(t *testing.T) {
	f := newFixture(t)
	f.store.byID["a1"] = &appointments.Appointment{ID: "a1", Name: "Jane Doe"}

	rec := f.do(t, http.MethodGet, "/api/appointments/a1/print", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteInvalidatesDayCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.SetDayList(ctx, "2025-11-01", "", []appointments.Appointment{{ID: "a1"}})

	rec := f.do(t, http.MethodDelete, "/api/appointments/a1?date=2025-11-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a1"}, f.store.deleted)

	_, ok := f.cache.GetDayList(ctx, "2025-11-01", "")
	assert.False(t, ok)
}

func TestHistoryReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	f.store.history["APT-A1B2C3D4"] = []appointments.Appointment{{ID: "a1"}, {ID: "a2"}}

	rec := f.do(t, http.MethodGet, "/api/history/APT-A1B2C3D4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Len(t, resp["history"], 2)

	// Cached copy answers even after the store forgets.
	f.store.history = map[string][]appointments.Appointment{}
	rec = f.do(t, http.MethodGet, "/api/history/APT-A1B2C3D4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["history"], 2)
}

func TestHistoryUnknownTrackingIDIsEmptyList(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/history/APT-ZZZZZZZZ", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["history"], 0)
}

func TestSearchPatientsShortTermIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.store.patients = []appointments.Patient{{Name: "Jane Doe"}}

	rec := f.do(t, http.MethodGet, "/api/patients/search?q=j", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["patients"], 0)

	rec = f.do(t, http.MethodGet, "/api/patients/search?q=ja", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["patients"], 1)
}

func TestListPatients(t *testing.T) {
	f := newFixture(t)
	f.store.patients = []appointments.Patient{{Name: "Jane Doe"}, {Name: "John Roe"}}

	rec := f.do(t, http.MethodGet, "/api/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["patients"], 2)
}
