// Package appointments holds the appointment-store data model and the HTTP
// client consuming the remote store that owns all persistence.
package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clinicdesk/dashboard/internal/observability/metrics"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

// MinSearchLength is the minimum query length before the patient autocomplete
// issues a request.
const MinSearchLength = 2

// Client talks to the external appointment store.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.DashboardMetrics
}

// Config holds configuration for the store client.
type Config struct {
	BaseURL string
	APIKey  string // optional bearer token
	Timeout time.Duration
	Logger  *logging.Logger
	Metrics *metrics.DashboardMetrics
}

// NewClient creates a new appointment store client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("appointments: BaseURL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// ListByDate lists appointments for a date, optionally text-filtered by
// name, tracking id, or mobile.
// Store API: GET /appointments?date=<YYYY-MM-DD>&q=<term>
func (c *Client) ListByDate(ctx context.Context, date, q string) ([]Appointment, error) {
	params := url.Values{}
	params.Set("date", date)
	if strings.TrimSpace(q) != "" {
		params.Set("q", strings.TrimSpace(q))
	}
	var list []Appointment
	if err := c.do(ctx, "list_by_date", http.MethodGet, "/appointments", params, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListAll lists every appointment regardless of date.
// Store API: GET /appointments
func (c *Client) ListAll(ctx context.Context) ([]Appointment, error) {
	var list []Appointment
	if err := c.do(ctx, "list_all", http.MethodGet, "/appointments", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListForPatientView lists appointments for the patient-list view.
// Store API: GET /appointmentsList
func (c *Client) ListForPatientView(ctx context.Context) ([]Appointment, error) {
	var list []Appointment
	if err := c.do(ctx, "list_patient_view", http.MethodGet, "/appointmentsList", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get fetches one appointment by its store-assigned identifier.
// Store API: GET /appointments/<id>
func (c *Client) Get(ctx context.Context, id string) (*Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("appointments: id is required")
	}
	var apt Appointment
	if err := c.do(ctx, "get", http.MethodGet, "/appointments/"+url.PathEscape(id), nil, nil, &apt); err != nil {
		return nil, err
	}
	return &apt, nil
}

// HistoryByTrackingID fetches every appointment sharing a tracking identifier.
// Store API: GET /patient?trackingId=<id>
func (c *Client) HistoryByTrackingID(ctx context.Context, trackingID string) ([]Appointment, error) {
	if strings.TrimSpace(trackingID) == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("trackingId", trackingID)
	var list []Appointment
	if err := c.do(ctx, "history", http.MethodGet, "/patient", params, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Create books an appointment.
// Store API: POST /appointments
func (c *Client) Create(ctx context.Context, req BookingRequest) (*Appointment, error) {
	var created Appointment
	if err := c.do(ctx, "create", http.MethodPost, "/appointments", nil, req, &created); err != nil {
		return nil, err
	}
	c.logger.Info("appointment created",
		"tracking_id", req.TrackingID,
		"date", req.Date,
		"time", req.Time,
	)
	return &created, nil
}

// UpdateStatus issues a partial update changing only the status field.
// Store API: PATCH /appointments/<id> {"status": ...}
func (c *Client) UpdateStatus(ctx context.Context, id string, status Status) error {
	body := map[string]Status{"status": status}
	return c.do(ctx, "update_status", http.MethodPatch, "/appointments/"+url.PathEscape(id), nil, body, nil)
}

// AttachPrescription issues a partial update setting the prescription record.
// Store API: PATCH /appointments/<id> {"prescription": ...}
func (c *Client) AttachPrescription(ctx context.Context, id string, p Prescription) error {
	body := map[string]Prescription{"prescription": p}
	return c.do(ctx, "attach_prescription", http.MethodPatch, "/appointments/"+url.PathEscape(id), nil, body, nil)
}

// Delete removes an appointment.
// Store API: DELETE /appointments/<id>
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/appointments/"+url.PathEscape(id), nil, nil, nil)
}

// SearchPatients runs the autocomplete patient lookup. Queries shorter than
// MinSearchLength return an empty result without issuing a request.
// Store API: GET /patients/search?q=<term>
func (c *Client) SearchPatients(ctx context.Context, q string) ([]Patient, error) {
	q = strings.TrimSpace(q)
	if len(q) < MinSearchLength {
		return nil, nil
	}
	params := url.Values{}
	params.Set("q", q)
	var list []Patient
	if err := c.do(ctx, "search_patients", http.MethodGet, "/patients/search", params, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListPatients lists or searches the patient directory.
// Store API: GET /patients?q=<term>
func (c *Client) ListPatients(ctx context.Context, q string) ([]Patient, error) {
	params := url.Values{}
	if strings.TrimSpace(q) != "" {
		params.Set("q", strings.TrimSpace(q))
	}
	var list []Patient
	if err := c.do(ctx, "list_patients", http.MethodGet, "/patients", params, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// do issues one request and decodes the JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, operation, method, path string, params url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("appointments: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("appointments: failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveUpstream("store", operation, "transport_error", time.Since(start).Seconds())
		return fmt.Errorf("appointments: request failed: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream("store", operation, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("appointments: failed to decode response: %w", err)
	}
	return nil
}
