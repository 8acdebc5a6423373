package appointments

// Status is the lifecycle state of an appointment. Both transitions between
// the two states are permitted.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is one of the two known states.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// OrDefault returns the status, treating an absent value as Pending.
func (s Status) OrDefault() Status {
	if s == "" {
		return StatusPending
	}
	return s
}

// Medicine is one line of a prescription.
type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions"`
}

// Prescription is the record a doctor attaches to an appointment.
type Prescription struct {
	Medicines           []Medicine `json:"medicines"`
	Tests               []string   `json:"tests"`
	GeneralInstructions string     `json:"generalInstructions"`
}

// Appointment mirrors the appointment store's document shape. The store
// assigns the ID; the dashboard only ever holds a cached, possibly-stale copy.
type Appointment struct {
	ID           string        `json:"_id"`
	Name         string        `json:"name"`
	Age          int           `json:"age"`
	Address      string        `json:"address"`
	Mobile       string        `json:"mobile"`
	Payment      string        `json:"payment"`
	TrackingID   string        `json:"trackingId"`
	Date         string        `json:"date"` // YYYY-MM-DD
	Time         string        `json:"time"` // slot label, e.g. "9:10 AM"
	Status       Status        `json:"status,omitempty"`
	Prescription *Prescription `json:"prescription,omitempty"`
}

// BookingRequest is the payload for creating an appointment.
type BookingRequest struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Address    string `json:"address"`
	Mobile     string `json:"mobile"`
	Payment    string `json:"payment"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	TrackingID string `json:"trackingId"`
}

// Patient is a row in the patient directory views.
type Patient struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Address string `json:"address"`
	Mobile  string `json:"mobile"`
	Date    string `json:"date,omitempty"`
}
