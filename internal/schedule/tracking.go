package schedule

import (
	"crypto/rand"
	"regexp"
)

const trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var trackingPattern = regexp.MustCompile(`^APT-[A-Z0-9]{8}$`)

// NewTrackingID generates the human-shareable booking identifier: "APT-"
// followed by 8 uppercase alphanumerics. Generated once at booking time and
// never regenerated. Not checked against existing ids; the store is expected
// to enforce uniqueness if it cares.
func NewTrackingID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic("schedule: rand.Read: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return "APT-" + string(buf)
}

// ValidTrackingID reports whether id matches the tracking id format.
func ValidTrackingID(id string) bool {
	return trackingPattern.MatchString(id)
}
