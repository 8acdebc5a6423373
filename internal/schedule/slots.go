// Package schedule computes the bookable slot universe and which slots a
// given day has already consumed.
package schedule

import "fmt"

// SlotCount is the number of bookable slots in a day: every 10 minutes from
// 00:00 to 23:50.
const SlotCount = 144

var (
	slotLabels []string
	slotIndex  map[string]int
)

func init() {
	slotLabels = make([]string, 0, SlotCount)
	slotIndex = make(map[string]int, SlotCount)
	for hour := 0; hour < 24; hour++ {
		for minute := 0; minute < 60; minute += 10 {
			period := "AM"
			if hour >= 12 {
				period = "PM"
			}
			display := hour % 12
			if display == 0 {
				display = 12
			}
			label := fmt.Sprintf("%d:%02d %s", display, minute, period)
			slotIndex[label] = len(slotLabels)
			slotLabels = append(slotLabels, label)
		}
	}
}

// Slots returns the ordered labels of every bookable slot in a day, from
// "12:00 AM" to "11:50 PM". The universe is day-invariant; only booked-ness
// varies by day.
func Slots() []string {
	out := make([]string, SlotCount)
	copy(out, slotLabels)
	return out
}

// IsSlot reports whether label is one of the day's bookable slot labels.
func IsSlot(label string) bool {
	_, ok := slotIndex[label]
	return ok
}

// Slot is one entry of the day grid a user picks from.
type Slot struct {
	Label  string `json:"label"`
	Booked bool   `json:"booked"`
}

// Grid projects the slot universe against a booked-set: every slot in order,
// marked booked when its label appears in the set.
func Grid(booked BookedSet) []Slot {
	grid := make([]Slot, SlotCount)
	for i, label := range slotLabels {
		grid[i] = Slot{Label: label, Booked: booked.Has(label)}
	}
	return grid
}
