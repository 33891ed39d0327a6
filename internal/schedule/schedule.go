// Package schedule computes the bookable time labels of a business day
// and classifies them against the appointments already holding them.
package schedule

import (
	"fmt"
	"time"

	"github.com/salonbook/apiserver/types"
)

const defaultStep = 30 * time.Minute

// Range is a half-open span of the day, [Start, End), in minutes since midnight.
type Range struct {
	Start int
	End   int
}

// Hours describes when the salon takes appointments.
type Hours struct {
	// Open lists the weekdays with bookable slots.
	Open map[time.Weekday]bool
	// Ranges are the bookable spans of an open day, in ascending order.
	Ranges []Range
	// Step is the distance between consecutive labels.
	Step time.Duration
}

// DefaultHours is Tuesday through Saturday, 08:30–13:00 and 15:00–19:00,
// every thirty minutes.
var DefaultHours = Hours{
	Open: map[time.Weekday]bool{
		time.Tuesday:   true,
		time.Wednesday: true,
		time.Thursday:  true,
		time.Friday:    true,
		time.Saturday:  true,
	},
	Ranges: []Range{
		{Start: 8*60 + 30, End: 13 * 60},
		{Start: 15 * 60, End: 19 * 60},
	},
	Step: defaultStep,
}

// Labels returns the ordered slot labels of the given weekday. Closed days
// yield an empty slice.
func (h Hours) Labels(day time.Weekday) []string {
	labels := []string{}
	if !h.Open[day] {
		return labels
	}

	step := int(h.Step / time.Minute)
	if step <= 0 {
		step = int(defaultStep / time.Minute)
	}

	for _, r := range h.Ranges {
		for m := r.Start; m < r.End; m += step {
			labels = append(labels, fmt.Sprintf("%02d:%02d", m/60, m%60))
		}
	}
	return labels
}

// Slots pairs every label of the weekday with its availability. A label is
// busy iff it appears verbatim in busy.
func (h Hours) Slots(day time.Weekday, busy []string) []types.Slot {
	taken := make(map[string]struct{}, len(busy))
	for _, t := range busy {
		taken[t] = struct{}{}
	}

	labels := h.Labels(day)
	slots := make([]types.Slot, 0, len(labels))
	for _, label := range labels {
		status := types.SlotFree
		if _, ok := taken[label]; ok {
			status = types.SlotBusy
		}
		slots = append(slots, types.Slot{Time: label, Status: status})
	}
	return slots
}

// ParseDate parses a YYYY-MM-DD calendar day in UTC.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(types.DateLayout, raw)
}

// ParseTime validates a HH:MM slot label.
func ParseTime(raw string) error {
	if len(raw) != len(types.TimeLayout) {
		return fmt.Errorf("invalid time %q", raw)
	}
	_, err := time.Parse(types.TimeLayout, raw)
	return err
}
