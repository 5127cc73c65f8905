package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	TimeSlotLayout = "3:04 PM"

	// ServiceWindow is how long one booking blocks the kitchen and staff.
	ServiceWindow = 4 * time.Hour
)

// TimeSlots are the bookable start times of a day, one event per slot.
var TimeSlots = [...]string{
	"6:00 AM", "7:00 AM", "8:00 AM", "9:00 AM", "10:00 AM", "11:00 AM",
	"12:00 PM", "1:00 PM", "2:00 PM", "3:00 PM", "4:00 PM", "5:00 PM",
	"6:00 PM", "7:00 PM",
}

var timeSlotIndex = func() map[string]int {
	m := make(map[string]int, len(TimeSlots))
	for i, slot := range TimeSlots {
		m[slot] = i
	}
	return m
}()

func IsValidTimeSlot(label string) bool {
	_, ok := timeSlotIndex[label]
	return ok
}

// ParseTimeSlot parses a "3:04 PM" style label. Surrounding spaces and
// lower-case meridiem are tolerated.
func ParseTimeSlot(label string) (time.Time, error) {
	t, err := time.Parse(TimeSlotLayout, strings.ToUpper(strings.TrimSpace(label)))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time slot %q: %w", label, err)
	}
	return t, nil
}

// ServiceWindowEnd returns the label at which a booking starting at label ends
// and whether that end falls on the following day.
func ServiceWindowEnd(label string) (string, bool, error) {
	start, err := ParseTimeSlot(label)
	if err != nil {
		return "", false, err
	}
	end := start.Add(ServiceWindow)
	return end.Format(TimeSlotLayout), end.Day() != start.Day(), nil
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return d, nil
}

// Today returns the current calendar date in UTC.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
