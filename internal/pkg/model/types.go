package model

import "time"

// Transition records one successfully dispatched state change.
type Transition struct {
	Device string    `json:"device"`
	Slug   string    `json:"slug"`
	Slot   int       `json:"slot"`
	On     bool      `json:"on"`
	At     time.Time `json:"at"`
	Price  float64   `json:"price"`
}

// StateString renders an on/off flag the way logs and sinks expect it.
func StateString(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
