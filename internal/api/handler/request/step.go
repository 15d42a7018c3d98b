package request

import "time"

// StopStep optionally carries the moment the step actually ended; the server
// clock is used when absent.
type StopStep struct {
	EndDate *time.Time `json:"endDate,omitempty"`
}
