package report

import "time"

// Report is a field incident submitted from the dashboard.
type Report struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Note      string    `json:"note"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	State     string    `json:"state"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRequest is the HTTP payload of a new report.
type CreateRequest struct {
	Type     string  `json:"type" validate:"required,notblank,max=64"`
	Severity string  `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Note     string  `json:"note" validate:"max=2000"`
	Lat      float64 `json:"lat" validate:"latitude"`
	Lon      float64 `json:"lon" validate:"longitude"`
	State    string  `json:"state" validate:"max=64"`
}
