package alert

import "time"

// Result is the two-part SMS outcome: Sent with the message SID, or not sent
// with a reason.
type Result struct {
	Sent   bool   `json:"sent"`
	Detail string `json:"detail"`
}

// Unpack returns the outcome as a (bool, string) pair.
func (r Result) Unpack() (bool, string) {
	return r.Sent, r.Detail
}

// OutboxEntry is a message captured by the mock sender.
type OutboxEntry struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// SMSRequest is the HTTP payload for a single alert.
type SMSRequest struct {
	Message string `json:"message" validate:"required,max=1600"`
	To      string `json:"to" validate:"omitempty,e164"`
}
