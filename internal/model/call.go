package model

import "time"

// CallStatus represents the terminal state of a call as reported by the
// telephony provider.
type CallStatus string

const (
	CallStatusCompleted CallStatus = "completed"
	CallStatusBusy      CallStatus = "busy"
	CallStatusNoAnswer  CallStatus = "no-answer"
	CallStatusFailed    CallStatus = "failed"
	CallStatusCanceled  CallStatus = "canceled"
)

// Failed reports whether the status counts as a failed connection attempt.
func (s CallStatus) Failed() bool {
	return s == CallStatusFailed || s == CallStatusBusy || s == CallStatusNoAnswer
}

// CallDirection is the direction of a call relative to the account.
type CallDirection string

const (
	DirectionInbound  CallDirection = "inbound"
	DirectionOutbound CallDirection = "outbound"
)

// CallRecord is one call-log row from the telephony provider. The provider
// owns these records; this system only reads them and joins them with IVR
// path data by call SID.
type CallRecord struct {
	CallSid      string        `json:"call_sid"`
	DateCreated  time.Time     `json:"date_created"`
	From         string        `json:"from"`
	To           string        `json:"to"`
	Status       CallStatus    `json:"status"`
	Duration     int           `json:"duration"` // seconds
	Direction    CallDirection `json:"direction"`
	Price        float64       `json:"price"`
	RecordingURL string        `json:"recording_url,omitempty"`
}

// MergedCall is a call record joined with its IVR path data.
//
// IVRSelections is nil when the call has no path record at all, and an empty
// (non-nil) slice when a path record exists but every choice is unset.
// Consumers rely on that distinction to separate "no IVR interaction" from
// "entered the IVR but pressed nothing".
type MergedCall struct {
	CallRecord
	IVRPath       *string  `json:"ivr_path,omitempty"`
	IVRSelections []string `json:"ivr_selections,omitempty"`
}

// HasIVR reports whether the call has any IVR path data.
func (m MergedCall) HasIVR() bool {
	return m.IVRSelections != nil
}
