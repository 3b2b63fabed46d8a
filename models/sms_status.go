package models

import "time"

// SMSStatusSkippedResponse is stored instead of a provider payload when a phone was already notified
const SMSStatusSkippedResponse = "SMS skipped (already sent for this phone)"

// SMSStatusInProgressResponse is stored when another request holds the notification lock for the phone
const SMSStatusInProgressResponse = "SMS skipped (notification in progress for this phone)"

// SMSStatus is the outcome of the (at most one) notification attempt for a submission.
// Response holds the raw provider payload on an attempt, or an error/skip message.
type SMSStatus struct {
	OK       bool      `json:"ok"`
	Response any       `json:"response"`
	SentAt   time.Time `json:"sentAt"`
}

// NewSkippedSMSStatus builds the synthetic status recorded for duplicate submissions
func NewSkippedSMSStatus(reason string, at time.Time) *SMSStatus {
	return &SMSStatus{OK: false, Response: reason, SentAt: at}
}
