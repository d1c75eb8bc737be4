package model

import "time"

// NotificationStatus tracks delivery of an in-app offer notification.
type NotificationStatus string

const (
	NotificationSent       NotificationStatus = "sent"
	NotificationRead       NotificationStatus = "read"
	NotificationSuperseded NotificationStatus = "superseded"
)

// OfferNotification is the per-staff delivery record of an offer. One
// record exists per staff member per offer; it is only ever mutated to
// record a read timestamp or a superseded marker after another staff
// member wins the offer.
type OfferNotification struct {
	ID         string             `json:"id"`
	StaffID    string             `json:"staff_id"`
	OfferID    string             `json:"offer_id"`
	JobID      string             `json:"job_id"`
	PropertyID string             `json:"property_id"`
	Title      string             `json:"title"`
	Body       string             `json:"body"`
	DeepLink   string             `json:"deep_link,omitempty"`
	Status     NotificationStatus `json:"status"`
	SentAt     time.Time          `json:"sent_at"`
	ReadAt     *time.Time         `json:"read_at,omitempty"`
}
