// Package push defines the transport used to deliver offer alerts to
// staff mobile devices.
package push

import "context"

// Message is the payload delivered to one staff member's device.
type Message struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	DeepLink string `json:"deep_link,omitempty"`
	OfferID  string `json:"offer_id"`
	JobID    string `json:"job_id"`
}

// Client delivers push messages. Delivery is best-effort: a failed push
// never invalidates the in-app notification record.
type Client interface {
	// Push sends the message to the given staff member and returns the
	// transport message identifier.
	Push(ctx context.Context, staffID string, msg Message) (string, error)
}
