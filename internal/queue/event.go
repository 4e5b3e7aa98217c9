// Package queue defines message payloads exchanged over the message
// broker plus the publisher and background consumer that handle them.
package queue

// EmailDeliveredEvent is published after a supervisor releases a
// queue item and the notifier runs. It carries enough for downstream
// consumers to log or feed analytics without querying the primary
// database.
type EmailDeliveredEvent struct {
	QueueID        uint64  `json:"queue_id"`
	RequestID      string  `json:"request_id"`
	MemberEmail    string  `json:"member_email"`
	ShowID         *uint64 `json:"show_id,omitempty"`
	DecisionType   string  `json:"decision_type"`
	DeliveryStatus string  `json:"delivery_status"`
	ReviewedBy     string  `json:"reviewed_by"`
	DeliveredAt    string  `json:"delivered_at"`
}
