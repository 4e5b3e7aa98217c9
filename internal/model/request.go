package model

// DiscountRequest is the ephemeral input of one pipeline run. Either
// ShowID points at a catalog entry directly or Description carries
// free text for the MatchResolver to interpret. RequestID is the
// idempotency key: replaying the same RequestID must never create a
// second queue item or consume a second quota slot.
type DiscountRequest struct {
	RequestID   string `json:"request_id"`
	MemberEmail string `json:"member_email"`
	MemberName  string `json:"member_name"`
	ShowID      uint64 `json:"show_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// Outcome is what the pipeline reports back to the intake layer once
// the decision has been enqueued. QueueID identifies the supervision
// item holding the full draft.
type Outcome struct {
	QueueID      uint64  `json:"queue_id"`
	RequestID    string  `json:"request_id"`
	DecisionType string  `json:"decision"`
	ShowID       *uint64 `json:"show_id,omitempty"`
	EmailSubject string  `json:"email_subject"`
	EmailContent string  `json:"email_content"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}
