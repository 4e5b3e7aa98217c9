package model

import "time"

// Queue item statuses. The state machine is:
// pending -> {approved, rejected}; approved -> sent; rejected -> sent.
// sent is terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusSent     = "sent"
)

// Pipeline decision types recorded on a queue item.
const (
	DecisionApproved           = "approved"
	DecisionRejected           = "rejected"
	DecisionNeedsClarification = "needs_clarification"
)

// Sources that produced a decision.
const (
	SourceValidator = "validator"
	SourceMatcher   = "matcher"
)

// Email delivery statuses recorded after the Notifier runs.
const (
	DeliveryNone    = "none"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliveryBounced = "bounced"
)

// SupervisionItem is one entry of the human supervision queue: the
// terminal artifact of a pipeline run, waiting for a supervisor to
// approve, reject or edit it before anything is mailed out. A
// show-linked item in status pending/approved/sent counts against the
// show's discount quota; a rejected item frees the slot.
//
// Fields:
//  ID               – primary key identifier.
//  RequestID        – unique idempotency key of the originating request.
//  MemberEmail      – requester email (not necessarily a valid member).
//  MemberName       – requester name as submitted.
//  ShowID           – show held by an approved draft; nil otherwise.
//  ShowDescription  – human description of the show being requested.
//  DecisionType     – approved | rejected | needs_clarification.
//  DecisionSource   – validator | matcher.
//  EmailSubject     – drafted subject line.
//  EmailContent     – drafted body.
//  ConfidenceScore  – resolver confidence, 1.0 for deterministic paths.
//  Reasoning        – human-readable explanation of the decision.
//  ProcessingTimeMs – pipeline wall time in milliseconds.
//  Status           – pending | approved | rejected | sent.
//  DeliveryStatus   – none | sent | failed | bounced.
//  CreatedAt        – when the pipeline enqueued the item.
//  ReviewedAt       – when a supervisor acted on it (nullable).
//  ReviewedBy       – supervisor identifier (nullable).
//  SupervisorNotes  – free-form review notes (nullable).
type SupervisionItem struct {
	ID               uint64     `json:"id"`
	RequestID        string     `json:"request_id"`
	MemberEmail      string     `json:"member_email"`
	MemberName       string     `json:"member_name"`
	ShowID           *uint64    `json:"show_id,omitempty"`
	ShowDescription  string     `json:"show_description"`
	DecisionType     string     `json:"decision_type"`
	DecisionSource   string     `json:"decision_source"`
	EmailSubject     string     `json:"email_subject"`
	EmailContent     string     `json:"email_content"`
	ConfidenceScore  float64    `json:"confidence_score"`
	Reasoning        string     `json:"reasoning"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
	Status           string     `json:"status"`
	DeliveryStatus   string     `json:"delivery_status"`
	CreatedAt        time.Time  `json:"created_at"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy       *string    `json:"reviewed_by,omitempty"`
	SupervisorNotes  *string    `json:"supervisor_notes,omitempty"`
}

// QueueFilter narrows a supervision queue listing. Zero values mean
// "no filter". Substring fields match case-insensitively. Venue and
// ShowTitle filter through the joined show record; ShowTitle also
// matches the item's own show description.
type QueueFilter struct {
	Status       string
	DecisionType string
	MemberEmail  string
	Venue        string
	ShowTitle    string
	DateFrom     *time.Time
	DateTo       *time.Time
}

// QueuePage is one page of a filtered listing, ordered by creation
// time descending with an id tie-break so pagination stays stable
// under concurrent inserts.
type QueuePage struct {
	Items      []SupervisionItem `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int64             `json:"total_pages"`
}

// QueueStats summarises the queue for the supervisor dashboard.
// ApprovalRate is approved decisions over all decided items, 0 when
// nothing has been decided yet.
type QueueStats struct {
	ByStatus     map[string]int64 `json:"by_status"`
	ByDecision   map[string]int64 `json:"by_decision"`
	Total        int64            `json:"total"`
	ApprovalRate float64          `json:"approval_rate"`
}
