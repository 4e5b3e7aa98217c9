package model

import "time"

// Show represents a ticketed event carrying a finite discount quota.
// QuotaMax is fixed once a show is published; only administrative
// updates change it. Metadata is a free-form key/value bag persisted
// as JSON (price, discount_details, city, ...) that feeds email
// template placeholders.
//
// Fields:
//  ID        – primary key identifier.
//  Code      – unique internal show code (used in discount codes).
//  Title     – show title.
//  Artist    – performing artist.
//  Venue     – venue name.
//  Date      – date of the show.
//  QuotaMax  – maximum number of discount slots, >= 0.
//  Active    – whether the show accepts discount requests.
//  Metadata  – free-form key/value data.
//  CreatedAt – creation timestamp.
type Show struct {
	ID        uint64            // shows.id
	Code      string            // shows.code
	Title     string            // shows.title
	Artist    string            // shows.artist
	Venue     string            // shows.venue
	Date      time.Time         // shows.show_date
	QuotaMax  int               // shows.quota_max
	Active    bool              // shows.active
	Metadata  map[string]string // shows.metadata (JSON)
	CreatedAt time.Time         // shows.created_at
}

// ShowSummary is the reduced view handed to a MatchResolver: only
// active shows with remaining discount slots become candidates, and
// Remaining carries the slot count at the time the candidate list was
// assembled.
type ShowSummary struct {
	ID        uint64    `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Venue     string    `json:"venue"`
	Date      time.Time `json:"date"`
	Remaining int       `json:"remaining"`
}
