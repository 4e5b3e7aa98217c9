package model

import "time"

// Member represents a registered community subscriber as stored in the
// `members` table. Members are created at registration time and only
// administrative payment/subscription updates mutate them afterwards.
// Email is unique and is the key used by inbound discount requests.
//
// Fields:
//  ID                 – primary key identifier.
//  Email              – unique email address.
//  Name               – display name used in outgoing emails.
//  City               – optional home city.
//  SubscriptionActive – whether the membership is currently active.
//  FeesCurrent        – whether the monthly fee is paid up.
//  CreatedAt          – timestamp of registration.
//  UpdatedAt          – timestamp of last administrative update.
type Member struct {
	ID                 uint64    // members.id
	Email              string    // members.email
	Name               string    // members.name
	City               string    // members.city
	SubscriptionActive bool      // members.subscription_active
	FeesCurrent        bool      // members.fees_current
	CreatedAt          time.Time // members.created_at
	UpdatedAt          time.Time // members.updated_at
}
