package model

import "time"

// Supervisor is a staff account allowed to review the supervision
// queue. Role is SUPERVISOR or ADMIN; admins may additionally manage
// members, shows and other supervisor accounts.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique login email.
//  Name         – display name recorded on reviews.
//  PasswordHash – bcrypt hashed password.
//  Role         – SUPERVISOR or ADMIN.
//  CreatedAt    – timestamp of creation.
type Supervisor struct {
	ID           uint64    // supervisors.id
	Email        string    // supervisors.email
	Name         string    // supervisors.name
	PasswordHash string    // supervisors.password_hash
	Role         string    // supervisors.role
	CreatedAt    time.Time // supervisors.created_at
}
