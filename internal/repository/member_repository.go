package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
)

// MemberRepo provides CRUD operations for community members. Members
// are written at registration and by administrative payment or
// subscription updates; the decision pipeline only ever reads them.
type MemberRepo struct {
	db *sql.DB
}

// NewMemberRepo returns a new MemberRepo bound to the given database.
func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

// GetByEmail returns the member with the given email or
// ErrMemberNotFound. Email comparison is case-insensitive; emails are
// normalised to lower case on insert.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*model.Member, error) {
	const q = `SELECT id, email, name, city, subscription_active, fees_current, created_at, updated_at
	           FROM members WHERE email = ?`
	var m model.Member
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(email)).Scan(
		&m.ID, &m.Email, &m.Name, &m.City,
		&m.SubscriptionActive, &m.FeesCurrent, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new member and populates the generated ID. A
// duplicate email yields ErrDuplicateEmail.
func (r *MemberRepo) Create(ctx context.Context, m *model.Member) error {
	const q = `INSERT INTO members (email, name, city, subscription_active, fees_current)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		strings.ToLower(m.Email), m.Name, m.City, m.SubscriptionActive, m.FeesCurrent)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// UpdateStanding applies an administrative payment/subscription
// update. It is the only mutation members receive after registration.
func (r *MemberRepo) UpdateStanding(ctx context.Context, email string, subscriptionActive, feesCurrent bool) error {
	const q = `UPDATE members SET subscription_active = ?, fees_current = ?, updated_at = NOW()
	           WHERE email = ?`
	res, err := r.db.ExecContext(ctx, q, subscriptionActive, feesCurrent, strings.ToLower(email))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (error 1062). Matching on the message avoids importing the driver's
// error types into every repository.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Error 1062")
}
