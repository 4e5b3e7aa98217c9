package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
)

// SupervisorRepo manages staff accounts used by the supervision
// surface. Only admins create supervisors; there is no self-service
// signup for requesters.
type SupervisorRepo struct {
	db *sql.DB
}

// NewSupervisorRepo returns a new SupervisorRepo bound to the given database.
func NewSupervisorRepo(db *sql.DB) *SupervisorRepo { return &SupervisorRepo{db: db} }

// GetByEmail returns the supervisor with the given login email or
// ErrSupervisorNotFound.
func (r *SupervisorRepo) GetByEmail(ctx context.Context, email string) (*model.Supervisor, error) {
	const q = `SELECT id, email, name, password_hash, role, created_at
	           FROM supervisors WHERE email = ?`
	var s model.Supervisor
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(email)).Scan(
		&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.Role, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSupervisorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns a supervisor by primary key or ErrSupervisorNotFound.
func (r *SupervisorRepo) GetByID(ctx context.Context, id uint64) (*model.Supervisor, error) {
	const q = `SELECT id, email, name, password_hash, role, created_at
	           FROM supervisors WHERE id = ?`
	var s model.Supervisor
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.Role, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSupervisorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a supervisor account. A duplicate email yields
// ErrDuplicateEmail.
func (r *SupervisorRepo) Create(ctx context.Context, s *model.Supervisor) error {
	const q = `INSERT INTO supervisors (email, name, password_hash, role) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, strings.ToLower(s.Email), s.Name, s.PasswordHash, s.Role)
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
	s.ID = uint64(id)
	return nil
}
