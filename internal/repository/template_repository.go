package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
)

// TemplateRepo reads email templates. Templates are managed out of
// band; the service only ever looks them up by name and falls back to
// built-ins when a row is missing.
type TemplateRepo struct {
	db *sql.DB
}

// NewTemplateRepo returns a new TemplateRepo bound to the given database.
func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

// GetByName returns the template with the given unique name or
// ErrTemplateNotFound.
func (r *TemplateRepo) GetByName(ctx context.Context, name string) (*model.EmailTemplate, error) {
	const q = `SELECT id, name, subject, body FROM email_templates WHERE name = ?`
	var t model.EmailTemplate
	err := r.db.QueryRowContext(ctx, q, name).Scan(&t.ID, &t.Name, &t.Subject, &t.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
