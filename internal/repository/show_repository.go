package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
)

// ShowRepo provides read and administrative write access to shows.
// Discount accounting is derived, never stored: a show's remaining
// slots are its quota_max minus the count of supervision queue items
// in an active status (pending, approved, sent). Every query that
// exposes "remaining" computes it with that same subquery so the
// number can never drift from the queue.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo returns a new ShowRepo bound to the given database.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning shows and the supervision queue.
func (r *ShowRepo) DB() *sql.DB { return r.db }

const remainingExpr = `(s.quota_max - (SELECT COUNT(*) FROM supervision_queue q
	WHERE q.show_id = s.id AND q.status IN ('pending','approved','sent')))`

// GetByID returns a single show or ErrShowNotFound.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	const q = `SELECT id, code, title, artist, venue, show_date, quota_max, active, metadata, created_at
	           FROM shows s WHERE id = ?`
	return r.scanShow(r.db.QueryRowContext(ctx, q, id))
}

// GetByCode returns the show with the given unique code or ErrShowNotFound.
func (r *ShowRepo) GetByCode(ctx context.Context, code string) (*model.Show, error) {
	const q = `SELECT id, code, title, artist, venue, show_date, quota_max, active, metadata, created_at
	           FROM shows s WHERE code = ?`
	return r.scanShow(r.db.QueryRowContext(ctx, q, code))
}

// Remaining returns the number of unreserved discount slots for a
// show. It is a point-in-time read; the reserve primitive in the
// queue repository re-checks under a row lock before consuming one.
func (r *ShowRepo) Remaining(ctx context.Context, id uint64) (int, error) {
	q := `SELECT ` + remainingExpr + ` FROM shows s WHERE s.id = ?`
	var remaining int
	err := r.db.QueryRowContext(ctx, q, id).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrShowNotFound
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// ListAvailable returns summaries of active shows that still have
// discount slots left. This is the candidate set handed to the
// MatchResolver and the public catalog listing, ordered by date so
// the nearest shows come first.
func (r *ShowRepo) ListAvailable(ctx context.Context) ([]model.ShowSummary, error) {
	q := `SELECT s.id, s.code, s.title, s.artist, s.venue, s.show_date, ` + remainingExpr + ` AS remaining
	      FROM shows s
	      WHERE s.active = 1
	      HAVING remaining > 0
	      ORDER BY s.show_date ASC, s.id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ShowSummary, 0)
	for rows.Next() {
		var s model.ShowSummary
		if err := rows.Scan(&s.ID, &s.Code, &s.Title, &s.Artist, &s.Venue, &s.Date, &s.Remaining); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Search returns active shows whose title, artist or venue contains
// the query string, with their remaining slot counts. Empty queries
// list everything active. Used by the public search endpoint.
func (r *ShowRepo) Search(ctx context.Context, query string, limit int) ([]model.ShowSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	where := []string{"s.active = 1"}
	args := []any{}
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(s.title) LIKE ? OR LOWER(s.artist) LIKE ? OR LOWER(s.venue) LIKE ?)")
		args = append(args, like, like, like)
	}
	sqlQ := `SELECT s.id, s.code, s.title, s.artist, s.venue, s.show_date, ` + remainingExpr + ` AS remaining
	         FROM shows s
	         WHERE ` + strings.Join(where, " AND ") + `
	         ORDER BY s.show_date ASC, s.id ASC
	         LIMIT ?`
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, sqlQ, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ShowSummary, 0, limit)
	for rows.Next() {
		var s model.ShowSummary
		if err := rows.Scan(&s.ID, &s.Code, &s.Title, &s.Artist, &s.Venue, &s.Date, &s.Remaining); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts a new show. Metadata is stored as JSON; a nil map
// becomes an empty object.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	meta, err := marshalMetadata(s.Metadata)
	if err != nil {
		return err
	}
	const q = `INSERT INTO shows (code, title, artist, venue, show_date, quota_max, active, metadata)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.Code, s.Title, s.Artist, s.Venue, s.Date, s.QuotaMax, s.Active, meta)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateCode
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

// Update rewrites a show's mutable fields. Changing quota_max is an
// administrative action; published shows keep their quota otherwise.
func (r *ShowRepo) Update(ctx context.Context, s *model.Show) error {
	meta, err := marshalMetadata(s.Metadata)
	if err != nil {
		return err
	}
	const q = `UPDATE shows SET title = ?, artist = ?, venue = ?, show_date = ?, quota_max = ?, active = ?, metadata = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.Title, s.Artist, s.Venue, s.Date, s.QuotaMax, s.Active, meta, s.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowNotFound
	}
	return nil
}

func (r *ShowRepo) scanShow(row *sql.Row) (*model.Show, error) {
	var s model.Show
	var meta sql.NullString
	err := row.Scan(&s.ID, &s.Code, &s.Title, &s.Artist, &s.Venue, &s.Date,
		&s.QuotaMax, &s.Active, &meta, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &s.Metadata); err != nil {
			// Corrupt metadata must not block the pipeline; the
			// template engine fills missing keys with its sentinel.
			s.Metadata = nil
		}
	}
	return &s, nil
}

func marshalMetadata(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
