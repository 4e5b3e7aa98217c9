package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
)

// QueueRepo persists supervision queue items and owns the quota
// ledger. A reservation is nothing but a queue item in an active
// status (pending, approved, sent) referencing a show; rejecting an
// item therefore frees its slot without any explicit release step.
//
// Reserve is the one concurrency-critical operation of the whole
// service: it must read the remaining slot count and insert the item
// as a single atomic unit. A plain count-then-insert lets N
// concurrent requests against a 1-slot show all succeed, so the count
// runs inside a transaction holding a FOR UPDATE row lock on the show.
type QueueRepo struct {
	db *sql.DB
}

// NewQueueRepo returns a new QueueRepo bound to the given database.
func NewQueueRepo(db *sql.DB) *QueueRepo { return &QueueRepo{db: db} }

const itemCols = `id, request_id, member_email, member_name, show_id, show_description,
	decision_type, decision_source, email_subject, email_content, confidence_score,
	reasoning, processing_time_ms, status, delivery_status, created_at,
	reviewed_at, reviewed_by, supervisor_notes`

// Reserve atomically consumes one discount slot of item.ShowID and
// inserts the item with status pending. It returns ErrShowUnavailable
// when the show is missing or inactive and ErrQuotaExhausted when no
// slot is left. Reserve is idempotent per request id: replaying a
// request that already has a queue item loads the existing row into
// item and consumes nothing.
func (r *QueueRepo) Reserve(ctx context.Context, item *model.SupervisionItem) error {
	if item.ShowID == nil {
		return ErrShowUnavailable
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the show row first. Every concurrent Reserve for the same
	// show serialises here, which makes the count below safe.
	const lockQ = `SELECT quota_max, active FROM shows WHERE id = ? FOR UPDATE`
	var quotaMax int
	var active bool
	err = tx.QueryRowContext(ctx, lockQ, *item.ShowID).Scan(&quotaMax, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShowUnavailable
	}
	if err != nil {
		return err
	}
	if !active {
		return ErrShowUnavailable
	}

	// Idempotent replay: if the request already produced an item,
	// hand it back instead of reserving a second slot.
	if existing, err := getByRequestIDTx(ctx, tx, item.RequestID); err == nil {
		*item = *existing
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		return nil
	} else if !errors.Is(err, ErrItemNotFound) {
		return err
	}

	const countQ = `SELECT COUNT(*) FROM supervision_queue
	                WHERE show_id = ? AND status IN ('pending','approved','sent')`
	var reserved int
	if err := tx.QueryRowContext(ctx, countQ, *item.ShowID).Scan(&reserved); err != nil {
		return err
	}
	if reserved >= quotaMax {
		return ErrQuotaExhausted
	}

	if err := insertTx(ctx, tx, item); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Insert persists an item that does not consume quota (rejections and
// clarification requests). Like Reserve it is idempotent per request
// id: a duplicate insert loads the existing row into item instead.
func (r *QueueRepo) Insert(ctx context.Context, item *model.SupervisionItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if existing, err := getByRequestIDTx(ctx, tx, item.RequestID); err == nil {
		*item = *existing
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		return nil
	} else if !errors.Is(err, ErrItemNotFound) {
		return err
	}
	if err := insertTx(ctx, tx, item); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func insertTx(ctx context.Context, tx *sql.Tx, item *model.SupervisionItem) error {
	const q = `INSERT INTO supervision_queue
		(request_id, member_email, member_name, show_id, show_description,
		 decision_type, decision_source, email_subject, email_content,
		 confidence_score, reasoning, processing_time_ms, status, delivery_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		item.RequestID, strings.ToLower(item.MemberEmail), item.MemberName,
		item.ShowID, item.ShowDescription, item.DecisionType, item.DecisionSource,
		item.EmailSubject, item.EmailContent, item.ConfidenceScore, item.Reasoning,
		item.ProcessingTimeMs, model.StatusPending, model.DeliveryNone)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = uint64(id)
	item.Status = model.StatusPending
	item.DeliveryStatus = model.DeliveryNone
	item.CreatedAt = time.Now().UTC()
	return nil
}

// GetByRequestID returns the queue item created for a request id, or
// ErrItemNotFound. The pipeline uses it to answer replays.
func (r *QueueRepo) GetByRequestID(ctx context.Context, requestID string) (*model.SupervisionItem, error) {
	const q = `SELECT ` + itemCols + ` FROM supervision_queue WHERE request_id = ?`
	return scanItem(r.db.QueryRowContext(ctx, q, requestID))
}

func getByRequestIDTx(ctx context.Context, tx *sql.Tx, requestID string) (*model.SupervisionItem, error) {
	const q = `SELECT ` + itemCols + ` FROM supervision_queue WHERE request_id = ?`
	return scanItem(tx.QueryRowContext(ctx, q, requestID))
}

// GetByID returns a single queue item or ErrItemNotFound.
func (r *QueueRepo) GetByID(ctx context.Context, id uint64) (*model.SupervisionItem, error) {
	const q = `SELECT ` + itemCols + ` FROM supervision_queue WHERE id = ?`
	return scanItem(r.db.QueryRowContext(ctx, q, id))
}

// HasActiveRequest reports whether the member already has an item for
// the show in an active status. This backs the duplicate_request
// eligibility check.
func (r *QueueRepo) HasActiveRequest(ctx context.Context, memberEmail string, showID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM supervision_queue
	           WHERE member_email = ? AND show_id = ? AND status IN ('pending','approved','sent'))`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, strings.ToLower(memberEmail), showID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Approve moves a pending item to approved and records the review.
func (r *QueueRepo) Approve(ctx context.Context, id uint64, reviewer, notes string) error {
	return r.transition(ctx, id, []string{model.StatusPending}, model.StatusApproved, reviewer, notes)
}

// Reject moves a pending or approved item to rejected, freeing the
// show's slot for the next reservation.
func (r *QueueRepo) Reject(ctx context.Context, id uint64, reviewer, reason string) error {
	return r.transition(ctx, id, []string{model.StatusPending, model.StatusApproved}, model.StatusRejected, reviewer, reason)
}

// transition applies a guarded status update. The WHERE clause checks
// the current status so an out-of-order supervisor action fails with
// ErrInvalidTransition instead of overwriting newer state.
func (r *QueueRepo) transition(ctx context.Context, id uint64, from []string, to, reviewer, notes string) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	q := `UPDATE supervision_queue
	      SET status = ?, reviewed_at = ?, reviewed_by = ?, supervisor_notes = ?
	      WHERE id = ? AND status IN (` + placeholders + `)`
	args := []any{to, time.Now().UTC(), reviewer, notes, id}
	for _, s := range from {
		args = append(args, s)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// UpdateDraft edits the email draft (and optionally the decision
// type) of an item that has not been sent yet.
func (r *QueueRepo) UpdateDraft(ctx context.Context, id uint64, subject, body, decisionType, reviewer string) error {
	q := `UPDATE supervision_queue
	      SET email_subject = ?, email_content = ?, reviewed_by = ?, reviewed_at = ?`
	args := []any{subject, body, reviewer, time.Now().UTC()}
	if decisionType != "" {
		q += `, decision_type = ?`
		args = append(args, decisionType)
	}
	q += ` WHERE id = ? AND status <> ?`
	args = append(args, id, model.StatusSent)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// MarkSent finalises a reviewed item (approved or rejected) and
// records the delivery receipt status. sent is terminal.
func (r *QueueRepo) MarkSent(ctx context.Context, id uint64, deliveryStatus string) error {
	const q = `UPDATE supervision_queue SET status = ?, delivery_status = ?
	           WHERE id = ? AND status IN (?, ?)`
	res, err := r.db.ExecContext(ctx, q, model.StatusSent, deliveryStatus, id,
		model.StatusApproved, model.StatusRejected)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// checkAffected distinguishes a missing item from an illegal
// transition after a guarded zero-row update.
func (r *QueueRepo) checkAffected(ctx context.Context, res sql.Result, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	const q = `SELECT EXISTS(SELECT 1 FROM supervision_queue WHERE id = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrItemNotFound
	}
	return ErrInvalidTransition
}

// List returns one page of queue items matching the filter, newest
// first with an id tie-break for stable pagination.
func (r *QueueRepo) List(ctx context.Context, f model.QueueFilter, page, pageSize int) (*model.QueuePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "q.status = ?")
		args = append(args, f.Status)
	}
	if f.DecisionType != "" {
		where = append(where, "q.decision_type = ?")
		args = append(args, f.DecisionType)
	}
	if f.MemberEmail != "" {
		where = append(where, "q.member_email LIKE ?")
		args = append(args, "%"+strings.ToLower(f.MemberEmail)+"%")
	}
	if f.Venue != "" {
		where = append(where, "LOWER(s.venue) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Venue)+"%")
	}
	if f.ShowTitle != "" {
		like := "%" + strings.ToLower(f.ShowTitle) + "%"
		where = append(where, "(LOWER(s.title) LIKE ? OR LOWER(q.show_description) LIKE ?)")
		args = append(args, like, like)
	}
	if f.DateFrom != nil {
		where = append(where, "q.created_at >= ?")
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		where = append(where, "q.created_at <= ?")
		args = append(args, *f.DateTo)
	}
	cond := strings.Join(where, " AND ")

	countQ := `SELECT COUNT(*) FROM supervision_queue q
	           LEFT JOIN shows s ON s.id = q.show_id
	           WHERE ` + cond
	var total int64
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, err
	}

	dataQ := `SELECT ` + prefixedItemCols() + ` FROM supervision_queue q
	          LEFT JOIN shows s ON s.id = q.show_id
	          WHERE ` + cond + `
	          ORDER BY q.created_at DESC, q.id DESC
	          LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
	rows, err := r.db.QueryContext(ctx, dataQ, argsData...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.SupervisionItem, 0, pageSize)
	for rows.Next() {
		item, err := scanItemRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return &model.QueuePage{
		Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages,
	}, nil
}

// Stats reports item counts per status and decision type plus the
// pipeline approval rate (approved decisions over all items).
func (r *QueueRepo) Stats(ctx context.Context) (*model.QueueStats, error) {
	stats := &model.QueueStats{
		ByStatus:   map[string]int64{},
		ByDecision: map[string]int64{},
	}
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM supervision_queue GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	drows, err := r.db.QueryContext(ctx, `SELECT decision_type, COUNT(*) FROM supervision_queue GROUP BY decision_type`)
	if err != nil {
		return nil, err
	}
	defer drows.Close()
	for drows.Next() {
		var decision string
		var n int64
		if err := drows.Scan(&decision, &n); err != nil {
			return nil, err
		}
		stats.ByDecision[decision] = n
	}
	if err := drows.Err(); err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.ApprovalRate = float64(stats.ByDecision[model.DecisionApproved]) / float64(stats.Total)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row *sql.Row) (*model.SupervisionItem, error) {
	item, err := scanItemFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	return item, err
}

func scanItemRows(rows *sql.Rows) (*model.SupervisionItem, error) {
	return scanItemFrom(rows)
}

func scanItemFrom(s rowScanner) (*model.SupervisionItem, error) {
	var item model.SupervisionItem
	var showID sql.NullInt64
	var reviewedAt sql.NullTime
	var reviewedBy, notes sql.NullString
	err := s.Scan(
		&item.ID, &item.RequestID, &item.MemberEmail, &item.MemberName,
		&showID, &item.ShowDescription, &item.DecisionType, &item.DecisionSource,
		&item.EmailSubject, &item.EmailContent, &item.ConfidenceScore,
		&item.Reasoning, &item.ProcessingTimeMs, &item.Status, &item.DeliveryStatus,
		&item.CreatedAt, &reviewedAt, &reviewedBy, &notes,
	)
	if err != nil {
		return nil, err
	}
	if showID.Valid {
		id := uint64(showID.Int64)
		item.ShowID = &id
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		item.ReviewedAt = &t
	}
	if reviewedBy.Valid {
		v := reviewedBy.String
		item.ReviewedBy = &v
	}
	if notes.Valid {
		v := notes.String
		item.SupervisorNotes = &v
	}
	return &item, nil
}

func prefixedItemCols() string {
	cols := strings.Split(itemCols, ",")
	for i, c := range cols {
		cols[i] = "q." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
