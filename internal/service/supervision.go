package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/notifier"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/queue"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
)

// SupervisionStore is the persistence the supervision service needs.
// The guarded transitions live in the store: out-of-order actions
// surface as repository.ErrInvalidTransition.
type SupervisionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.SupervisionItem, error)
	Approve(ctx context.Context, id uint64, reviewer, notes string) error
	Reject(ctx context.Context, id uint64, reviewer, reason string) error
	UpdateDraft(ctx context.Context, id uint64, subject, body, decisionType, reviewer string) error
	MarkSent(ctx context.Context, id uint64, deliveryStatus string) error
	List(ctx context.Context, f model.QueueFilter, page, pageSize int) (*model.QueuePage, error)
	Stats(ctx context.Context) (*model.QueueStats, error)
}

// EventPublisher publishes a delivery event to the broker. It matches
// queue.PublishEmailDelivered.
type EventPublisher func(ctx context.Context, event queue.EmailDeliveredEvent) error

// SupervisionService is the human gate in front of the outbox. Every
// pipeline decision lands in the queue as pending; a supervisor
// approves, rejects or edits the draft, and only Send actually mails
// anything. Send also records the delivery receipt and emits a
// best-effort broker event for the delivery log.
type SupervisionService struct {
	store   SupervisionStore
	mailer  notifier.Notifier
	publish EventPublisher
}

// NewSupervisionService wires the service. publish may be nil to
// disable broker events (tests, broker-less deployments).
func NewSupervisionService(store SupervisionStore, mailer notifier.Notifier, publish EventPublisher) *SupervisionService {
	return &SupervisionService{store: store, mailer: mailer, publish: publish}
}

// Get returns one queue item.
func (s *SupervisionService) Get(ctx context.Context, id uint64) (*model.SupervisionItem, error) {
	return s.store.GetByID(ctx, id)
}

// List returns one filtered page of the queue.
func (s *SupervisionService) List(ctx context.Context, f model.QueueFilter, page, pageSize int) (*model.QueuePage, error) {
	return s.store.List(ctx, f, page, pageSize)
}

// Stats returns the dashboard counters.
func (s *SupervisionService) Stats(ctx context.Context) (*model.QueueStats, error) {
	return s.store.Stats(ctx)
}

// Approve marks a pending item approved. The email is not sent yet;
// that is a separate Send.
func (s *SupervisionService) Approve(ctx context.Context, id uint64, reviewer, notes string) (*model.SupervisionItem, error) {
	if err := s.store.Approve(ctx, id, reviewer, notes); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Reject marks a pending or approved item rejected, which frees the
// show's quota slot.
func (s *SupervisionService) Reject(ctx context.Context, id uint64, reviewer, reason string) (*model.SupervisionItem, error) {
	if err := s.store.Reject(ctx, id, reviewer, reason); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Edit rewrites the drafted email (and optionally the decision type)
// of an item that has not been sent yet.
func (s *SupervisionService) Edit(ctx context.Context, id uint64, subject, body, decisionType, reviewer string) (*model.SupervisionItem, error) {
	if err := s.store.UpdateDraft(ctx, id, subject, body, decisionType, reviewer); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Send delivers the drafted email of a reviewed (approved or rejected)
// item and finalises it as sent with the delivery receipt recorded.
// A failed delivery still finalises the item; the receipt status tells
// the supervisor what happened. Returns the updated item.
func (s *SupervisionService) Send(ctx context.Context, id uint64) (*model.SupervisionItem, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Never mail an unreviewed draft. The store re-checks under the
	// update, but the cheap check here keeps the SMTP call out of the
	// failure path entirely.
	if item.Status != model.StatusApproved && item.Status != model.StatusRejected {
		return nil, repository.ErrInvalidTransition
	}

	receipt, derr := s.mailer.Deliver(ctx, item.MemberEmail, item.EmailSubject, item.EmailContent)
	if derr != nil {
		log.Printf("supervision: delivery for item %d ended %s: %v", id, receipt.Status, derr)
	}
	if err := s.store.MarkSent(ctx, id, receipt.Status); err != nil {
		return nil, fmt.Errorf("supervision: finalise item %d: %w", id, err)
	}

	sent, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishDelivered(ctx, sent)
	return sent, nil
}

// publishDelivered emits the broker event. Failures are logged only:
// the item is already finalised and the event is informational.
func (s *SupervisionService) publishDelivered(ctx context.Context, item *model.SupervisionItem) {
	if s.publish == nil {
		return
	}
	reviewer := ""
	if item.ReviewedBy != nil {
		reviewer = *item.ReviewedBy
	}
	ev := queue.EmailDeliveredEvent{
		QueueID:        item.ID,
		RequestID:      item.RequestID,
		MemberEmail:    item.MemberEmail,
		ShowID:         item.ShowID,
		DecisionType:   item.DecisionType,
		DeliveryStatus: item.DeliveryStatus,
		ReviewedBy:     reviewer,
		DeliveredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publish(ctx, ev); err != nil {
		log.Printf("supervision: publish delivery event for item %d failed: %v", item.ID, err)
	}
}
