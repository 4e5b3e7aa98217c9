package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/notifier"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/queue"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []queue.EmailDeliveredEvent
}

func (r *eventRecorder) publish(_ context.Context, ev queue.EmailDeliveredEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func seedItem(t *testing.T, store *memStore, requestID string) *model.SupervisionItem {
	t.Helper()
	item := &model.SupervisionItem{
		RequestID: requestID, MemberEmail: "ana@mail.com", MemberName: "Ana",
		DecisionType: model.DecisionApproved, DecisionSource: model.SourceMatcher,
		EmailSubject: "Asunto", EmailContent: "Cuerpo",
	}
	if err := store.Insert(context.Background(), item); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func newSupervision(store *memStore, mailer *fakeNotifier, rec *eventRecorder) *SupervisionService {
	var publish EventPublisher
	if rec != nil {
		publish = rec.publish
	}
	return NewSupervisionService(memSupervision{store}, mailer, publish)
}

func TestApproveThenSend(t *testing.T) {
	store := newMemStore()
	item := seedItem(t, store, "req_1")
	mailer := &fakeNotifier{}
	rec := &eventRecorder{}
	svc := newSupervision(store, mailer, rec)

	updated, err := svc.Approve(context.Background(), item.ID, "Sofía", "todo bien")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if updated.Status != model.StatusApproved {
		t.Fatalf("expected approved, got %q", updated.Status)
	}
	if updated.ReviewedBy == nil || *updated.ReviewedBy != "Sofía" {
		t.Fatalf("reviewer not recorded: %+v", updated.ReviewedBy)
	}

	sent, err := svc.Send(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != model.StatusSent {
		t.Fatalf("expected sent, got %q", sent.Status)
	}
	if sent.DeliveryStatus != model.DeliverySent {
		t.Fatalf("expected delivery sent, got %q", sent.DeliveryStatus)
	}
	if len(mailer.delivered) != 1 || mailer.delivered[0] != "ana@mail.com" {
		t.Fatalf("unexpected deliveries: %v", mailer.delivered)
	}
	if len(rec.events) != 1 || rec.events[0].QueueID != item.ID {
		t.Fatalf("expected one delivery event for item %d, got %+v", item.ID, rec.events)
	}
}

// A rejected item is also sent: the requester learns the outcome
// either way.
func TestRejectThenSend(t *testing.T) {
	store := newMemStore()
	item := seedItem(t, store, "req_1")
	svc := newSupervision(store, &fakeNotifier{}, nil)

	if _, err := svc.Reject(context.Background(), item.ID, "Sofía", "no corresponde"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	sent, err := svc.Send(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != model.StatusSent {
		t.Fatalf("expected sent, got %q", sent.Status)
	}
}

func TestSendPendingItemIsRejectedTransition(t *testing.T) {
	store := newMemStore()
	item := seedItem(t, store, "req_1")
	mailer := &fakeNotifier{}
	svc := newSupervision(store, mailer, nil)

	_, err := svc.Send(context.Background(), item.ID)
	if !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(mailer.delivered) != 0 {
		t.Fatalf("pending item must not be mailed, got %v", mailer.delivered)
	}
}

func TestApproveTwiceFails(t *testing.T) {
	store := newMemStore()
	item := seedItem(t, store, "req_1")
	svc := newSupervision(store, &fakeNotifier{}, nil)

	if _, err := svc.Approve(context.Background(), item.ID, "Sofía", ""); err != nil {
		t.Fatalf("first Approve: %v", err)
	}
	if _, err := svc.Approve(context.Background(), item.ID, "Sofía", ""); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRejectAfterApprove(t *testing.T) {
	store := newMemStore()
	item := seedItem(t, store, "req_1")
	svc := newSupervision(store, &fakeNotifier{}, nil)

	if _, err := svc.Approve(context.Background(), item.ID, "Sofía", ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	// Second thoughts before sending are allowed.
	updated, err := svc.Reject(context.Background(), item.ID, "Sofía", "mejor no")
	if err != nil {
		t.Fatalf("Reject after approve: %v", err)
	}
	if updated.Status != model.StatusRejected {
		t.Fatalf("expected rejected, got %q", updated.Status)
	}
}

func TestEditDraft(t *testing.T) {
	store := newMemStore()
	item := seedItem(t, store, "req_1")
	svc := newSupervision(store, &fakeNotifier{}, nil)

	updated, err := svc.Edit(context.Background(), item.ID, "Nuevo asunto", "Nuevo cuerpo", model.DecisionRejected, "Sofía")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if updated.EmailSubject != "Nuevo asunto" || updated.DecisionType != model.DecisionRejected {
		t.Fatalf("edit not applied: %+v", updated)
	}
}

func TestEditAfterSentFails(t *testing.T) {
	store := newMemStore()
	item := seedItem(t, store, "req_1")
	svc := newSupervision(store, &fakeNotifier{}, nil)

	if _, err := svc.Approve(context.Background(), item.ID, "Sofía", ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := svc.Send(context.Background(), item.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := svc.Edit(context.Background(), item.ID, "x", "y", "", "Sofía"); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after sent, got %v", err)
	}
}

// A failed SMTP delivery still finalises the item; the receipt status
// records the failure for the supervisor.
func TestSendRecordsFailedDelivery(t *testing.T) {
	store := newMemStore()
	item := seedItem(t, store, "req_1")
	mailer := &fakeNotifier{receipt: notifier.Receipt{Status: notifier.StatusFailed}, err: errors.New("relay down")}
	svc := newSupervision(store, mailer, nil)

	if _, err := svc.Approve(context.Background(), item.ID, "Sofía", ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	sent, err := svc.Send(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Send with failed delivery: %v", err)
	}
	if sent.Status != model.StatusSent || sent.DeliveryStatus != model.DeliveryFailed {
		t.Fatalf("expected sent/failed, got %s/%s", sent.Status, sent.DeliveryStatus)
	}
}

func TestUnknownItem(t *testing.T) {
	svc := newSupervision(newMemStore(), &fakeNotifier{}, nil)
	if _, err := svc.Approve(context.Background(), 42, "Sofía", ""); !errors.Is(err, repository.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestListAndStats(t *testing.T) {
	store := newMemStore()
	svc := newSupervision(store, &fakeNotifier{}, nil)
	a := seedItem(t, store, "req_a")
	seedItem(t, store, "req_b")
	seedItem(t, store, "req_c")
	if _, err := svc.Approve(context.Background(), a.ID, "Sofía", ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	page, err := svc.List(context.Background(), model.QueueFilter{Status: model.StatusPending}, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 pending items, got %d", page.Total)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.ByStatus[model.StatusApproved] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
