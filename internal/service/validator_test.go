package service

import (
	"context"
	"testing"
	"time"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
)

func testShow(id uint64, quota int) model.Show {
	return model.Show{
		ID: id, Code: "SHW" + string(rune('0'+id)), Title: "Show", Artist: "Artist",
		Venue: "Venue", Date: time.Now().Add(30 * 24 * time.Hour), QuotaMax: quota, Active: true,
	}
}

func TestValidateEligibleMember(t *testing.T) {
	store := newMemStore()
	store.addMember(model.Member{Email: "ana@mail.com", Name: "Ana", SubscriptionActive: true, FeesCurrent: true})
	v := NewEligibilityValidator(store, store)

	member, reason, err := v.Validate(context.Background(), "ana@mail.com", 0)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if reason != "" {
		t.Fatalf("expected eligible, got reason %q", reason)
	}
	if member == nil || member.Name != "Ana" {
		t.Fatalf("expected member Ana, got %+v", member)
	}
}

func TestValidateUnknownEmail(t *testing.T) {
	store := newMemStore()
	v := NewEligibilityValidator(store, store)

	member, reason, err := v.Validate(context.Background(), "nadie@mail.com", 0)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if reason != ReasonMemberNotFound {
		t.Fatalf("expected %q, got %q", ReasonMemberNotFound, reason)
	}
	if member != nil {
		t.Fatalf("expected nil member for unknown email")
	}
}

// A member failing several checks at once must always be reported with
// the first failing one.
func TestValidateFailFastOrder(t *testing.T) {
	store := newMemStore()
	store.addMember(model.Member{Email: "ana@mail.com", Name: "Ana", SubscriptionActive: false, FeesCurrent: false})
	v := NewEligibilityValidator(store, store)

	_, reason, err := v.Validate(context.Background(), "ana@mail.com", 0)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if reason != ReasonSubscriptionInactive {
		t.Fatalf("expected %q first, got %q", ReasonSubscriptionInactive, reason)
	}
}

func TestValidateFeesOverdue(t *testing.T) {
	store := newMemStore()
	store.addMember(model.Member{Email: "ana@mail.com", Name: "Ana", SubscriptionActive: true, FeesCurrent: false})
	v := NewEligibilityValidator(store, store)

	_, reason, err := v.Validate(context.Background(), "ana@mail.com", 0)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if reason != ReasonFeesOverdue {
		t.Fatalf("expected %q, got %q", ReasonFeesOverdue, reason)
	}
}

func TestValidateDuplicateRequest(t *testing.T) {
	store := newMemStore()
	store.addMember(model.Member{Email: "ana@mail.com", Name: "Ana", SubscriptionActive: true, FeesCurrent: true})
	store.addShow(testShow(1, 5))
	showID := uint64(1)
	if err := store.Insert(context.Background(), &model.SupervisionItem{
		RequestID: "req_prev", MemberEmail: "ana@mail.com", ShowID: &showID,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	v := NewEligibilityValidator(store, store)

	_, reason, err := v.Validate(context.Background(), "ana@mail.com", 1)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if reason != ReasonDuplicateRequest {
		t.Fatalf("expected %q, got %q", ReasonDuplicateRequest, reason)
	}
	// A different show is not a duplicate.
	store.addShow(testShow(2, 5))
	_, reason, err = v.Validate(context.Background(), "ana@mail.com", 2)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if reason != "" {
		t.Fatalf("expected eligible for other show, got %q", reason)
	}
}

// A rejected item releases the duplicate guard: the member may ask again.
func TestValidateRejectedItemIsNotDuplicate(t *testing.T) {
	store := newMemStore()
	store.addMember(model.Member{Email: "ana@mail.com", Name: "Ana", SubscriptionActive: true, FeesCurrent: true})
	store.addShow(testShow(1, 5))
	showID := uint64(1)
	item := &model.SupervisionItem{RequestID: "req_prev", MemberEmail: "ana@mail.com", ShowID: &showID}
	if err := store.Insert(context.Background(), item); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if err := store.Reject(context.Background(), item.ID, "sup", "no"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	v := NewEligibilityValidator(store, store)

	_, reason, err := v.Validate(context.Background(), "ana@mail.com", 1)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if reason != "" {
		t.Fatalf("expected eligible after rejection, got %q", reason)
	}
}
