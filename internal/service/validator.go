package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
)

// Eligibility reason codes. The set is closed: handlers, templates
// and tests all key off these exact strings.
const (
	ReasonMemberNotFound       = "member_not_found"
	ReasonSubscriptionInactive = "subscription_inactive"
	ReasonFeesOverdue          = "fees_overdue"
	ReasonDuplicateRequest     = "duplicate_request"
)

// MemberSource is the read access the validator needs to members.
type MemberSource interface {
	GetByEmail(ctx context.Context, email string) (*model.Member, error)
}

// DuplicateSource answers whether a member already has an active
// queue item for a show.
type DuplicateSource interface {
	HasActiveRequest(ctx context.Context, memberEmail string, showID uint64) (bool, error)
}

// EligibilityValidator runs the deterministic member-standing checks
// in a fixed order, failing on the first violation: member exists →
// subscription active → fees current → no duplicate request for the
// same show. Later checks are never evaluated once one fails, so a
// member with an inactive subscription and overdue fees is always
// reported as subscription_inactive.
type EligibilityValidator struct {
	members MemberSource
	queue   DuplicateSource
}

// NewEligibilityValidator wires the validator to its stores.
func NewEligibilityValidator(members MemberSource, queue DuplicateSource) *EligibilityValidator {
	return &EligibilityValidator{members: members, queue: queue}
}

// Validate checks member standing. showID > 0 additionally runs the
// per-show duplicate check; a description-based request passes 0 and
// the pipeline re-runs CheckDuplicate once the show is resolved.
// It returns the member (when found), an empty reason when eligible
// or one of the Reason* codes, and a non-nil error only for store
// failures.
func (v *EligibilityValidator) Validate(ctx context.Context, email string, showID uint64) (*model.Member, string, error) {
	member, err := v.members.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return nil, ReasonMemberNotFound, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("validator: load member: %w", err)
	}
	if !member.SubscriptionActive {
		return member, ReasonSubscriptionInactive, nil
	}
	if !member.FeesCurrent {
		return member, ReasonFeesOverdue, nil
	}
	if showID > 0 {
		reason, err := v.CheckDuplicate(ctx, member.Email, showID)
		if err != nil || reason != "" {
			return member, reason, err
		}
	}
	return member, "", nil
}

// CheckDuplicate returns ReasonDuplicateRequest when the member
// already has a pending, approved or sent item for the show.
func (v *EligibilityValidator) CheckDuplicate(ctx context.Context, email string, showID uint64) (string, error) {
	dup, err := v.queue.HasActiveRequest(ctx, email, showID)
	if err != nil {
		return "", fmt.Errorf("validator: duplicate check: %w", err)
	}
	if dup {
		return ReasonDuplicateRequest, nil
	}
	return "", nil
}

// ReasonText maps a reason code to the sentence recorded as the
// decision reasoning. Requester-facing wording lives in the email
// templates; this is the supervisor-facing summary.
func ReasonText(reason string) string {
	switch reason {
	case ReasonMemberNotFound:
		return "El email no está registrado como miembro de la comunidad."
	case ReasonSubscriptionInactive:
		return "La suscripción del miembro no está activa."
	case ReasonFeesOverdue:
		return "El miembro tiene cuotas mensuales pendientes de pago."
	case ReasonDuplicateRequest:
		return "Ya existe una solicitud activa del miembro para este show."
	default:
		return "Solicitud rechazada."
	}
}
