package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/utils"
)

// QueueStore is the persistence the pipeline needs for supervision
// items. Reserve consumes a quota slot atomically with the insert;
// Insert enqueues without touching quota.
type QueueStore interface {
	Reserve(ctx context.Context, item *model.SupervisionItem) error
	Insert(ctx context.Context, item *model.SupervisionItem) error
	GetByRequestID(ctx context.Context, requestID string) (*model.SupervisionItem, error)
}

// ShowSource is the catalog access the pipeline needs.
type ShowSource interface {
	GetByID(ctx context.Context, id uint64) (*model.Show, error)
	ListAvailable(ctx context.Context) ([]model.ShowSummary, error)
}

// Discount codes expire this long after the decision is drafted.
const discountValidity = 7 * 24 * time.Hour

// DecisionPipeline runs one discount request end to end: eligibility
// checks, show resolution, email drafting and quota reservation. Every
// run ends with exactly one supervision queue item, whatever happens:
// approvals, rejections, clarification requests and even internal
// failures are all enqueued for human review rather than dropped.
// Nothing is ever mailed from here; delivery happens only after a
// supervisor releases the item.
type DecisionPipeline struct {
	validator *EligibilityValidator
	resolver  Resolver
	templates *TemplateEngine
	queue     QueueStore
	shows     ShowSource
}

// NewDecisionPipeline wires the pipeline stages together.
func NewDecisionPipeline(validator *EligibilityValidator, resolver Resolver, templates *TemplateEngine, queue QueueStore, shows ShowSource) *DecisionPipeline {
	return &DecisionPipeline{
		validator: validator,
		resolver:  resolver,
		templates: templates,
		queue:     queue,
		shows:     shows,
	}
}

// Process runs the pipeline for one request. It is idempotent per
// request id: a replay returns the outcome of the original run. Errors
// and panics inside the run degrade to a queued technical-error
// rejection, so the returned error is non-nil only when even that
// fallback could not be persisted.
func (p *DecisionPipeline) Process(ctx context.Context, req model.DiscountRequest) (out *model.Outcome, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pipeline: panic on request %s: %v", req.RequestID, r)
			out, err = p.technicalFailure(ctx, req, start)
		}
	}()

	out, err = p.run(ctx, req, start)
	if err != nil {
		log.Printf("pipeline: request %s failed: %v", req.RequestID, err)
		return p.technicalFailure(ctx, req, start)
	}
	return out, nil
}

func (p *DecisionPipeline) run(ctx context.Context, req model.DiscountRequest, start time.Time) (*model.Outcome, error) {
	if existing, err := p.queue.GetByRequestID(ctx, req.RequestID); err == nil {
		return outcomeOf(existing), nil
	} else if !errors.Is(err, repository.ErrItemNotFound) {
		return nil, fmt.Errorf("pipeline: replay lookup: %w", err)
	}

	member, reason, err := p.validator.Validate(ctx, req.MemberEmail, req.ShowID)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return p.enqueueDecision(ctx, req, member, nil, decisionDraft{
			decision: model.DecisionRejected, source: model.SourceValidator,
			template: "rejection_" + reason, reasoning: ReasonText(reason),
			confidence: 1.0, start: start,
		})
	}

	if req.ShowID > 0 {
		return p.processDirect(ctx, req, member, start)
	}
	return p.processDescribed(ctx, req, member, start)
}

// processDirect handles a request that names a show id outright. The
// duplicate check already ran inside Validate.
func (p *DecisionPipeline) processDirect(ctx context.Context, req model.DiscountRequest, member *model.Member, start time.Time) (*model.Outcome, error) {
	show, err := p.shows.GetByID(ctx, req.ShowID)
	if errors.Is(err, repository.ErrShowNotFound) {
		return p.rejectShowUnavailable(ctx, req, member, start)
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: load show %d: %w", req.ShowID, err)
	}
	if !show.Active {
		return p.rejectShowUnavailable(ctx, req, member, start)
	}
	return p.approve(ctx, req, member, show, 1.0,
		fmt.Sprintf("Show indicado directamente por el miembro: %s.", show.Title), start)
}

// processDescribed resolves a free-text description against the
// available catalog before deciding.
func (p *DecisionPipeline) processDescribed(ctx context.Context, req model.DiscountRequest, member *model.Member, start time.Time) (*model.Outcome, error) {
	candidates, err := p.shows.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list candidates: %w", err)
	}
	result := p.resolver.Resolve(ctx, req.Description, candidates)

	switch result.Kind {
	case MatchSingle:
		show, err := p.shows.GetByID(ctx, result.ShowID)
		if err != nil {
			return nil, fmt.Errorf("pipeline: load matched show %d: %w", result.ShowID, err)
		}
		reason, err := p.validator.CheckDuplicate(ctx, member.Email, show.ID)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			return p.enqueueDecision(ctx, req, member, show, decisionDraft{
				decision: model.DecisionRejected, source: model.SourceValidator,
				template: "rejection_" + reason, reasoning: ReasonText(reason),
				confidence: 1.0, start: start,
			})
		}
		return p.approve(ctx, req, member, show, result.Confidence,
			fmt.Sprintf("Descripción %q identificada como %s (confianza %.2f).",
				req.Description, show.Title, result.Confidence), start)

	case MatchMultiple:
		names := make([]string, 0, len(result.Candidates))
		for _, c := range result.Candidates {
			names = append(names, c.Title)
		}
		return p.enqueueDecision(ctx, req, member, nil, decisionDraft{
			decision: model.DecisionNeedsClarification, source: model.SourceMatcher,
			template: "clarification_multiple",
			reasoning: fmt.Sprintf("La descripción coincide con varios shows: %s.",
				strings.Join(names, ", ")),
			confidence: result.Confidence, start: start,
			extra: map[string]string{"candidate_list": CandidateList(result.Candidates)},
		})

	default:
		return p.enqueueDecision(ctx, req, member, nil, decisionDraft{
			decision: model.DecisionNeedsClarification, source: model.SourceMatcher,
			template:   "clarification_not_found",
			reasoning:  "Ningún show del catálogo coincide con la descripción.",
			confidence: result.Confidence, start: start,
		})
	}
}

// approve drafts the approval email and reserves the slot. Quota
// exhaustion and a show deactivated mid-flight both downgrade to a
// rejection instead of failing the run.
func (p *DecisionPipeline) approve(ctx context.Context, req model.DiscountRequest, member *model.Member, show *model.Show, confidence float64, reasoning string, start time.Time) (*model.Outcome, error) {
	extra := map[string]string{
		"discount_code": newDiscountCode(show.Code),
		"expiry_date":   time.Now().Add(discountValidity).Format("02/01/2006"),
	}
	subject, body := p.render(ctx, "approval", req, member, show, extra)
	item := newItem(req, show, subject, body, model.DecisionApproved, model.SourceMatcher, confidence, reasoning, start)

	err := p.queue.Reserve(ctx, item)
	switch {
	case errors.Is(err, repository.ErrQuotaExhausted):
		return p.enqueueDecision(ctx, req, member, show, decisionDraft{
			decision: model.DecisionRejected, source: model.SourceMatcher,
			template:   "rejection_no_discounts_available",
			reasoning:  fmt.Sprintf("Los descuentos para %s están agotados.", show.Title),
			confidence: confidence, start: start,
		})
	case errors.Is(err, repository.ErrShowUnavailable):
		return p.rejectShowUnavailable(ctx, req, member, start)
	case err != nil:
		return nil, fmt.Errorf("pipeline: reserve slot: %w", err)
	}
	return outcomeOf(item), nil
}

func (p *DecisionPipeline) rejectShowUnavailable(ctx context.Context, req model.DiscountRequest, member *model.Member, start time.Time) (*model.Outcome, error) {
	return p.enqueueDecision(ctx, req, member, nil, decisionDraft{
		decision: model.DecisionRejected, source: model.SourceMatcher,
		template:   "rejection_show_not_found",
		reasoning:  "El show indicado no existe o no está disponible para descuentos.",
		confidence: 1.0, start: start,
	})
}

// decisionDraft carries everything enqueueDecision needs to draft
// and persist a non-approval decision.
type decisionDraft struct {
	decision   string
	source     string
	template   string
	reasoning  string
	confidence float64
	start      time.Time
	extra      map[string]string
}

func (p *DecisionPipeline) enqueueDecision(ctx context.Context, req model.DiscountRequest, member *model.Member, show *model.Show, d decisionDraft) (*model.Outcome, error) {
	subject, body := p.render(ctx, d.template, req, member, show, d.extra)
	item := newItem(req, show, subject, body, d.decision, d.source, d.confidence, d.reasoning, d.start)
	if err := p.queue.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("pipeline: enqueue decision: %w", err)
	}
	return outcomeOf(item), nil
}

// technicalFailure is the last-resort path: whatever broke, the
// request still ends up queued as a rejected item a supervisor can
// inspect and retry.
func (p *DecisionPipeline) technicalFailure(ctx context.Context, req model.DiscountRequest, start time.Time) (*model.Outcome, error) {
	out, err := p.enqueueDecision(ctx, req, nil, nil, decisionDraft{
		decision: model.DecisionRejected, source: model.SourceValidator,
		template:   "rejection_technical_error",
		reasoning:  "Error técnico al procesar la solicitud.",
		confidence: 0, start: start,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: persist technical failure: %w", err)
	}
	return out, nil
}

// render builds the placeholder context and renders the template. The
// request fields back up the member record so emails drafted for
// unknown requesters still address them by the name they submitted.
func (p *DecisionPipeline) render(ctx context.Context, template string, req model.DiscountRequest, member *model.Member, show *model.Show, extra map[string]string) (string, string) {
	data := BuildContext(member, show, nil)
	if _, ok := data["member_name"]; !ok {
		data["member_name"] = req.MemberName
	}
	if _, ok := data["member_email"]; !ok {
		data["member_email"] = req.MemberEmail
	}
	data["description"] = req.Description
	if show != nil {
		data["show_description"] = show.Title
	} else if req.Description != "" {
		data["show_description"] = req.Description
	}
	for k, v := range extra {
		data[k] = v
	}
	return p.templates.Render(ctx, template, data)
}

func newItem(req model.DiscountRequest, show *model.Show, subject, body, decision, source string, confidence float64, reasoning string, start time.Time) *model.SupervisionItem {
	item := &model.SupervisionItem{
		RequestID:        req.RequestID,
		MemberEmail:      strings.ToLower(req.MemberEmail),
		MemberName:       req.MemberName,
		ShowDescription:  req.Description,
		DecisionType:     decision,
		DecisionSource:   source,
		EmailSubject:     subject,
		EmailContent:     body,
		ConfidenceScore:  confidence,
		Reasoning:        reasoning,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if show != nil {
		if item.ShowDescription == "" {
			item.ShowDescription = show.Title
		}
		// Only approvals reference the show: the quota ledger counts
		// every show-linked item in an active status as a reservation,
		// so a rejection keeping the link would hold the very slot it
		// was denied.
		if decision == model.DecisionApproved {
			id := show.ID
			item.ShowID = &id
		}
	}
	return item
}

// newDiscountCode mints a code bound to the show. The random suffix
// keeps codes unguessable without any persistence of their own.
func newDiscountCode(showCode string) string {
	return fmt.Sprintf("DESC-%s-%s", showCode, strings.ToUpper(utils.RandomHex(4)))
}

// NewRequestID mints the server-side idempotency key handed back to
// intake clients that did not supply one.
func NewRequestID() string {
	return "req_" + utils.RandomHex(8)
}

func outcomeOf(item *model.SupervisionItem) *model.Outcome {
	return &model.Outcome{
		QueueID:      item.ID,
		RequestID:    item.RequestID,
		DecisionType: item.DecisionType,
		ShowID:       item.ShowID,
		EmailSubject: item.EmailSubject,
		EmailContent: item.EmailContent,
		Confidence:   item.ConfidenceScore,
		Reasoning:    item.Reasoning,
	}
}
