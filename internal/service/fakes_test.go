package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/notifier"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories. It
// mirrors their contract: atomic reservation against the show quota,
// idempotent inserts per request id and guarded status transitions
// returning the same sentinel errors.
type memStore struct {
	mu      sync.Mutex
	nextID  uint64
	items   map[uint64]*model.SupervisionItem
	byReq   map[string]uint64
	shows   map[uint64]*model.Show
	members map[string]*model.Member

	reserveErr error // forced failure for error-path tests
}

func newMemStore() *memStore {
	return &memStore{
		items:   make(map[uint64]*model.SupervisionItem),
		byReq:   make(map[string]uint64),
		shows:   make(map[uint64]*model.Show),
		members: make(map[string]*model.Member),
	}
}

func (s *memStore) addShow(show model.Show) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := show
	s.shows[show.ID] = &cp
}

func (s *memStore) addMember(m model.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := m
	s.members[strings.ToLower(m.Email)] = &cp
}

// --- MemberSource ---

func (s *memStore) GetByEmail(_ context.Context, email string) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

// --- ShowSource ---

func (s *memStore) GetByID(_ context.Context, id uint64) (*model.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	show, ok := s.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	cp := *show
	return &cp, nil
}

func (s *memStore) ListAvailable(_ context.Context) ([]model.ShowSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ShowSummary, 0, len(s.shows))
	for _, show := range s.shows {
		remaining := show.QuotaMax - s.activeCountLocked(show.ID)
		if !show.Active || remaining <= 0 {
			continue
		}
		out = append(out, model.ShowSummary{
			ID: show.ID, Code: show.Code, Title: show.Title, Artist: show.Artist,
			Venue: show.Venue, Date: show.Date, Remaining: remaining,
		})
	}
	return out, nil
}

// --- DuplicateSource ---

func (s *memStore) HasActiveRequest(_ context.Context, memberEmail string, showID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(memberEmail)
	for _, item := range s.items {
		if item.MemberEmail == email && item.ShowID != nil && *item.ShowID == showID &&
			item.Status != model.StatusRejected {
			return true, nil
		}
	}
	return false, nil
}

// --- QueueStore ---

func (s *memStore) Reserve(_ context.Context, item *model.SupervisionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserveErr != nil {
		return s.reserveErr
	}
	if item.ShowID == nil {
		return repository.ErrShowUnavailable
	}
	show, ok := s.shows[*item.ShowID]
	if !ok || !show.Active {
		return repository.ErrShowUnavailable
	}
	if id, ok := s.byReq[item.RequestID]; ok {
		*item = *s.items[id]
		return nil
	}
	if s.activeCountLocked(show.ID) >= show.QuotaMax {
		return repository.ErrQuotaExhausted
	}
	s.insertLocked(item)
	return nil
}

func (s *memStore) Insert(_ context.Context, item *model.SupervisionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byReq[item.RequestID]; ok {
		*item = *s.items[id]
		return nil
	}
	s.insertLocked(item)
	return nil
}

func (s *memStore) GetByRequestID(_ context.Context, requestID string) (*model.SupervisionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byReq[requestID]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	cp := *s.items[id]
	return &cp, nil
}

func (s *memStore) activeCountLocked(showID uint64) int {
	n := 0
	for _, item := range s.items {
		if item.ShowID != nil && *item.ShowID == showID && item.Status != model.StatusRejected {
			n++
		}
	}
	return n
}

func (s *memStore) insertLocked(item *model.SupervisionItem) {
	s.nextID++
	item.ID = s.nextID
	item.Status = model.StatusPending
	item.DeliveryStatus = model.DeliveryNone
	item.CreatedAt = time.Now().UTC()
	cp := *item
	s.items[item.ID] = &cp
	s.byReq[item.RequestID] = item.ID
}

// --- SupervisionStore ---

// memSupervision adapts memStore to the SupervisionStore interface:
// its GetByID returns queue items where memStore's returns shows.
type memSupervision struct{ *memStore }

func (s memSupervision) GetByID(ctx context.Context, id uint64) (*model.SupervisionItem, error) {
	return s.memStore.getItemCopy(id)
}

func (s *memStore) getItemCopy(id uint64) (*model.SupervisionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.getItem(id)
	if err != nil {
		return nil, err
	}
	cp := *item
	return &cp, nil
}

func (s *memStore) getItem(id uint64) (*model.SupervisionItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	return item, nil
}

func (s *memStore) Approve(_ context.Context, id uint64, reviewer, notes string) error {
	return s.transition(id, []string{model.StatusPending}, model.StatusApproved, reviewer, notes)
}

func (s *memStore) Reject(_ context.Context, id uint64, reviewer, reason string) error {
	return s.transition(id, []string{model.StatusPending, model.StatusApproved}, model.StatusRejected, reviewer, reason)
}

func (s *memStore) transition(id uint64, from []string, to, reviewer, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.getItem(id)
	if err != nil {
		return err
	}
	allowed := false
	for _, f := range from {
		if item.Status == f {
			allowed = true
		}
	}
	if !allowed {
		return repository.ErrInvalidTransition
	}
	now := time.Now().UTC()
	item.Status = to
	item.ReviewedAt = &now
	item.ReviewedBy = &reviewer
	item.SupervisorNotes = &notes
	return nil
}

func (s *memStore) UpdateDraft(_ context.Context, id uint64, subject, body, decisionType, reviewer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.getItem(id)
	if err != nil {
		return err
	}
	if item.Status == model.StatusSent {
		return repository.ErrInvalidTransition
	}
	now := time.Now().UTC()
	item.EmailSubject = subject
	item.EmailContent = body
	if decisionType != "" {
		item.DecisionType = decisionType
	}
	item.ReviewedAt = &now
	item.ReviewedBy = &reviewer
	return nil
}

func (s *memStore) MarkSent(_ context.Context, id uint64, deliveryStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.getItem(id)
	if err != nil {
		return err
	}
	if item.Status != model.StatusApproved && item.Status != model.StatusRejected {
		return repository.ErrInvalidTransition
	}
	item.Status = model.StatusSent
	item.DeliveryStatus = deliveryStatus
	return nil
}

func (s *memStore) List(_ context.Context, f model.QueueFilter, page, pageSize int) (*model.QueuePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	matched := make([]model.SupervisionItem, 0, len(s.items))
	for _, item := range s.items {
		if f.Status != "" && item.Status != f.Status {
			continue
		}
		if f.DecisionType != "" && item.DecisionType != f.DecisionType {
			continue
		}
		if f.MemberEmail != "" && !strings.Contains(item.MemberEmail, strings.ToLower(f.MemberEmail)) {
			continue
		}
		matched = append(matched, *item)
	}
	// newest first, id tie-break like the SQL ORDER BY
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			a, b := matched[i], matched[j]
			if b.CreatedAt.After(a.CreatedAt) || (b.CreatedAt.Equal(a.CreatedAt) && b.ID > a.ID) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return &model.QueuePage{
		Items: matched[start:end], Total: total, Page: page, PageSize: pageSize,
		TotalPages: (total + int64(pageSize) - 1) / int64(pageSize),
	}, nil
}

func (s *memStore) Stats(_ context.Context) (*model.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &model.QueueStats{ByStatus: map[string]int64{}, ByDecision: map[string]int64{}}
	for _, item := range s.items {
		stats.ByStatus[item.Status]++
		stats.ByDecision[item.DecisionType]++
		stats.Total++
	}
	if stats.Total > 0 {
		stats.ApprovalRate = float64(stats.ByDecision[model.DecisionApproved]) / float64(stats.Total)
	}
	return stats, nil
}

// fakeNotifier records deliveries and answers with a canned receipt.
type fakeNotifier struct {
	mu        sync.Mutex
	delivered []string
	receipt   notifier.Receipt
	err       error
}

func (f *fakeNotifier) Deliver(_ context.Context, to, _, _ string) (notifier.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, to)
	r := f.receipt
	if r.Status == "" {
		r.Status = notifier.StatusSent
	}
	r.DeliveredAt = time.Now().UTC()
	return r, f.err
}

// fixedResolver returns a preset result regardless of input.
type fixedResolver struct{ result MatchResult }

func (r fixedResolver) Resolve(context.Context, string, []model.ShowSummary) MatchResult {
	return r.result
}
