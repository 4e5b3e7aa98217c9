package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
)

// stubTemplates serves a fixed template map; names outside it answer
// ErrTemplateNotFound like the repository does.
type stubTemplates struct {
	byName map[string]model.EmailTemplate
	err    error
}

func (s *stubTemplates) GetByName(_ context.Context, name string) (*model.EmailTemplate, error) {
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.byName[name]
	if !ok {
		return nil, repository.ErrTemplateNotFound
	}
	return &t, nil
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	e := NewTemplateEngine(&stubTemplates{byName: map[string]model.EmailTemplate{
		"greeting": {Subject: "Hola {member_name}", Body: "Tu show: {show_title} en {show_venue}"},
	}})
	subject, body := e.Render(context.Background(), "greeting", map[string]string{
		"member_name": "Ana", "show_title": "Dillom en vivo", "show_venue": "Niceto Club",
	})
	if subject != "Hola Ana" {
		t.Fatalf("subject = %q", subject)
	}
	if body != "Tu show: Dillom en vivo en Niceto Club" {
		t.Fatalf("body = %q", body)
	}
}

func TestRenderMissingKeysUseSentinel(t *testing.T) {
	e := NewTemplateEngine(&stubTemplates{byName: map[string]model.EmailTemplate{
		"greeting": {Subject: "Hola {member_name}", Body: "Código: {discount_code}"},
	}})
	subject, body := e.Render(context.Background(), "greeting", map[string]string{"member_name": "Ana"})
	if subject != "Hola Ana" {
		t.Fatalf("subject = %q", subject)
	}
	if body != "Código: "+MissingValue {
		t.Fatalf("body = %q", body)
	}
}

func TestRenderUnknownNameFallsBack(t *testing.T) {
	e := NewTemplateEngine(&stubTemplates{byName: map[string]model.EmailTemplate{}})
	subject, body := e.Render(context.Background(), "approval", map[string]string{"member_name": "Ana"})
	if subject == "" || body == "" {
		t.Fatal("fallback approval template must render")
	}
	if !strings.Contains(body, "Ana") {
		t.Fatalf("fallback body did not substitute member_name: %q", body)
	}
	// Template name with no fallback still renders something.
	subject, body = e.Render(context.Background(), "does_not_exist", nil)
	if subject == "" || body == "" {
		t.Fatal("default fallback must render for unknown names")
	}
}

func TestRenderStoreFailureFallsBack(t *testing.T) {
	e := NewTemplateEngine(&stubTemplates{err: errors.New("connection refused")})
	subject, body := e.Render(context.Background(), "approval", map[string]string{"member_name": "Ana"})
	if subject == "" || body == "" {
		t.Fatal("store failure must fall back, not fail")
	}
}

func TestRenderNilStore(t *testing.T) {
	e := NewTemplateEngine(nil)
	subject, _ := e.Render(context.Background(), "clarification_not_found", map[string]string{"member_name": "Ana"})
	if subject == "" {
		t.Fatal("nil store must serve the built-in set")
	}
}

func TestBuildContextFlattening(t *testing.T) {
	member := &model.Member{Email: "ana@mail.com", Name: "Ana"}
	show := &model.Show{
		Title: "Dillom en vivo", Artist: "Dillom", Venue: "Niceto Club", Code: "DGS",
		Date:     time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		Metadata: map[string]string{"discount_details": "2x1 en entradas"},
	}
	data := BuildContext(member, show, map[string]string{"discount_code": "DESC-DGS-AB12CD34"})

	for key, want := range map[string]string{
		"member_name":      "Ana",
		"show_title":       "Dillom en vivo",
		"show_date":        "15/10/2026",
		"discount_details": "2x1 en entradas",
		"discount_code":    "DESC-DGS-AB12CD34",
	} {
		if data[key] != want {
			t.Errorf("context[%q] = %q, want %q", key, data[key], want)
		}
	}
}

func TestCandidateList(t *testing.T) {
	list := CandidateList(candidates()[:2])
	if !strings.Contains(list, "1. Dillom en vivo") || !strings.Contains(list, "2. Bandalos Chinos") {
		t.Fatalf("unexpected candidate list:\n%s", list)
	}
}
