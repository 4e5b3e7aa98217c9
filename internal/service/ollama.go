package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
)

// OllamaResolver resolves show descriptions with a local LLM behind
// the ollama HTTP API. It honours the Resolver contract strictly: one
// bounded attempt, and every failure mode (unreachable service,
// non-200, timeout, malformed output, hallucinated show id) degrades
// to MatchNone. It never returns an error and never retries, keeping
// pipeline latency predictable.
type OllamaResolver struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaResolver builds an LLM-backed resolver. timeout bounds the
// whole HTTP exchange.
func NewOllamaResolver(baseURL, model string, timeout time.Duration) *OllamaResolver {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OllamaResolver{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// matchReply is the JSON shape the prompt instructs the model to emit.
type matchReply struct {
	Status       string   `json:"status"`
	ShowID       uint64   `json:"show_id"`
	CandidateIDs []uint64 `json:"candidate_ids"`
	Confidence   float64  `json:"confidence"`
}

// Resolve implements Resolver.
func (r *OllamaResolver) Resolve(ctx context.Context, description string, candidates []model.ShowSummary) MatchResult {
	if strings.TrimSpace(description) == "" || len(candidates) == 0 {
		return MatchResult{Kind: MatchNone}
	}

	body, err := json.Marshal(generateRequest{
		Model:  r.model,
		Prompt: r.buildPrompt(description, candidates),
		Stream: false,
	})
	if err != nil {
		return MatchResult{Kind: MatchNone}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return MatchResult{Kind: MatchNone}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("resolver: ollama unreachable: %v", err)
		return MatchResult{Kind: MatchNone}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("resolver: ollama returned status %d", resp.StatusCode)
		return MatchResult{Kind: MatchNone}
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		log.Printf("resolver: decode ollama response: %v", err)
		return MatchResult{Kind: MatchNone}
	}
	reply, err := parseMatchReply(gen.Response)
	if err != nil {
		log.Printf("resolver: unusable llm output: %v", err)
		return MatchResult{Kind: MatchNone}
	}

	byID := make(map[uint64]model.ShowSummary, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	switch reply.Status {
	case "single":
		if _, ok := byID[reply.ShowID]; !ok {
			// Show id not in the candidate set: the model made it up.
			return MatchResult{Kind: MatchNone}
		}
		return MatchResult{Kind: MatchSingle, ShowID: reply.ShowID, Confidence: clampConfidence(reply.Confidence)}
	case "multiple":
		out := make([]model.ShowSummary, 0, len(reply.CandidateIDs))
		for _, id := range reply.CandidateIDs {
			if c, ok := byID[id]; ok {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return MatchResult{Kind: MatchNone}
		}
		return MatchResult{Kind: MatchMultiple, Confidence: clampConfidence(reply.Confidence), Candidates: out}
	default:
		return MatchResult{Kind: MatchNone}
	}
}

func (r *OllamaResolver) buildPrompt(description string, candidates []model.ShowSummary) string {
	var sb strings.Builder
	sb.WriteString("Sos un experto en identificar shows musicales. El usuario pide un descuento para:\n\n")
	fmt.Fprintf(&sb, "%q\n\nSHOWS DISPONIBLES (todos con descuentos):\n", description)
	for _, c := range candidates {
		fmt.Fprintf(&sb, "- id=%d | %s | %s | %s | %s\n",
			c.ID, c.Title, c.Artist, c.Venue, c.Date.Format("2006-01-02"))
	}
	sb.WriteString(`
Decidí si hay un match claro, varios posibles, o ninguno.
Respondé SOLO con JSON, sin texto adicional:
  un match:     {"status":"single","show_id":1,"confidence":0.95}
  varios:       {"status":"multiple","candidate_ids":[1,2],"confidence":0.6}
  ninguno:      {"status":"none","confidence":0.2}
`)
	return sb.String()
}

// parseMatchReply pulls the first JSON object out of the model output
// and decodes it. Models wrap answers in prose often enough that the
// extraction is not optional.
func parseMatchReply(raw string) (*matchReply, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in %q", raw)
	}
	var reply matchReply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
