// Package service implements the discount decision pipeline: the
// eligibility validator, show match resolution, email templating, the
// pipeline orchestrating them and the supervision queue operations.
// Persistence is reached through small interfaces so the pipeline can
// be exercised without a database.
package service

import (
	"context"
	"sort"
	"strings"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
)

// Match outcome kinds returned by a Resolver.
const (
	MatchSingle   = "single"
	MatchMultiple = "multiple"
	MatchNone     = "none"
)

// MatchResult is the three-way outcome of resolving a free-text show
// description against the candidate catalog. Kind is MatchSingle,
// MatchMultiple or MatchNone; ShowID and Confidence are set for a
// single match, Candidates for an ambiguous one.
type MatchResult struct {
	Kind       string
	ShowID     uint64
	Confidence float64
	Candidates []model.ShowSummary
}

// Resolver maps a free-text show description to catalog entries.
// Implementations must be total: failures, timeouts and garbage input
// all degrade to a MatchNone result so the pipeline never blocks or
// faults on a resolver. Candidates are pre-filtered to active shows
// with remaining discount slots.
type Resolver interface {
	Resolve(ctx context.Context, description string, candidates []model.ShowSummary) MatchResult
}

// Baseline acceptance tuning. A candidate needs scoreThreshold to be
// considered at all; a single winner additionally needs to beat the
// runner-up by winnerMargin, otherwise the result is ambiguous.
const (
	scoreThreshold  = 0.3
	acceptThreshold = 0.5
	winnerMargin    = 0.15
	maxCandidates   = 5
)

// BaselineResolver is the deterministic token-similarity resolver
// used when no external matcher is configured. It scores each
// candidate by token overlap between the description and the show's
// title, artist and venue.
type BaselineResolver struct{}

// NewBaselineResolver returns the built-in deterministic resolver.
func NewBaselineResolver() *BaselineResolver { return &BaselineResolver{} }

type scored struct {
	show  model.ShowSummary
	score float64
}

// Resolve implements Resolver.
func (r *BaselineResolver) Resolve(_ context.Context, description string, candidates []model.ShowSummary) MatchResult {
	queryTokens := tokenize(description)
	if len(queryTokens) == 0 || len(candidates) == 0 {
		return MatchResult{Kind: MatchNone}
	}

	scores := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		s := similarity(queryTokens, tokenize(c.Title+" "+c.Artist+" "+c.Venue))
		if s >= scoreThreshold {
			scores = append(scores, scored{show: c, score: s})
		}
	}
	if len(scores) == 0 {
		return MatchResult{Kind: MatchNone}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].show.ID < scores[j].show.ID
	})

	top := scores[0]
	clearWinner := len(scores) == 1 || top.score-scores[1].score >= winnerMargin
	if top.score >= acceptThreshold && clearWinner {
		return MatchResult{Kind: MatchSingle, ShowID: top.show.ID, Confidence: top.score}
	}

	n := len(scores)
	if n > maxCandidates {
		n = maxCandidates
	}
	out := make([]model.ShowSummary, 0, n)
	for _, s := range scores[:n] {
		out = append(out, s.show)
	}
	return MatchResult{Kind: MatchMultiple, Confidence: top.score, Candidates: out}
}

// tokenize lower-cases the input and splits it into unique word
// tokens, dropping single-character noise and common filler words
// that carry no matching signal.
func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 0x80
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

// similarity is the fraction of query tokens present in the candidate
// token set. Matching on the query side rewards descriptions that are
// subsets of long show titles instead of punishing them.
func similarity(query, candidate map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for tok := range query {
		if _, ok := candidate[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// Filler words seen in real requests ("quiero un descuento para el
// show de ...") that would otherwise inflate scores.
var stopwords = map[string]struct{}{
	"el": {}, "la": {}, "los": {}, "las": {}, "de": {}, "del": {}, "en": {},
	"un": {}, "una": {}, "para": {}, "show": {}, "recital": {}, "descuento": {},
	"quiero": {}, "the": {}, "at": {}, "in": {}, "for": {},
}
