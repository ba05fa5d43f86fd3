package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/infrastructure/llm"
	"BlogHarvester/internal/ports"
	"BlogHarvester/internal/resolver"
)

// postState tracks a post through the classification chain. Stages are
// strictly ordered per post; only the Resolve/Validate transition is
// retried in place so earlier, expensive stages never re-run on a
// validation-only failure.
type postState int

const (
	stateFetched postState = iota
	stateClassified
	stateExtracted
	stateResolved
	stateValidated
)

// PipelineDeps wires the inference client and tuning knobs.
type PipelineDeps struct {
	Completion       ports.Completion
	Alerter          ports.Alerter
	Logger           *slog.Logger
	MinDeepDiveWords int
	ValidateRetries  int
}

// Pipeline runs the ordered classify → extract → resolve → validate →
// summarize chain per post. Inference failures degrade the post, they
// never drop it.
type Pipeline struct {
	completion       ports.Completion
	alerter          ports.Alerter
	logger           *slog.Logger
	minDeepDiveWords int
	validateRetries  int
}

// NewPipeline constructs the classification chain.
func NewPipeline(deps PipelineDeps) *Pipeline {
	retries := deps.ValidateRetries
	if retries <= 0 {
		retries = 2
	}
	words := deps.MinDeepDiveWords
	if words <= 0 {
		words = 600
	}
	return &Pipeline{
		completion:       deps.Completion,
		alerter:          deps.Alerter,
		logger:           deps.Logger,
		minDeepDiveWords: words,
		validateRetries:  retries,
	}
}

type classifyResult struct {
	Classification string   `json:"classification"`
	Summary        string   `json:"summary"`
	Companies      []string `json:"companies"`
}

type extractResult struct {
	Companies []string `json:"companies"`
}

type validateResult struct {
	Accepted []string `json:"accepted"`
}

type summarizeResult struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
}

// Process turns one RawPost into an EnrichedPost. The returned post is
// always usable; degraded fields signal which stages failed.
func (p *Pipeline) Process(ctx context.Context, post domain.RawPost, res *resolver.Resolver) domain.EnrichedPost {
	now := time.Now().UTC()
	enriched := domain.EnrichedPost{
		Link:           post.Link,
		Title:          post.Title,
		PublishedAt:    post.PublishedAt,
		Author:         post.Author,
		Image:          post.Image,
		Classification: domain.ClassOther,
		CreatedAt:      now,
		LastCheckedAt:  now,
	}

	state := stateFetched

	classified, err := p.classify(ctx, post)
	if err != nil {
		p.warn("classify failed, persisting degraded", "link", post.Link, "error", err)
		enriched.Summary = fallbackSummary(post)
		enriched.SentimentTags = []string{string(domain.SentimentNeutral)}
		return enriched
	}
	state = stateClassified
	enriched.Classification = classified.label(p.minDeepDiveWords, post.BodyText)
	enriched.Summary = classified.Summary

	candidates, err := p.extract(ctx, post, enriched.Classification, classified.Companies)
	if err != nil {
		p.warn("extract failed, keeping classify candidates", "link", post.Link, "error", err)
		candidates = classified.Companies
	}
	state = stateExtracted

	matches := p.resolveAndValidate(ctx, post, candidates, res, &state)
	enriched.CompanyMatches = matches

	// A single-company deep dive with more than one surviving match is
	// not single-company; the invariant is enforced here rather than
	// trusting inference-stage compliance.
	if enriched.Classification == domain.ClassCompanyAnalysis && len(matches) > 1 {
		enriched.Classification = domain.ClassMultiCompanyAnalysis
	}

	summary, sentiment := p.summarize(ctx, post)
	if summary != "" {
		enriched.Summary = summary
	}
	if enriched.Summary == "" {
		enriched.Summary = fallbackSummary(post)
	}
	enriched.SentimentTags = []string{string(sentiment)}

	return enriched
}

// label applies the deep-dive word-count gate: a CompanyAnalysis below
// the minimum body length falls back to the catch-all label.
func (c classifyResult) label(minWords int, body string) domain.Classification {
	label := domain.Classification(c.Classification)
	if !domain.ValidClassification(label) {
		return domain.ClassOther
	}
	if label == domain.ClassCompanyAnalysis && wordCount(body) < minWords {
		return domain.ClassOther
	}
	return label
}

func (p *Pipeline) classify(ctx context.Context, post domain.RawPost) (classifyResult, error) {
	var out classifyResult
	prompt := fmt.Sprintf("Title: %s\n\nArticle text:\n%s", post.Title, post.BodyText)
	if err := p.completeInto(ctx, classifySystemPrompt, prompt, &out); err != nil {
		return classifyResult{}, err
	}
	return out, nil
}

func (p *Pipeline) extract(ctx context.Context, post domain.RawPost, class domain.Classification, raw []string) ([]string, error) {
	var out extractResult
	prompt := fmt.Sprintf("Classification: %s\nCandidates: %s\n\nTitle: %s\n\nArticle text:\n%s",
		class, strings.Join(raw, "; "), post.Title, post.BodyText)
	if err := p.completeInto(ctx, extractSystemPrompt, prompt, &out); err != nil {
		return nil, err
	}
	return out.Companies, nil
}

// resolveAndValidate runs stages 3 and 4. When zero matches survive
// validation the pair is retried in place; exhaustion persists the post
// without matches and raises an operational alert.
func (p *Pipeline) resolveAndValidate(ctx context.Context, post domain.RawPost, candidates []string, res *resolver.Resolver, state *postState) []domain.CompanyMatch {
	if len(candidates) == 0 || res == nil {
		return nil
	}

	for attempt := 0; attempt <= p.validateRetries; attempt++ {
		resolved := resolveCandidates(candidates, res)
		*state = stateResolved
		if len(resolved) == 0 {
			break
		}

		validated, err := p.validate(ctx, post, resolved)
		if err != nil {
			p.warn("validate call failed", "link", post.Link, "attempt", attempt, "error", err)
			continue
		}
		if len(validated) > 0 {
			*state = stateValidated
			return validated
		}
	}

	p.alert(ctx, fmt.Sprintf("no company match survived validation for %s (%d candidates)", post.Link, len(candidates)))
	return nil
}

func resolveCandidates(candidates []string, res *resolver.Resolver) []domain.CompanyMatch {
	matches := make([]domain.CompanyMatch, 0, len(candidates))
	seen := map[string]struct{}{}
	for _, name := range candidates {
		m, ok := res.Resolve(name)
		if !ok {
			continue
		}
		if _, dup := seen[m.Company.Name]; dup {
			continue
		}
		seen[m.Company.Name] = struct{}{}
		matches = append(matches, domain.CompanyMatch{
			ExtractedName: name,
			ResolvedName:  m.Company.Name,
			NSECode:       m.Company.NSECode,
			BSECode:       m.Company.BSECode,
			MarketCap:     m.Company.MarketCap,
			Confidence:    m.Confidence,
		})
	}
	return matches
}

func (p *Pipeline) validate(ctx context.Context, post domain.RawPost, matches []domain.CompanyMatch) ([]domain.CompanyMatch, error) {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, fmt.Sprintf("%s (resolved: %s)", m.ExtractedName, m.ResolvedName))
	}

	var out validateResult
	prompt := fmt.Sprintf("Candidates:\n%s\n\nTitle: %s\n\nArticle text:\n%s",
		strings.Join(names, "\n"), post.Title, post.BodyText)
	if err := p.completeInto(ctx, validateSystemPrompt, prompt, &out); err != nil {
		return nil, err
	}

	accepted := map[string]struct{}{}
	for _, name := range out.Accepted {
		accepted[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	kept := make([]domain.CompanyMatch, 0, len(matches))
	for _, m := range matches {
		_, byExtracted := accepted[strings.ToLower(m.ExtractedName)]
		_, byResolved := accepted[strings.ToLower(m.ResolvedName)]
		if byExtracted || byResolved {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

func (p *Pipeline) summarize(ctx context.Context, post domain.RawPost) (string, domain.Sentiment) {
	var out summarizeResult
	prompt := fmt.Sprintf("Title: %s\n\nArticle text:\n%s", post.Title, post.BodyText)
	if err := p.completeInto(ctx, summarizeSystemPrompt, prompt, &out); err != nil {
		p.warn("summarize failed, using fallback", "link", post.Link, "error", err)
		return "", domain.SentimentNeutral
	}
	sentiment := domain.Sentiment(out.Sentiment)
	switch sentiment {
	case domain.SentimentBullish, domain.SentimentBearish, domain.SentimentNeutral:
	default:
		sentiment = domain.SentimentNeutral
	}
	return strings.TrimSpace(out.Summary), sentiment
}

// completeInto runs one inference call and parses its output as an
// untrusted payload.
func (p *Pipeline) completeInto(ctx context.Context, system, user string, v any) error {
	if p.completion == nil {
		return fmt.Errorf("no completion client configured")
	}
	raw, err := p.completion.Complete(ctx, system, user)
	if err != nil {
		return fmt.Errorf("inference call: %w", err)
	}
	payload, err := llm.ExtractJSON(raw)
	if err != nil {
		return fmt.Errorf("unwrap response: %w", err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// fallbackSummary is the documented degraded default when inference is
// unavailable: the opening of the body, or the title.
func fallbackSummary(post domain.RawPost) string {
	body := strings.TrimSpace(post.BodyText)
	if body == "" {
		return post.Title
	}
	const max = 240
	if len(body) <= max {
		return body
	}
	cut := body[:max]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) alert(ctx context.Context, message string) {
	if p.alerter == nil {
		return
	}
	if err := p.alerter.Alert(ctx, message); err != nil && p.logger != nil {
		p.logger.Error("operational alert failed", "error", err)
	}
}
