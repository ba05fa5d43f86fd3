package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/resolver"
)

func bodyOfWords(n int) string {
	return strings.TrimSpace(strings.Repeat("revenue ", n))
}

func acmeResolver() *resolver.Resolver {
	return resolver.New([]domain.CompanyReference{
		{Name: "ACME LIMITED", NSECode: "ACME", Exchange: "NSE", MarketCap: 5e9, MarketCapChecked: true},
		{Name: "Zen Industries", NSECode: "ZEN", Exchange: "NSE", MarketCap: 8e9, MarketCapChecked: true},
	}, 0.70, 5e9)
}

func scriptAcme(c *scriptedCompletion) {
	c.responses[classifySystemPrompt] = `{"classification":"CompanyAnalysis","summary":"Deep dive on Acme.","companies":["Acme Ltd"]}`
	c.responses[extractSystemPrompt] = `{"companies":["Acme Ltd"]}`
	c.responses[validateSystemPrompt] = `{"accepted":["Acme Ltd"]}`
	c.responses[summarizeSystemPrompt] = `{"summary":"Acme margins are set to expand.","sentiment":"bullish"}`
}

func TestProcessDeepDiveKeepsLabelAtWordFloor(t *testing.T) {
	t.Parallel()

	completion := newScriptedCompletion()
	scriptAcme(completion)
	p := NewPipeline(PipelineDeps{Completion: completion, MinDeepDiveWords: 600})

	post := rawPost("https://a.example/acme")
	post.BodyText = bodyOfWords(600)

	enriched := p.Process(context.Background(), post, acmeResolver())
	if enriched.Classification != domain.ClassCompanyAnalysis {
		t.Fatalf("expected CompanyAnalysis at the floor, got %s", enriched.Classification)
	}
	if len(enriched.CompanyMatches) != 1 || enriched.CompanyMatches[0].ResolvedName != "ACME LIMITED" {
		t.Fatalf("unexpected matches: %+v", enriched.CompanyMatches)
	}
	if enriched.CompanyMatches[0].NSECode != "ACME" {
		t.Fatalf("unexpected ticker: %+v", enriched.CompanyMatches[0])
	}
	if enriched.Summary != "Acme margins are set to expand." {
		t.Fatalf("unexpected summary: %q", enriched.Summary)
	}
	if len(enriched.SentimentTags) != 1 || enriched.SentimentTags[0] != "bullish" {
		t.Fatalf("unexpected sentiment: %v", enriched.SentimentTags)
	}
}

func TestProcessShortDeepDiveDemoted(t *testing.T) {
	t.Parallel()

	completion := newScriptedCompletion()
	scriptAcme(completion)
	p := NewPipeline(PipelineDeps{Completion: completion, MinDeepDiveWords: 600})

	post := rawPost("https://a.example/acme-short")
	post.BodyText = bodyOfWords(599)

	enriched := p.Process(context.Background(), post, acmeResolver())
	if enriched.Classification != domain.ClassOther {
		t.Fatalf("one word under the floor must demote, got %s", enriched.Classification)
	}
}

func TestProcessClassifyFailureDegrades(t *testing.T) {
	t.Parallel()

	completion := newScriptedCompletion()
	completion.errs[classifySystemPrompt] = errors.New("inference down")
	p := NewPipeline(PipelineDeps{Completion: completion})

	post := rawPost("https://a.example/degraded")
	post.BodyText = "Steel demand held up through the quarter despite soft exports."

	enriched := p.Process(context.Background(), post, acmeResolver())
	if enriched.Classification != domain.ClassOther {
		t.Fatalf("degraded post must default to Other, got %s", enriched.Classification)
	}
	if !strings.HasPrefix(enriched.Summary, "Steel demand") {
		t.Fatalf("expected body-derived fallback summary, got %q", enriched.Summary)
	}
	if len(enriched.SentimentTags) != 1 || enriched.SentimentTags[0] != "neutral" {
		t.Fatalf("degraded sentiment must be neutral, got %v", enriched.SentimentTags)
	}
	if completion.callCount(extractSystemPrompt) != 0 {
		t.Fatal("later stages must not run after a classify failure")
	}
}

func TestProcessValidateExhaustionAlerts(t *testing.T) {
	t.Parallel()

	completion := newScriptedCompletion()
	scriptAcme(completion)
	completion.responses[validateSystemPrompt] = `{"accepted":[]}`
	alerter := &recordingAlerter{}
	p := NewPipeline(PipelineDeps{Completion: completion, Alerter: alerter, ValidateRetries: 2})

	post := rawPost("https://a.example/acme")
	post.BodyText = bodyOfWords(700)

	enriched := p.Process(context.Background(), post, acmeResolver())
	if len(enriched.CompanyMatches) != 0 {
		t.Fatalf("expected no surviving matches, got %+v", enriched.CompanyMatches)
	}
	if got := completion.callCount(validateSystemPrompt); got != 3 {
		t.Fatalf("expected 3 validate attempts, got %d", got)
	}
	if len(alerter.all()) != 1 {
		t.Fatalf("expected one operational alert, got %v", alerter.all())
	}
}

func TestProcessMultiMatchReclassifies(t *testing.T) {
	t.Parallel()

	completion := newScriptedCompletion()
	scriptAcme(completion)
	completion.responses[classifySystemPrompt] = `{"classification":"CompanyAnalysis","summary":"s","companies":["Acme Ltd","Zen Industries"]}`
	completion.responses[extractSystemPrompt] = `{"companies":["Acme Ltd","Zen Industries"]}`
	completion.responses[validateSystemPrompt] = `{"accepted":["Acme Ltd","Zen Industries"]}`
	p := NewPipeline(PipelineDeps{Completion: completion, MinDeepDiveWords: 600})

	post := rawPost("https://a.example/two")
	post.BodyText = bodyOfWords(800)

	enriched := p.Process(context.Background(), post, acmeResolver())
	if len(enriched.CompanyMatches) != 2 {
		t.Fatalf("expected two matches, got %+v", enriched.CompanyMatches)
	}
	if enriched.Classification != domain.ClassMultiCompanyAnalysis {
		t.Fatalf("two surviving matches must reclassify, got %s", enriched.Classification)
	}
}
