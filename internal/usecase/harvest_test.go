package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"BlogHarvester/internal/adapter"
	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/metrics"
	"BlogHarvester/internal/notify"
)

// TestHarvestEndToEnd walks one post through the whole run: adapter,
// dedup, classification, resolution, persistence and fan-out.
func TestHarvestEndToEnd(t *testing.T) {
	t.Parallel()

	source := domain.Source{
		ID:           "acme-blog",
		PlatformKind: domain.PlatformFeed,
		OriginURL:    "https://blog.example",
		Active:       true,
	}
	post := domain.RawPost{
		Title:       "Acme Ltd: the moat nobody prices in",
		Link:        "https://blog.example/acme-deep-dive",
		PublishedAt: time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
		Author:      "R. Iyer",
		BodyText:    bodyOfWords(900),
	}

	registry := adapter.NewRegistry()
	registry.Register(&stubAdapter{kind: domain.PlatformFeed, posts: []domain.RawPost{post}})

	completion := newScriptedCompletion()
	scriptAcme(completion)

	sources := newMemSources(source)
	posts := newMemPosts()
	cache := newMemCache()
	companies := &memCompanies{refs: []domain.CompanyReference{
		{Name: "ACME LIMITED", NSECode: "ACME", BSECode: "532606", Exchange: "NSE", MarketCap: 5e9, MarketCapChecked: true},
	}}
	trackers := &memTrackers{trackers: []domain.Tracker{
		{UserID: "u1", TargetType: domain.TargetCompany, TargetID: "ACME LIMITED", Active: true},
	}}
	notifications := &memNotifications{}
	queue := &memQueue{}
	m := metrics.New(prometheus.NewRegistry())

	h := NewHarvester(HarvesterDeps{
		Sources:      sources,
		Registry:     registry,
		Gateway:      NewDedupGateway(posts, cache, nil),
		Pipeline:     NewPipeline(PipelineDeps{Completion: completion, MinDeepDiveWords: 600}),
		Posts:        posts,
		Companies:    companies,
		Fanout:       notify.NewFanout(trackers, notifications, queue, nil),
		Metrics:      m,
		MinOverlap:   0.70,
		MinMarketCap: 5e9,
	})

	ctx := context.Background()
	if err := h.Run(ctx, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}

	saved, ok := posts.saved[post.Link]
	if !ok {
		t.Fatal("post was not persisted")
	}
	if saved.Classification != domain.ClassCompanyAnalysis {
		t.Fatalf("unexpected classification: %s", saved.Classification)
	}
	if len(saved.CompanyMatches) != 1 || saved.CompanyMatches[0].ResolvedName != "ACME LIMITED" {
		t.Fatalf("unexpected matches: %+v", saved.CompanyMatches)
	}

	got := notifications.all()
	if len(got) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(got))
	}
	n := got[0]
	if n.UserID != "u1" || n.PostLink != post.Link || n.TargetType != domain.TargetCompany || n.TargetID != "ACME LIMITED" {
		t.Fatalf("unexpected notification: %+v", n)
	}

	tasks := queue.all()
	if len(tasks) != 1 || tasks[0].NotificationID != n.ID || tasks[0].PostTitle != post.Title {
		t.Fatalf("unexpected delivery tasks: %+v", tasks)
	}
	if got := testutil.ToFloat64(m.Notifications); got != 1 {
		t.Fatalf("expected notifications counter at 1, got %v", got)
	}

	if _, touched := sources.touched[source.ID]; !touched {
		t.Fatal("source last-checked was not stamped")
	}

	// A second run over the same feed output changes nothing.
	if err := h.Run(ctx, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if len(notifications.all()) != 1 {
		t.Fatalf("rerun must not create notifications, got %d", len(notifications.all()))
	}
	if completion.callCount(classifySystemPrompt) != 1 {
		t.Fatalf("rerun must not reclassify, got %d calls", completion.callCount(classifySystemPrompt))
	}
}

func TestHarvestZeroPostsWithFailuresEscalates(t *testing.T) {
	t.Parallel()

	registry := adapter.NewRegistry()
	registry.Register(&stubAdapter{kind: domain.PlatformFeed, err: errBrokenSource})

	alerter := &recordingAlerter{}
	h := NewHarvester(HarvesterDeps{
		Sources:   newMemSources(domain.Source{ID: "s1", PlatformKind: domain.PlatformFeed, Active: true}),
		Registry:  registry,
		Gateway:   NewDedupGateway(newMemPosts(), newMemCache(), nil),
		Pipeline:  NewPipeline(PipelineDeps{Completion: newScriptedCompletion()}),
		Posts:     newMemPosts(),
		Companies: &memCompanies{},
		Alerter:   alerter,
	})

	if err := h.Run(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	alerts := alerter.all()
	if len(alerts) != 1 || !strings.Contains(alerts[0], "zero posts") {
		t.Fatalf("expected a systemic-outage alert, got %v", alerts)
	}
}

func TestHarvestPersistFailureEscalates(t *testing.T) {
	t.Parallel()

	post := domain.RawPost{
		Title:       "Acme Ltd update",
		Link:        "https://blog.example/acme-update",
		PublishedAt: time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
		BodyText:    bodyOfWords(650),
	}
	registry := adapter.NewRegistry()
	registry.Register(&stubAdapter{kind: domain.PlatformFeed, posts: []domain.RawPost{post}})

	completion := newScriptedCompletion()
	scriptAcme(completion)

	posts := newMemPosts()
	posts.saveErr = errors.New("connection reset by peer")
	alerter := &recordingAlerter{}

	h := NewHarvester(HarvesterDeps{
		Sources:   newMemSources(domain.Source{ID: "s1", PlatformKind: domain.PlatformFeed, Active: true}),
		Registry:  registry,
		Gateway:   NewDedupGateway(posts, newMemCache(), nil),
		Pipeline:  NewPipeline(PipelineDeps{Completion: completion, MinDeepDiveWords: 600}),
		Posts:     posts,
		Companies: &memCompanies{},
		Alerter:   alerter,
	})

	if err := h.Run(context.Background(), time.Now()); err == nil {
		t.Fatal("expected the run to surface the persistence error")
	}
	alerts := alerter.all()
	if len(alerts) != 1 || !strings.Contains(alerts[0], "persistence") {
		t.Fatalf("a run failing with nothing persisted must alert operators, got %v", alerts)
	}
}
