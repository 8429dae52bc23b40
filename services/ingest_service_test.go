package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"rmg-pulse/config"
	"rmg-pulse/feeder"
	"rmg-pulse/models"
)

type fakeSourceStore struct {
	mu      sync.Mutex
	sources []models.Source
	fetched map[string]time.Time
}

func (f *fakeSourceStore) UpsertByURL(ctx context.Context, s *models.Source) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{}, nil
}

func (f *fakeSourceStore) ListEnabled(ctx context.Context) ([]models.Source, error) {
	return f.sources, nil
}

func (f *fakeSourceStore) MarkFetched(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetched == nil {
		f.fetched = map[string]time.Time{}
	}
	f.fetched[id.Hex()] = at
	return nil
}

type fakeIngestArticleStore struct {
	mu       sync.Mutex
	byLink   map[string]models.Article
	insertErr error
}

func newFakeIngestArticleStore() *fakeIngestArticleStore {
	return &fakeIngestArticleStore{byLink: map[string]models.Article{}}
}

func (f *fakeIngestArticleStore) IsExistByLink(ctx context.Context, link string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byLink[link]
	return ok, nil
}

func (f *fakeIngestArticleStore) Insert(ctx context.Context, a *models.Article) (*mongo.InsertOneResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.byLink[a.Link] = *a
	return &mongo.InsertOneResult{}, nil
}

func (f *fakeIngestArticleStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byLink)
}

func testSource(name string) models.Source {
	return models.Source{
		ID:         primitive.NewObjectID(),
		Name:       name,
		URL:        "https://example.com/" + name + "/feed",
		SourceType: models.SourceTypeRSS,
		Enabled:    true,
	}
}

func relevantCandidate(link string) feeder.Candidate {
	return feeder.Candidate{
		Title:       "Bangladesh garment factory adopts AI quality control",
		Link:        link,
		PublishedAt: time.Now().Add(-2 * time.Hour),
		Description: "A garment factory near Dhaka deploys automated inspection systems for quality control across its sewing lines, with machine learning defect detection.",
	}
}

func irrelevantCandidate(link string) feeder.Candidate {
	return feeder.Candidate{
		Title:       "Weekend weather outlook stays mild",
		Link:        link,
		PublishedAt: time.Now().Add(-2 * time.Hour),
		Description: "Sunny spells expected across the region with light winds.",
	}
}

func staticFetch(items ...feeder.Candidate) FetchFunc {
	return func(ctx context.Context, feedURL string, limit int, timeout time.Duration) ([]feeder.Candidate, error) {
		return items, nil
	}
}

func TestIngestAdmitsRelevantRejectsIrrelevant(t *testing.T) {
	sources := &fakeSourceStore{sources: []models.Source{testSource("alpha")}}
	articles := newFakeIngestArticleStore()
	fetch := staticFetch(relevantCandidate("https://example.com/a"), irrelevantCandidate("https://example.com/b"))

	svc := NewIngestService(sources, articles, fetch, config.IngestConfig{AdmissionThreshold: 30, FetchWorkers: 2}, nil)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, articles.count())

	stored := articles.byLink["https://example.com/a"]
	require.NotNil(t, stored.RelevanceScore)
	require.NotNil(t, stored.OverallScore)
	assert.GreaterOrEqual(t, *stored.RelevanceScore, 60)
	assert.False(t, stored.Status.AIScored)
	assert.True(t, models.IsValidCategory(stored.Category))
}

func TestIngestIsIdempotentAcrossRuns(t *testing.T) {
	sources := &fakeSourceStore{sources: []models.Source{testSource("alpha")}}
	articles := newFakeIngestArticleStore()
	fetch := staticFetch(relevantCandidate("https://example.com/a"))
	svc := NewIngestService(sources, articles, fetch, config.IngestConfig{AdmissionThreshold: 30}, nil)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	first := articles.count()

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, articles.count(), "second run over unchanged feed must not add articles")
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Succeeded)
}

func TestIngestAdmissionThresholdBoundary(t *testing.T) {
	// "garment exports" scores two keyword hits and no region bonus: 24.
	cand := feeder.Candidate{
		Title:       "garment exports",
		Link:        "https://example.com/boundary",
		PublishedAt: time.Now(),
		Description: "none",
	}

	// exactly at the threshold: admitted
	articles := newFakeIngestArticleStore()
	svc := NewIngestService(&fakeSourceStore{sources: []models.Source{testSource("alpha")}}, articles,
		staticFetch(cand), config.IngestConfig{AdmissionThreshold: 24}, nil)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, articles.count())

	// one above the candidate's score: rejected
	articles2 := newFakeIngestArticleStore()
	svc2 := NewIngestService(&fakeSourceStore{sources: []models.Source{testSource("alpha")}}, articles2,
		staticFetch(cand), config.IngestConfig{AdmissionThreshold: 25}, nil)
	report2, err := svc2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report2.Succeeded)
	assert.Equal(t, 0, articles2.count())
}

func TestIngestSourceFailureIsIsolated(t *testing.T) {
	good := testSource("good")
	bad := testSource("bad")
	sources := &fakeSourceStore{sources: []models.Source{good, bad}}
	articles := newFakeIngestArticleStore()

	fetch := func(ctx context.Context, feedURL string, limit int, timeout time.Duration) ([]feeder.Candidate, error) {
		if feedURL == bad.URL {
			return nil, errors.New("connection refused")
		}
		return []feeder.Candidate{relevantCandidate("https://example.com/ok")}, nil
	}

	svc := NewIngestService(sources, articles, fetch, config.IngestConfig{AdmissionThreshold: 30}, nil)
	report, err := svc.Run(context.Background())
	require.NoError(t, err, "one failing source must not fail the run")
	assert.Equal(t, 1, report.Succeeded)

	// last_fetched_at advanced only for the source that fetched
	assert.Contains(t, sources.fetched, good.ID.Hex())
	assert.NotContains(t, sources.fetched, bad.ID.Hex())
}

func TestIngestAllSourcesFailedReturnsError(t *testing.T) {
	sources := &fakeSourceStore{sources: []models.Source{testSource("alpha")}}
	fetch := func(ctx context.Context, feedURL string, limit int, timeout time.Duration) ([]feeder.Candidate, error) {
		return nil, errors.New("dns failure")
	}
	svc := NewIngestService(sources, newFakeIngestArticleStore(), fetch, config.IngestConfig{}, nil)

	_, err := svc.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, sources.fetched)
}

func TestIngestPersistenceFailureDoesNotAbortBatch(t *testing.T) {
	sources := &fakeSourceStore{sources: []models.Source{testSource("alpha")}}
	articles := newFakeIngestArticleStore()
	articles.insertErr = errors.New("write concern timeout")

	fetch := staticFetch(relevantCandidate("https://example.com/x"), relevantCandidate("https://example.com/y"))
	svc := NewIngestService(sources, articles, fetch, config.IngestConfig{AdmissionThreshold: 30}, nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 0, report.Succeeded)
	// the source still connected and parsed, so the timestamp advances
	assert.Len(t, sources.fetched, 1)
}
