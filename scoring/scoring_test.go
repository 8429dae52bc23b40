package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rmg-pulse/models"
)

func TestScoreScenarioGarmentAIQualityControl(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	desc := strings.TrimSpace(strings.Repeat(
		"A leading garment factory has deployed automated inspection for quality control on its sewing lines. ", 3))
	assert.GreaterOrEqual(t, len(desc), 250)

	res := Score(Input{
		Title:       "Bangladesh garment factory adopts AI quality control",
		Description: desc,
		SourceName:  "Textile Today",
		PublishedAt: now.Add(-2 * time.Hour),
		Now:         now,
	})

	assert.GreaterOrEqual(t, res.Relevance, 60)
	assert.Equal(t, 90, res.Timeliness)
	assert.Contains(t, []string{"AI in RMG", "Quality Control"}, res.Category)
	assert.Equal(t, BlendOverall(res.Relevance, res.Quality, res.Timeliness), res.Overall)
}

func TestScoreGenericContentScoresNearZero(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	res := Score(Input{
		Title:       "Local council debates new parking rules downtown",
		Description: "Residents turned out to discuss parking permits near the stadium.",
		SourceName:  "City Gazette",
		PublishedAt: now.Add(-3 * time.Hour),
		Now:         now,
	})

	assert.Less(t, res.Relevance, 30)
}

func TestScoreIsDeterministic(t *testing.T) {
	in := Input{
		Title:       "Automation and robotics reshape apparel sourcing",
		Description: "Suppliers invest in sewbots and machine learning to cut lead time.",
		SourceName:  "Just Style",
		PublishedAt: time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC),
		Now:         time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
	}
	first := Score(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(in))
	}
}

func TestClassifyTieFallsBackToFirstCategory(t *testing.T) {
	// one hit each for "Automation" (robot) and "Market Trends" (tariff):
	// the tie must resolve to the first category in enumeration order that
	// reached the max hit count.
	text := normalize("robot tariff")
	got := classify(text, tokenSet(text))
	assert.Equal(t, "Automation", got)

	// no hits at all: fixed default
	empty := normalize("completely unrelated words here")
	assert.Equal(t, models.DefaultCategory, classify(empty, tokenSet(empty)))
}

func TestShortKeywordsRequireWholeTokens(t *testing.T) {
	// "ai" must not match inside "said" or "tailor"
	text := normalize("the spokesperson said the tailor was busy")
	tokens := tokenSet(text)
	assert.False(t, matches("ai", text, tokens))

	text2 := normalize("AI adoption is rising")
	assert.True(t, matches("ai", text2, tokenSet(text2)))
}

func TestTimelinessSteps(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		age  time.Duration
		want int
	}{
		{30 * time.Minute, 100},
		{2 * time.Hour, 90},
		{12 * time.Hour, 75},
		{36 * time.Hour, 60},
		{4 * 24 * time.Hour, 40},
		{30 * 24 * time.Hour, 20},
	}
	for _, tc := range cases {
		got := timelinessScore(now, now.Add(-tc.age), false)
		assert.Equal(t, tc.want, got, "age %s", tc.age)
	}
}

func TestTimelinessCappedWhenPublishDateMissing(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	// a missing publish date defaults to "now", which would look brand new;
	// the cap keeps it out of the freshest tiers.
	got := timelinessScore(now, now, true)
	assert.Equal(t, 75, got)

	// old items are unaffected by the cap
	got = timelinessScore(now, now.Add(-3*24*time.Hour), true)
	assert.Equal(t, 40, got)
}

func TestQualityBonuses(t *testing.T) {
	long := strings.Repeat("x", 260)
	mid := strings.Repeat("x", 120)

	assert.Equal(t, 50, qualityScore("Unknown Blog", "short"))
	assert.Equal(t, 60, qualityScore("Unknown Blog", mid))
	assert.Equal(t, 70, qualityScore("Unknown Blog", long))
	assert.Equal(t, 90, qualityScore("Textile Today", long))
	assert.Equal(t, 70, qualityScore("reuters", "short"))
}

func TestBlendOverall(t *testing.T) {
	assert.Equal(t, 100, BlendOverall(100, 100, 100))
	assert.Equal(t, 0, BlendOverall(0, 0, 0))
	// 0.5*80 + 0.3*60 + 0.2*40 = 66
	assert.Equal(t, 66, BlendOverall(80, 60, 40))
	// rounding: 0.5*33 + 0.3*33 + 0.2*33 = 33
	assert.Equal(t, 33, BlendOverall(33, 33, 33))
}

func TestRelevanceCappedAt100(t *testing.T) {
	text := normalize(strings.Join(domainKeywords, " ") + " bangladesh")
	assert.Equal(t, 100, relevanceScore(text, tokenSet(text)))
}
