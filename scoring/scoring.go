// Package scoring implements the fast heuristic baseline that runs inline
// during ingestion. It is intentionally crude: a pre-filter feeding the
// admission gate, not a final judgment. The AI pass later overwrites its
// output for admitted articles.
package scoring

import (
	"math"
	"strings"
	"time"

	"rmg-pulse/models"
)

// Input holds everything the heuristic scorer looks at. Now allows tests to
// pin the clock; the zero value means time.Now().
type Input struct {
	Title              string
	Description        string
	SourceName         string
	PublishedAt        time.Time
	PublishedAtMissing bool
	Now                time.Time
}

// Result is the complete heuristic score set.
type Result struct {
	Relevance  int
	Quality    int
	Timeliness int
	Overall    int
	Category   string
}

const (
	keywordWeight   = 12
	regionBonus     = 20
	qualityBase     = 50
	credibleBonus   = 20
	descStep1Length = 100
	descStep2Length = 250
	descStepBonus   = 10
)

// domainKeywords each contribute keywordWeight once per distinct hit.
// Multi-word entries match as phrases, single words as whole tokens.
var domainKeywords = []string{
	"rmg", "garment", "garments", "apparel", "textile", "textiles",
	"knitwear", "denim", "fabric", "yarn", "spinning", "weaving",
	"factory", "factories", "machinery", "sewing",
	"ai", "artificial intelligence", "machine learning", "automation",
	"robotics", "computer vision",
	"sustainability", "sustainable", "compliance", "certification",
	"supply chain", "sourcing", "logistics", "export", "exports",
	"buyer", "buyers", "quality control", "inspection", "defect",
	"productivity", "wages", "workers",
}

// regionKeywords grant one flat bonus when any is present. Bangladesh is the
// home region of the feed.
var regionKeywords = []string{
	"bangladesh", "dhaka", "chattogram", "chittagong", "bgmea", "bkmea",
}

// categoryKeywords maps each fixed category to its signal terms. Evaluated
// in models.Categories order; ties resolve to the first category.
var categoryKeywords = map[string][]string{
	"AI in RMG": {
		"ai", "artificial intelligence", "machine learning", "deep learning",
		"computer vision", "predictive", "algorithm", "neural",
	},
	"Automation": {
		"automation", "automated", "robot", "robots", "robotics", "sewbot",
		"machinery", "iot",
	},
	"Sustainability": {
		"sustainability", "sustainable", "green", "recycled", "recycling",
		"circular", "emissions", "leed", "eco-friendly", "organic",
	},
	"Supply Chain": {
		"supply chain", "sourcing", "logistics", "shipping", "freight",
		"supplier", "suppliers", "procurement", "lead time",
	},
	"Quality Control": {
		"quality control", "quality", "inspection", "defect", "defects",
		"testing", "standards", "compliance", "audit",
	},
	"Market Trends": {
		"market", "export", "exports", "growth", "demand", "orders",
		"trade", "tariff", "price", "prices", "forecast",
	},
}

// credibleSources get the quality bonus. Matching is case-insensitive
// substring so configured names like "Textile Today (BD)" still hit.
var credibleSources = []string{
	"textile today", "apparel resources", "just style", "fibre2fashion",
	"the daily star", "dhaka tribune", "reuters", "bloomberg",
	"sourcing journal", "rmg bangladesh",
}

// Score computes the full heuristic score set. Pure: identical input always
// yields the identical result.
func Score(in Input) Result {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	text := normalize(in.Title + " " + in.Description)
	tokens := tokenSet(text)

	relevance := relevanceScore(text, tokens)
	quality := qualityScore(in.SourceName, in.Description)
	timeliness := timelinessScore(now, in.PublishedAt, in.PublishedAtMissing)

	return Result{
		Relevance:  relevance,
		Quality:    quality,
		Timeliness: timeliness,
		Overall:    BlendOverall(relevance, quality, timeliness),
		Category:   classify(text, tokens),
	}
}

// BlendOverall is the fixed linear blend shared by the heuristic and AI
// passes. Relevance dominates: an off-topic but well-written article is
// still undesirable.
func BlendOverall(relevance, quality, timeliness int) int {
	return int(math.Round(0.5*float64(relevance) + 0.3*float64(quality) + 0.2*float64(timeliness)))
}

func relevanceScore(text string, tokens map[string]struct{}) int {
	score := 0
	for _, kw := range domainKeywords {
		if matches(kw, text, tokens) {
			score += keywordWeight
		}
	}
	for _, kw := range regionKeywords {
		if matches(kw, text, tokens) {
			score += regionBonus
			break
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// classify counts category keyword hits; most hits wins, ties resolve to
// the first category in enumeration order.
func classify(text string, tokens map[string]struct{}) string {
	best := models.DefaultCategory
	bestHits := 0
	for _, cat := range models.Categories {
		hits := 0
		for _, kw := range categoryKeywords[cat] {
			if matches(kw, text, tokens) {
				hits++
			}
		}
		if hits > bestHits {
			best = cat
			bestHits = hits
		}
	}
	return best
}

// timelinessScore is a decreasing step function of elapsed time since
// publication. It is computed at scoring time and, in this pipeline, frozen
// afterwards: the stored value reflects how fresh the article was when
// found. Items without a real publish date are capped below the freshest
// tiers since their recency is unverified.
func timelinessScore(now, publishedAt time.Time, publishedAtMissing bool) int {
	age := now.Sub(publishedAt)

	var score int
	switch {
	case age < time.Hour:
		score = 100
	case age < 6*time.Hour:
		score = 90
	case age < 24*time.Hour:
		score = 75
	case age < 48*time.Hour:
		score = 60
	case age < 7*24*time.Hour:
		score = 40
	default:
		score = 20
	}

	if publishedAtMissing && score > 75 {
		score = 75
	}
	return score
}

func qualityScore(sourceName, description string) int {
	score := qualityBase

	lowerSource := strings.ToLower(sourceName)
	for _, s := range credibleSources {
		if strings.Contains(lowerSource, s) {
			score += credibleBonus
			break
		}
	}

	descLen := len([]rune(description))
	if descLen >= descStep1Length {
		score += descStepBonus
	}
	if descLen >= descStep2Length {
		score += descStepBonus
	}

	if score > 100 {
		score = 100
	}
	return score
}

// matches reports whether kw occurs in the text: phrases by substring over
// the normalized text, single words by whole-token lookup so short keywords
// like "ai" cannot hit inside other words.
func matches(kw, text string, tokens map[string]struct{}) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(text, kw)
	}
	_, ok := tokens[kw]
	return ok
}

func normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
		// hyphenated words also match on their parts
		if strings.Contains(tok, "-") {
			for _, part := range strings.Split(tok, "-") {
				if part != "" {
					set[part] = struct{}{}
				}
			}
		}
	}
	return set
}
