package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"rmg-pulse/models"
)

// ScoringResult is the structured output of one model scoring call.
type ScoringResult struct {
	RelevanceScore  int      `json:"relevance_score"`
	QualityScore    int      `json:"quality_score"`
	TimelinessScore int      `json:"timeliness_score"`
	Category        string   `json:"category"`
	Summary         string   `json:"summary"`
	Insight         Insight  `json:"insight"`
	Error           *string  `json:"error,omitempty"`
}

type Insight struct {
	Narrative string   `json:"narrative"`
	Topics    []string `json:"topics"`
}

// LLMRequestLog captures one model call for the ai_logs collection.
type LLMRequestLog struct {
	Prompt       string     `json:"prompt"`
	Response     string     `json:"response"`
	LatencyMs    int64      `json:"latency_ms"`
	TokenUsage   TokenUsage `json:"token_usage"`
	ModelName    string     `json:"model_name"`
	ModelVersion string     `json:"model_version"`
	GeneratedAt  time.Time  `json:"generated_at"`
}

type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

const SYSTEM_INSTRUCTION = `
You are a news analyst for the ready-made-garment (RMG) industry with a focus
on Bangladesh. Analyze the provided article and produce a structured rating.
The response MUST be a valid JSON object with these keys:

1. relevance_score: integer 0-100. How relevant the article is to the RMG
   industry (manufacturing, apparel trade, textile technology). Off-topic
   content scores near 0 regardless of writing quality.
2. quality_score: integer 0-100. Depth, specificity and credibility of the
   reporting.
3. timeliness_score: integer 0-100. How current the story is relative to the
   publish date given in the input.
4. category: exactly one value from this list (English, verbatim):
   ["AI in RMG", "Automation", "Sustainability", "Supply Chain",
    "Quality Control", "Market Trends"].
5. summary: a concise summary of the article, no more than 200 characters.
6. insight: an object with two keys:
   - narrative: one sentence on why this article matters to RMG readers.
   - topics: a list of 3-5 concrete topic keywords from the text.
7. error: optional string. If the content cannot be analyzed (e.g. it is a
   security check page), set a descriptive message here and use zeros and
   empty values for the other fields. Otherwise set it to null.

Constraints:
- You MUST NOT wrap the JSON output in a markdown code block (e.g. ` + "```json ... ```" + `).
- The response should contain ONLY the raw JSON string.
- All string values are written in English.
`

// Input is the article content sent to the model.
type Input struct {
	Title       string
	Summary     string
	Body        string
	SourceName  string
	PublishedAt time.Time
}

// BuildPrompt renders the article into the user prompt. Deterministic so
// identical articles produce identical prompts.
func BuildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	fmt.Fprintf(&b, "Source: %s\n", in.SourceName)
	fmt.Fprintf(&b, "Published: %s\n", in.PublishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Description: %s\n", in.Summary)
	if in.Body != "" {
		fmt.Fprintf(&b, "\nFull text:\n%s\n", truncate(in.Body, 8000))
	}
	return b.String()
}

// ScoreArticle issues one model call and parses the structured response.
// The request log is returned even though parsing may have failed upstream
// of it, so callers can persist usage data for every completed call.
func ScoreArticle(ctx context.Context, client *genai.Client, modelName string, in Input) (*ScoringResult, *LLMRequestLog, error) {
	startTime := time.Now()

	prompt := BuildPrompt(in)
	result, err := client.Models.GenerateContent(
		ctx,
		modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SYSTEM_INSTRUCTION}}},
		},
	)
	if err != nil {
		return nil, nil, err
	}

	reqLog := &LLMRequestLog{
		Prompt:      fmt.Sprintf("%s\n\n%s", SYSTEM_INSTRUCTION, prompt),
		Response:    result.Text(),
		LatencyMs:   time.Since(startTime).Milliseconds(),
		ModelName:   modelName,
		ModelVersion: result.ModelVersion,
		GeneratedAt: time.Now(),
	}
	if result.UsageMetadata != nil {
		reqLog.TokenUsage = TokenUsage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
	}

	scored, err := ParseScoringResponse(result.Text())
	if err != nil {
		return nil, reqLog, err
	}
	if scored.Error != nil {
		return scored, reqLog, fmt.Errorf("model judged the content unanalyzable: %s", *scored.Error)
	}

	return scored, reqLog, nil
}

// ParseScoringResponse validates the raw model output. Kept pure so the
// guard rails (fence stripping, range clamping, enum check) are testable
// without a model.
func ParseScoringResponse(raw string) (*ScoringResult, error) {
	cleaned := stripJSONFences(raw)

	var res ScoringResult
	if err := json.Unmarshal([]byte(cleaned), &res); err != nil {
		return nil, fmt.Errorf("parse scoring response: %w", err)
	}

	if res.Error != nil {
		return &res, nil
	}

	res.RelevanceScore = clampScore(res.RelevanceScore)
	res.QualityScore = clampScore(res.QualityScore)
	res.TimelinessScore = clampScore(res.TimelinessScore)

	if !models.IsValidCategory(res.Category) {
		return nil, fmt.Errorf("parse scoring response: category %q is not in the fixed set", res.Category)
	}

	return &res, nil
}

// stripJSONFences tolerates models that wrap output in a markdown code
// block despite instructions.
func stripJSONFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func truncate(s string, max int) string {
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return string(rs[:max])
}
