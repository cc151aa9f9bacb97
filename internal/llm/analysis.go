package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotRelevant marks content the model classified as an ad or otherwise
// non-substantive. The article is skipped, not failed.
var ErrNotRelevant = errors.New("content is not relevant news")

// MalformedResponseError is returned when the model's reply is not the single
// strict JSON object the prompt demands. Raw keeps the offending text for
// diagnosis. The call is not retried.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed analysis response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Analysis is the structured result of analyzing one article.
type Analysis struct {
	Summary         string
	BriefSummary    string
	TranslatedTitle string
	SentimentScore  int
	PositiveFactors []string
	NegativeFactors []string
	Tags            []string
}

const analysisSystemPrompt = `You are a financial news analyst for a Korean stock and crypto platform.
Analyze the given article and respond with a single JSON object only, no other text:
{
  "success": true,
  "summary": "4-6 sentence analysis of the article and its market impact, in Korean",
  "brief_summary": "one sentence, in Korean",
  "translated_title": "the title translated to Korean (keep as-is if already Korean)",
  "sentiment_score": 1-5 (1 very negative, 3 neutral, 5 very positive),
  "positive_factors": ["..."],
  "negative_factors": ["..."],
  "tags": ["ticker or coin symbols the article is about, e.g. AAPL, BTC"]
}
If the article is an advertisement, notice, or otherwise not substantive news, respond with {"success": false} only.`

// Analyze runs the deterministic analysis prompt (temperature 0) and parses
// the reply under the strict JSON contract. Callers must filter Tags against
// the tracked symbol set before persisting.
func (c *Client) Analyze(ctx context.Context, title, body string, publishedAt time.Time) (*Analysis, error) {
	user := fmt.Sprintf("Title: %s\nPublished: %s\n\n%s",
		title, publishedAt.Format(time.RFC3339), body)

	raw, err := c.Complete(ctx, analysisSystemPrompt, user, 0)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(raw)
}

func parseAnalysis(raw string) (*Analysis, error) {
	content := cleanJSONResponse(raw)

	var parsed struct {
		Success         *bool    `json:"success"`
		Summary         string   `json:"summary"`
		BriefSummary    string   `json:"brief_summary"`
		TranslatedTitle string   `json:"translated_title"`
		SentimentScore  int      `json:"sentiment_score"`
		PositiveFactors []string `json:"positive_factors"`
		NegativeFactors []string `json:"negative_factors"`
		Tags            []string `json:"tags"`
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&parsed); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	if parsed.Success != nil && !*parsed.Success {
		return nil, ErrNotRelevant
	}

	if parsed.SentimentScore < 1 || parsed.SentimentScore > 5 {
		return nil, &MalformedResponseError{
			Raw: raw,
			Err: fmt.Errorf("sentiment_score %d out of range 1-5", parsed.SentimentScore),
		}
	}
	if parsed.Summary == "" {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("summary is empty")}
	}

	return &Analysis{
		Summary:         parsed.Summary,
		BriefSummary:    parsed.BriefSummary,
		TranslatedTitle: parsed.TranslatedTitle,
		SentimentScore:  parsed.SentimentScore,
		PositiveFactors: parsed.PositiveFactors,
		NegativeFactors: parsed.NegativeFactors,
		Tags:            parsed.Tags,
	}, nil
}

// cleanJSONResponse strips markdown code fences some models wrap around JSON.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}
